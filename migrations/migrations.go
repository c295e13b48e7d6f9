// Package migrations embeds the SQL schema for the PostgreSQL cart store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
