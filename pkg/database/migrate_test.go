package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func migrationFS() fstest.MapFS {
	return fstest.MapFS{
		"002_add_vendor_index.up.sql":      {Data: []byte("CREATE INDEX idx_vendor ON cart_snapshots (vendor_id)")},
		"001_create_cart_snapshots.up.sql": {Data: []byte("CREATE TABLE cart_snapshots (session_id TEXT PRIMARY KEY)")},
		"001_create_cart_snapshots.down.sql": {Data: []byte("DROP TABLE cart_snapshots")},
	}
}

func expectPreamble(mock pgxmock.PgxConnIface) {
	mock.ExpectExec("pg_advisory_lock").WithArgs(migrationLockKey).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
}

func expectApplied(mock pgxmock.PgxConnIface, name string, applied bool) {
	mock.ExpectQuery("FROM schema_migrations WHERE version").WithArgs(name).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(applied))
}

func expectUnlock(mock pgxmock.PgxConnIface) {
	mock.ExpectExec("pg_advisory_unlock").WithArgs(migrationLockKey).WillReturnResult(pgxmock.NewResult("SELECT", 1))
}

func TestMigrate_AppliesPendingInOrder(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)

	expectPreamble(mock)
	expectApplied(mock, "001_create_cart_snapshots.up.sql", true)
	expectApplied(mock, "002_add_vendor_index.up.sql", false)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE INDEX idx_vendor").WillReturnResult(pgxmock.NewResult("CREATE INDEX", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_add_vendor_index.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	expectUnlock(mock)

	var logs bytes.Buffer
	err = migrate(context.Background(), mock, migrationFS(), slog.New(slog.NewJSONHandler(&logs, nil)))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, logs.String(), "002_add_vendor_index.up.sql")
	assert.NotContains(t, logs.String(), "001_create_cart_snapshots")
}

func TestMigrate_FailedStatementRollsBackAndUnlocks(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)

	syntax := &pgconn.PgError{Code: "42601", Message: "syntax error"}
	expectPreamble(mock)
	expectApplied(mock, "001_create_cart_snapshots.up.sql", false)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE cart_snapshots").WillReturnError(syntax)
	mock.ExpectRollback()
	expectUnlock(mock)

	err = migrate(context.Background(), mock, migrationFS(), discard())

	require.Error(t, err)
	assert.ErrorIs(t, err, syntax)
	assert.Contains(t, err.Error(), "apply migration 001_create_cart_snapshots.up.sql")
	assert.False(t, transient(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_LockFailure(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	mock.ExpectExec("pg_advisory_lock").WithArgs(migrationLockKey).WillReturnError(errors.New("conn closed"))

	err = migrate(context.Background(), mock, migrationFS(), discard())

	require.ErrorContains(t, err, "take migration lock")
	assert.True(t, transient(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
