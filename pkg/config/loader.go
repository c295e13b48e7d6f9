// Package config fills configuration structs from environment variables
// declared with `env` struct tags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg, a pointer to a tagged struct, from the process
// environment.
func Load(cfg any) error {
	return load(cfg, env.Options{})
}

// LoadFrom is Load reading vars instead of the process environment.
func LoadFrom(cfg any, vars map[string]string) error {
	if vars == nil {
		vars = map[string]string{}
	}
	return load(cfg, env.Options{Environment: vars})
}

func load(cfg any, opts env.Options) error {
	err := env.ParseWithOptions(cfg, opts)
	if err == nil {
		return nil
	}
	if missing := MissingVars(err); len(missing) > 0 {
		return fmt.Errorf("config: required variables not set: %s: %w", strings.Join(missing, ", "), err)
	}
	return fmt.Errorf("config: %w", err)
}

// MissingVars lists the required variables a Load error complains about.
func MissingVars(err error) []string {
	var agg env.AggregateError
	if !errors.As(err, &agg) {
		return nil
	}
	var keys []string
	for _, e := range agg.Errors {
		var unset env.EnvVarIsNotSetError
		if errors.As(e, &unset) {
			keys = append(keys, unset.Key)
		}
	}
	return keys
}
