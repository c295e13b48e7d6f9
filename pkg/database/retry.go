package database

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	startupAttempts = 3
	startupBackoff  = 500 * time.Millisecond
)

func always(error) bool { return true }

// retry runs fn up to startupAttempts times while retryable approves the
// error, sleeping 0.5s, 1s, ... with ±25% jitter in between.
func retry(ctx context.Context, logger *slog.Logger, what string, retryable func(error) bool, fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == startupAttempts || !retryable(err) {
			break
		}

		wait := backoff(attempt)
		if logger != nil {
			logger.Warn(what+" failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", what, ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func backoff(attempt int) time.Duration {
	base := startupBackoff << (attempt - 1)
	quarter := int64(base) / 4
	return base - time.Duration(quarter) + time.Duration(rand.Int64N(2*quarter+1))
}
