package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	busyMaxRetries = 3
	busyBaseDelay  = 50 * time.Millisecond
)

// isConflictError reports SQLITE_BUSY and "database is locked" errors, which
// are worth retrying.
func isConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// withBusyRetry runs op, retrying SQLite conflict errors with exponential backoff
// (50ms, 100ms).
func withBusyRetry(ctx context.Context, name string, op func() error) error {
	var err error
	for i := 0; i < busyMaxRetries; i++ {
		err = op()
		if err == nil {
			return nil
		}
		if !isConflictError(err) || i == busyMaxRetries-1 {
			break
		}

		delay := busyBaseDelay * time.Duration(1<<i)
		slog.Debug("sqlite busy, retrying", "op", name, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
