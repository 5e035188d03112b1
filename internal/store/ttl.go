package store

import (
	"context"
	"log/slog"
	"time"
)

// RunTTLWorker sweeps sessions idle longer than ttl every interval until ctx is done.
// It blocks; run it in its own goroutine.
func RunTTLWorker(ctx context.Context, repo Repository, ttl, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("TTL worker started", "interval", interval, "ttl", ttl)

	for {
		select {
		case <-ticker.C:
			sweepExpiredSessions(ctx, repo, ttl)
		case <-ctx.Done():
			slog.Info("TTL worker shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

func sweepExpiredSessions(ctx context.Context, repo Repository, ttl time.Duration) {
	deleted, err := repo.CleanupExpiredSessions(ctx, ttl)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("TTL worker failed to cleanup expired sessions", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("TTL worker removed expired sessions", "count", deleted)
	}
}
