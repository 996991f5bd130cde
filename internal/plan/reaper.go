package plan

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/planbridge/internal/store"
)

// DefaultReaperInterval is how often stale claims are swept.
const DefaultReaperInterval = time.Minute

// StartClaimReaper runs a background goroutine that periodically returns
// abandoned generation claims to pending so the sections can be retried.
func StartClaimReaper(ctx context.Context, repo store.Repository, interval, lease time.Duration) {
	if interval <= 0 {
		interval = DefaultReaperInterval
	}
	if lease <= 0 {
		lease = DefaultClaimLease
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Claim reaper started", "interval", interval, "lease", lease)

		for {
			select {
			case <-ticker.C:
				if _, err := ReapStaleClaims(ctx, repo, lease); err != nil {
					slog.Error("Claim reaper sweep failed", "error", err)
				}
			case <-ctx.Done():
				slog.Info("Claim reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// ReapStaleClaims releases claims held longer than lease once.
func ReapStaleClaims(ctx context.Context, repo store.Repository, lease time.Duration) (int64, error) {
	released, err := repo.ReleaseStaleClaims(ctx, lease)
	if err != nil {
		return 0, err
	}
	if released > 0 {
		slog.Info("Claim reaper released stale claims", "count", released, "lease", lease)
	}
	return released, nil
}
