package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chatpush/relay/internal/domain"
)

// StartCleanupWorker starts a background worker that ages out push
// subscriptions older than ttl. It runs until ctx is cancelled. Endpoint
// expiry reported by the push service is handled separately during
// delivery; this worker catches subscriptions that were simply abandoned.
func StartCleanupWorker(ctx context.Context, store domain.ProfileStore, logger *zap.Logger, interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-ttl)
				removed, err := store.CleanupExpiredSubscriptions(ctx, cutoff)
				if err != nil {
					logger.Error("subscription cleanup failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					logger.Info("removed expired subscriptions", zap.Int64("count", removed))
				}
			}
		}
	}()
}
