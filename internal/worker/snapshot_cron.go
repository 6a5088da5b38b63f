package worker

// snapshot_cron.go
// Background goroutine that enqueues the daily valuation snapshot once the
// configured hour passes. A Redis SETNX marker keyed by date makes the
// trigger exactly-once even when several API instances run the cron.

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	cronTickInterval = time.Minute
	cronMarkerTTL    = 48 * time.Hour
)

// SnapshotCronConfig holds the dependencies for the daily trigger.
type SnapshotCronConfig struct {
	RDB        *redis.Client
	Dispatcher *Dispatcher
	// Hour is the local hour (0-23) after which today's snapshot is due.
	Hour int
}

// StartSnapshotCron launches a goroutine that ticks every minute and enqueues
// at most one snapshot job per day. It respects the context for graceful
// shutdown.
func StartSnapshotCron(ctx context.Context, cfg SnapshotCronConfig) {
	go func() {
		ticker := time.NewTicker(cronTickInterval)
		defer ticker.Stop()

		log.Info().Int("hour", cfg.Hour).Msg("snapshot_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("snapshot_cron: shutting down")
				return
			case <-ticker.C:
				maybeEnqueueSnapshot(ctx, cfg)
			}
		}
	}()
}

func maybeEnqueueSnapshot(ctx context.Context, cfg SnapshotCronConfig) {
	now := time.Now()
	if now.Hour() < cfg.Hour {
		return
	}

	date := now.Format("2006-01-02")
	marker := fmt.Sprintf("snapshot_cron:%s", date)

	// First instance to set the marker wins; everyone else skips.
	ok, err := cfg.RDB.SetNX(ctx, marker, "1", cronMarkerTTL).Result()
	if err != nil {
		log.Error().Err(err).Msg("snapshot_cron: marker check failed")
		return
	}
	if !ok {
		return
	}

	if err := cfg.Dispatcher.EnqueueSnapshot(ctx, date); err != nil {
		log.Error().Err(err).Str("date", date).Msg("snapshot_cron: enqueue failed")
		// Drop the marker so the next tick retries.
		cfg.RDB.Del(ctx, marker)
		return
	}
	log.Info().Str("date", date).Msg("snapshot_cron: snapshot enqueued")
}
