package db

import (
	"context"
	"time"

	"github.com/atinyakov/TodoKeeper/internal/tenant"
	"go.uber.org/zap"
)

// StoreRanger iterates over open tenant stores.
type StoreRanger interface {
	Range(fn func(*tenant.Store) bool)
}

// StartCheckpointer truncates the write-ahead log of every open tenant
// store once per interval until ctx is done.
func StartCheckpointer(
	ctx context.Context,
	stores StoreRanger,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkpoint(ctx, stores, log)
			}
		}
	}()
}

func checkpoint(ctx context.Context, stores StoreRanger, log *zap.Logger) {
	var done int
	stores.Range(func(s *tenant.Store) bool {
		if ctx.Err() != nil {
			return false
		}
		if _, err := s.DB().ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
			log.Error("failed to checkpoint tenant store",
				zap.Int64("tenant", s.TenantID), zap.Error(err))
			return true
		}
		done++
		return true
	})
	if done > 0 {
		log.Debug("checkpointed tenant stores", zap.Int("stores", done))
	}
}
