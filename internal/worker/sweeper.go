package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bilda/backend/internal/presence"
)

// Sweeper periodically removes stale live sessions. Deletion keyed on
// last_seen_at makes the sweep idempotent, so it is safe to run alongside the
// API servers' own reconcile-on-refresh.
type Sweeper struct {
	repo       *presence.Repository
	staleAfter time.Duration
	interval   time.Duration
	logger     *zap.Logger
}

// NewSweeper creates a stale session sweeper.
func NewSweeper(repo *presence.Repository, staleAfter, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{repo: repo, staleAfter: staleAfter, interval: interval, logger: logger}
}

// Run sweeps until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
			removed, err := s.repo.Reconcile(ctx, s.staleAfter)
			if err != nil {
				s.logger.Warn("sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Info("swept stale sessions", zap.Int64("removed", removed))
			}
		}
	}
}
