// Package maintenance runs periodic housekeeping jobs.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mgkeit/pairalert/internal/bot/principals"
	"github.com/mgkeit/pairalert/internal/logging"
)

// Sweeper periodically zeroes last_auth_time for sessions whose idle
// window already elapsed, so stored timestamps cannot masquerade as live
// sessions across restarts.
type Sweeper struct {
	cron    *cron.Cron
	repo    principals.Repository
	timeout time.Duration
	logger  logging.Logger
	now     func() time.Time
}

func NewSweeper(repo principals.Repository, timeout time.Duration, logger logging.Logger) *Sweeper {
	return &Sweeper{
		cron:    cron.New(),
		repo:    repo,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Start registers the sweep at the given cron spec (e.g. "@every 1m")
// and starts the scheduler.
func (s *Sweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info(context.Background(), "session sweeper started", "spec", spec)
	return nil
}

// Sweep runs one pass. Exposed for tests and for a sweep at startup.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.timeout).Unix()
	n, err := s.repo.InvalidateStale(ctx, cutoff)
	if err != nil {
		s.logger.Warn(ctx, "session sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info(ctx, "expired idle sessions", "count", n)
	}
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info(context.Background(), "session sweeper stopped")
}
