package alert

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type overdueExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically transitions active alerts past their 24h expiry to
// expired. Expiry is enforced here and by the lazy filter on the
// active-alerts listing, not by the store's own TTL machinery, so expired
// alerts stay queryable for audit.
type Sweeper struct {
	alerts   overdueExpirer
	interval time.Duration
	log      *zap.Logger
}

func NewSweeper(repo *Repository, log *zap.Logger) *Sweeper {
	return &Sweeper{alerts: repo, interval: time.Minute, log: log}
}

// Start runs the background sweep loop tied to the application lifecycle.
func (s *Sweeper) Start(lc fx.Lifecycle) {
	ticker := time.NewTicker(s.interval)
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("starting alert expiry sweeper", zap.Duration("interval", s.interval))
			go func() {
				sweepCtx := context.Background()
				for {
					select {
					case <-ticker.C:
						s.Sweep(sweepCtx)
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.log.Info("stopping alert expiry sweeper")
			ticker.Stop()
			close(done)
			return nil
		},
	})
}

// Sweep expires every overdue active alert once.
func (s *Sweeper) Sweep(ctx context.Context) {
	expired, err := s.alerts.ExpireOverdue(ctx, time.Now())
	if err != nil {
		s.log.Warn("alert expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.log.Info("expired overdue alerts", zap.Int64("count", expired))
	}
}
