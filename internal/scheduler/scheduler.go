// Package scheduler runs the periodic maintenance jobs of serve mode.
// Today that is launch-history retention.
package scheduler

import (
	"context"
	"time"

	"github.com/clipsmithlabs/clipsmith/internal/clock"
	"github.com/clipsmithlabs/clipsmith/internal/config"
	historydomain "github.com/clipsmithlabs/clipsmith/internal/history/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	Repo  historydomain.Repository
	Clock clock.Clock
}

type Scheduler struct {
	cfg   config.Config
	log   *zap.Logger
	db    *gorm.DB
	repo  historydomain.Repository
	clock clock.Clock

	// Interval between job sweeps; overridable for tests.
	Interval time.Duration
}

func New(p Params) *Scheduler {
	return &Scheduler{
		cfg:      p.Cfg,
		log:      p.Log.Named("scheduler"),
		db:       p.DB,
		repo:     p.Repo,
		clock:    p.Clock,
		Interval: 24 * time.Hour,
	}
}

// RunForever sweeps once immediately and then on every interval tick until
// the context is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		if err := s.RetentionJob(ctx); err != nil {
			s.log.Error("retention job failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RetentionJob deletes launch records older than history.retention_days.
func (s *Scheduler) RetentionJob(ctx context.Context) error {
	days := s.cfg.History.RetentionDays
	if days <= 0 || s.cfg.History.Disabled {
		s.log.Info("history retention disabled", zap.Int("days", days))
		return nil
	}

	cutoff := s.clock.Now(ctx).AddDate(0, 0, -days)
	s.log.Info("pruning launch history", zap.Time("cutoff", cutoff))

	deleted, err := s.repo.DeleteOlderThan(ctx, s.db, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.log.Info("launch history pruned", zap.Int64("deleted", deleted))
	}
	return nil
}
