package watch

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler forces periodic index refreshes on a cron schedule, as a
// safety net for changes the filesystem watcher missed (network
// mounts, missed events under load).
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	targets  map[string]Refresher
	logger   *zap.Logger
}

// NewScheduler creates a Scheduler. An empty schedule disables it.
func NewScheduler(schedule string, targets map[string]Refresher, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		schedule: schedule,
		targets:  targets,
		logger:   logger,
	}
}

// Start validates the schedule and begins running. Refreshes use ctx,
// so canceling it stops in-flight work; call Stop to halt the cron.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedule == "" {
		s.logger.Info("Reindex schedule not configured, scheduler disabled")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid reindex schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() { s.runRefresh(ctx) })
	if err != nil {
		return fmt.Errorf("schedule reindex: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Reindex scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the cron scheduler. Running jobs finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runRefresh(ctx context.Context) {
	for name, r := range s.targets {
		if err := r.Refresh(ctx); err != nil {
			s.logger.Error("Scheduled refresh failed",
				zap.String("corpus", name), zap.Error(err))
			continue
		}
		s.logger.Info("Scheduled refresh done", zap.String("corpus", name))
	}
}
