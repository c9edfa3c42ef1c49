package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/settings"
)

const DefaultTick = time.Minute

type Runner interface {
	RunScheduled(ctx context.Context) domain.ProcessingReport
	Administration(ctx context.Context) (domain.ServiceAdministration, error)
	LastRunStarted(ctx context.Context) (time.Time, bool, error)
}

// Scheduler re-reads the service administration document on every tick and
// starts a run once the service is activated and runEveryHours have passed
// since the previous run. After a restart the previous run is the last one
// recorded, whatever triggered it.
type Scheduler struct {
	tick    time.Duration
	runner  Runner
	logger  *slog.Logger
	clock   func() time.Time
	lastRun time.Time
}

func NewScheduler(runner Runner, tick time.Duration, logger *slog.Logger) *Scheduler {
	if tick <= 0 {
		tick = DefaultTick
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{tick: tick, runner: runner, logger: logger, clock: time.Now}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.restoreLastRun(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runIfDue(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) restoreLastRun(ctx context.Context) {
	started, ok, err := s.runner.LastRunStarted(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load last run", "error", err)
		return
	}
	if ok {
		s.lastRun = started
		s.logger.InfoContext(ctx, "restored last run", "started_at", started)
	}
}

// runIfDue reports whether a run was started.
func (s *Scheduler) runIfDue(ctx context.Context) bool {
	admin, err := s.runner.Administration(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read service administration", "error", err)
		return false
	}
	if !admin.ServiceActivated {
		return false
	}

	every := time.Duration(settings.RunEveryHours(admin)) * time.Hour
	now := s.clock()
	if !s.lastRun.IsZero() && now.Sub(s.lastRun) < every {
		return false
	}

	s.lastRun = now
	s.logger.InfoContext(ctx, "starting scheduled abandoned cart run", "run_every_hours", every.Hours())
	report := s.runner.RunScheduled(ctx)
	if !report.Success {
		s.logger.ErrorContext(ctx, "scheduled run failed", "run_id", report.RunID, "error", report.Error)
		return true
	}
	s.logger.InfoContext(ctx, "scheduled run finished", "run_id", report.RunID,
		"processed", report.TotalProcessed, "created", report.TotalCreated)
	return true
}
