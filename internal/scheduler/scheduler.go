// Package scheduler runs the periodic consolidation and drain jobs.
// Jobs may overlap each other and manual HTTP triggers; correctness
// comes from the store predicates (message_id IS NULL, state =
// 'Pending'), not from an in-process lock.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"alert-dispatch-service/internal/logging"
)

// Consolidator is the consolidation trigger surface.
type Consolidator interface {
	Consolidate(ctx context.Context, lookbackHours int) (int, error)
}

// Drainer is the delivery trigger surface.
type Drainer interface {
	DrainPending(ctx context.Context) (succeeded, failed int, err error)
}

// Config is the scheduler section of the application config.
type Config struct {
	Enabled         bool
	ConsolidateCron string
	DrainCron       string
	Timezone        string
	LookbackHours   int
}

type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	enabled bool
	logger  *logging.Logger
}

// New wires the two jobs: a low-frequency consolidate-then-drain and a
// high-frequency drain-only pass that flushes backlog from any source.
func New(cfg Config, consolidator Consolidator, drainer Drainer, logger *logging.Logger) (*Scheduler, error) {
	s := &Scheduler{cfg: cfg, enabled: cfg.Enabled, logger: logger}
	if !cfg.Enabled {
		logger.Warnf("alert scheduler disabled by configuration")
		return s, nil
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
	}
	c := cron.New(cron.WithLocation(loc))

	if _, err := c.AddFunc(cfg.ConsolidateCron, func() {
		ctx := context.Background()
		logger.Infof("[scheduler] starting consolidation run")
		created, err := consolidator.Consolidate(ctx, cfg.LookbackHours)
		if err != nil {
			logger.Errorf("[scheduler] consolidation failed: %v", err)
			return
		}
		logger.Infof("[scheduler] consolidation created %d message(s)", created)
		if created > 0 {
			ok, fail, err := drainer.DrainPending(ctx)
			if err != nil {
				logger.Errorf("[scheduler] post-consolidation drain failed: %v", err)
				return
			}
			logger.Infof("[scheduler] post-consolidation drain: %d succeeded, %d failed", ok, fail)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid consolidation cron %q: %w", cfg.ConsolidateCron, err)
	}

	if _, err := c.AddFunc(cfg.DrainCron, func() {
		ok, fail, err := drainer.DrainPending(context.Background())
		if err != nil {
			logger.Errorf("[scheduler] drain failed: %v", err)
			return
		}
		if ok > 0 || fail > 0 {
			logger.Infof("[scheduler] drain: %d succeeded, %d failed", ok, fail)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid drain cron %q: %w", cfg.DrainCron, err)
	}

	s.cron = c
	return s, nil
}

// Start launches the cron jobs. A disabled scheduler is a no-op.
func (s *Scheduler) Start() {
	if !s.enabled {
		return
	}
	s.cron.Start()
	s.logger.Infof("scheduler started: consolidate %q, drain %q (%s)",
		s.cfg.ConsolidateCron, s.cfg.DrainCron, s.cfg.Timezone)
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if !s.enabled || s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Infof("scheduler stopped")
}
