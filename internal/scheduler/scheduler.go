// Package scheduler drives the recurring ingestion and alert expiry
// cycles.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rajasatyajit/DisasterWatch/config"
	"github.com/rajasatyajit/DisasterWatch/internal/logger"
)

// Runner is the work the scheduler drives
type Runner interface {
	Ingest(ctx context.Context) error
	Sweep(ctx context.Context) error
}

// Scheduler runs ingestion and sweep jobs on cron cadences. A cycle
// that is still running when its next slot arrives is skipped rather
// than overlapped.
type Scheduler struct {
	cfg    config.SchedulerConfig
	runner Runner
	cron   *cron.Cron
}

// New creates a scheduler for the given runner
func New(cfg config.SchedulerConfig, runner Runner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
	}
}

// Start registers the cron entries and launches the delayed initial
// run. It returns after scheduling; jobs run on the cron goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.IngestSpec, func() {
		if err := s.runner.Ingest(ctx); err != nil {
			logger.Error("Scheduled ingestion failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule ingest %q: %w", s.cfg.IngestSpec, err)
	}

	if _, err := s.cron.AddFunc(s.cfg.SweepSpec, func() {
		if err := s.runner.Sweep(ctx); err != nil {
			logger.Error("Scheduled sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.cfg.SweepSpec, err)
	}

	s.cron.Start()
	logger.Info("Scheduler started",
		"ingest_spec", s.cfg.IngestSpec,
		"sweep_spec", s.cfg.SweepSpec,
		"startup_delay", s.cfg.StartupDelay,
	)

	// Initial run shortly after boot so a fresh deployment has data
	// before the first cron slot.
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.StartupDelay):
		}
		if err := s.runner.Ingest(ctx); err != nil {
			logger.Error("Startup ingestion failed", "error", err)
		}
	}()

	return nil
}

// Stop halts the cron loop and waits for any running job to finish
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	logger.Info("Scheduler stopped")
}
