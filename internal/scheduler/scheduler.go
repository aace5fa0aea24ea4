package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/flashstack/internal/logger"
	"github.com/example/flashstack/internal/sweep"
)

// HourlySpec runs the sweep at the top of every hour
const HourlySpec = "0 * * * *"

// Sweeper runs one streak sweep
type Sweeper interface {
	Run(ctx context.Context, now time.Time) sweep.Summary
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweeper   Sweeper
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(sweeper Sweeper, log *logger.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: s,
		sweeper:   sweeper,
		log:       log,
		now:       time.Now,
	}
}

// Start schedules the hourly sweep and runs it in the background.
// Jobs stop being started once ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.scheduler.Cron(HourlySpec).Do(s.runSweep, ctx); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("sweep scheduler started", "spec", HourlySpec)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	if s.scheduler.IsRunning() {
		s.scheduler.Stop()
		s.log.Info("sweep scheduler stopped")
	}
}

// NextRun returns when the sweep runs next
func (s *Scheduler) NextRun() time.Time {
	_, t := s.scheduler.NextRun()
	return t
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	sum := s.sweeper.Run(ctx, s.now())
	if !sum.Success {
		s.log.Warn("scheduled sweep finished with errors", "errors", sum.Errors)
	}
}

// RunManualCheck forces a sweep outside the schedule
func (s *Scheduler) RunManualCheck(ctx context.Context) sweep.Summary {
	return s.sweeper.Run(ctx, s.now())
}
