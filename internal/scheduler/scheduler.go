// Package scheduler runs periodic background jobs on cron expressions.
//
// Jobs run on the standard 5-field cron grammar (minute, hour, day of month,
// month, day of week) evaluated in the scheduler's zone, so "* * * * *"
// fires on every minute boundary. A panicking job is recovered and logged,
// and a job still running when its next activation comes due is skipped.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// EveryMinute is the cron expression of a job run at each minute boundary.
const EveryMinute = "* * * * *"

// Opts holds configuration options for a Scheduler.
type Opts struct {
	Location *time.Location
}

// Option configures a Scheduler.
type Option func(*Opts)

// WithLocation evaluates cron expressions in loc instead of the local zone.
func WithLocation(loc *time.Location) Option {
	return func(o *Opts) {
		o.Location = loc
	}
}

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	cfg := Opts{Location: time.Local}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := slogLogger{}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(cfg.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Start()
	slog.Debug("Scheduler started", "location", cfg.Location)
	return &Scheduler{cron: c}
}

// AddJob schedules task under name using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(name, expr string, task func()) error {
	id, err := s.cron.AddFunc(expr, task)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for job %s: %w", expr, name, err)
	}
	slog.Info("Scheduler.AddJob succeeded", "job", name, "expr", expr, "entry", id)
	return nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Stop stops the cron scheduler and waits for running jobs to finish, or for
// ctx to be done, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Debug("Scheduler stopped")
	case <-ctx.Done():
		slog.Warn("Scheduler.Stop: gave up waiting for running jobs", "error", ctx.Err())
	}
}

// slogLogger routes cron's internal logging to slog.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
