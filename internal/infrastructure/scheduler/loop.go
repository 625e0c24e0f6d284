package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"VCRadar/internal/ports"
)

// ErrFailureBudgetExhausted signals that too many cycles failed in a row and
// the process should terminate rather than keep burning API quota.
var ErrFailureBudgetExhausted = errors.New("consecutive failure budget exhausted")

const (
	defaultInterval    = time.Hour
	defaultMaxFailures = 10
)

// Loop runs a job immediately and then on a fixed cadence. A success resets
// the failure counter; reaching the budget aborts the whole loop.
type Loop struct {
	interval    time.Duration
	maxFailures int
	logger      *slog.Logger
}

var _ ports.Runner = (*Loop)(nil)

// NewLoop builds a polling driver. Non-positive arguments fall back to an
// hourly cadence and a budget of ten failures.
func NewLoop(interval time.Duration, maxFailures int, logger *slog.Logger) *Loop {
	if interval <= 0 {
		interval = defaultInterval
	}
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	return &Loop{interval: interval, maxFailures: maxFailures, logger: logger}
}

// Run blocks until the context is cancelled (returns nil) or the failure
// budget is exhausted (returns ErrFailureBudgetExhausted).
func (l *Loop) Run(ctx context.Context, job func(context.Context) error) error {
	if job == nil {
		return nil
	}

	failures := 0
	execute := func() error {
		if err := job(ctx); err != nil {
			failures++
			l.error("cycle failed", "consecutive_failures", failures, "budget", l.maxFailures, "error", err)
			if failures >= l.maxFailures {
				return fmt.Errorf("%w: %d cycles", ErrFailureBudgetExhausted, failures)
			}
			return nil
		}
		failures = 0
		return nil
	}

	if err := execute(); err != nil {
		return err
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.info("scheduler stopped")
			return nil
		case <-ticker.C:
			if err := execute(); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) info(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}

func (l *Loop) error(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Error(msg, args...)
	}
}
