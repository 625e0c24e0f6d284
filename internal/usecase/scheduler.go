package usecase

import (
	"context"

	"VCRadar/internal/ports"
)

// Scheduler binds the polling driver to the workflow use case.
type Scheduler struct {
	driver   ports.Runner
	workflow *Workflow
}

// NewScheduler returns a helper that keeps the workflow running on a cadence.
func NewScheduler(driver ports.Runner, workflow *Workflow) *Scheduler {
	return &Scheduler{driver: driver, workflow: workflow}
}

// Start blocks driving workflow cycles until the context ends or the driver
// gives up on repeated failures.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.workflow == nil {
		return nil
	}
	return s.driver.Run(ctx, s.workflow.Run)
}
