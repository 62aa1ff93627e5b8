package scheduler

import (
	"context"
	"fmt"
	"os"

	"github.com/robfig/cron/v3"

	"topicrank/pkg/scoring"
)

// Scheduler runs the batch scoring job on a cron schedule.
type Scheduler struct {
	engine   *scoring.Engine
	cronSpec string
}

// New creates a scheduler. cronSpec is a standard 5-field expression.
func New(engine *scoring.Engine, cronSpec string) *Scheduler {
	if cronSpec == "" {
		cronSpec = "0 3 * * *"
	}
	return &Scheduler{engine: engine, cronSpec: cronSpec}
}

// Run starts the schedule and blocks until ctx is cancelled. One batch
// runs immediately on start. A batch failure is logged and the
// schedule keeps going.
func (s *Scheduler) Run(ctx context.Context) error {
	job := func() {
		fmt.Fprintln(os.Stderr, "scheduler: scoring all topics...")
		if err := s.engine.ScoreAll(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "scheduler: batch failed: %v\n", err)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(s.cronSpec, job); err != nil {
		return fmt.Errorf("parse cron spec %q: %w", s.cronSpec, err)
	}

	job()

	fmt.Fprintf(os.Stderr, "scheduler: running (cron %q)\n", s.cronSpec)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	fmt.Fprintln(os.Stderr, "scheduler: stopped")
	return ctx.Err()
}
