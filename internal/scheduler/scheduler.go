// Package scheduler runs recurring maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"time"

	"clickup-bridge/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of recurring work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function into a Job
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// Scheduler wraps a cron runner with logging and per-job timeouts
type Scheduler struct {
	cron       *cron.Cron
	jobTimeout time.Duration
	logger     logger.Logger
}

// New creates a stopped scheduler
func New(log logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		jobTimeout: 10 * time.Minute,
		logger:     log,
	}
}

// Register schedules a job on a standard five-field cron expression
func (s *Scheduler) Register(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()

		start := time.Now()
		s.logger.Info("scheduled job starting", "job", job.Name())

		if err := job.Run(ctx); err != nil {
			s.logger.Error("scheduled job failed",
				"job", job.Name(),
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
			return
		}
		s.logger.Info("scheduled job completed",
			"job", job.Name(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
	return err
}

// Start begins running registered jobs
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
