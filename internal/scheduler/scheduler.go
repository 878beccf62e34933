// Package scheduler runs a named job on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is one periodic unit of work. Errors are logged, never fatal: the
// next tick always happens.
type Job func(ctx context.Context) error

// Scheduler invokes a job on every tick until its context is canceled.
type Scheduler struct {
	name     string
	interval time.Duration
	job      Job
	log      *zap.Logger
}

func New(name string, interval time.Duration, job Job, log *zap.Logger) *Scheduler {
	return &Scheduler{name: name, interval: interval, job: job, log: log}
}

// Run blocks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler started",
		zap.String("job", s.name),
		zap.Duration("interval", s.interval),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping", zap.String("job", s.name))
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", zap.String("job", s.name), zap.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.log.Error("job failed", zap.String("job", s.name), zap.Error(err))
		return
	}
	s.log.Debug("job finished",
		zap.String("job", s.name),
		zap.Duration("took", time.Since(start)),
	)
}
