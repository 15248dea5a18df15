// Package cron runs the background maintenance jobs of the cron worker.
package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/metrics"
)

const defaultTick = time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locker   Locker
	Metrics  *metrics.CronJobMetrics
	Tick     time.Duration
	LockTTL  time.Duration
}

// Service ticks and runs every job whose interval has elapsed.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locker   Locker
	metrics  *metrics.CronJobMetrics
	tick     time.Duration
	lockTTL  time.Duration
	lastRun  map[string]time.Time
	now      func() time.Time
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	tick := params.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	return &Service{
		logg:     params.Logger,
		registry: params.Registry,
		locker:   params.Locker,
		metrics:  params.Metrics,
		tick:     tick,
		lockTTL:  params.LockTTL,
		lastRun:  map[string]time.Time{},
		now:      time.Now,
	}, nil
}

// Run starts the cron loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.runDue(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runDue(ctx); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

// runDue runs each job whose interval has elapsed since its last run on this
// replica. Failures are combined so one bad job never starves the rest.
func (s *Service) runDue(ctx context.Context) error {
	var errs error
	now := s.now()
	for _, job := range s.registry.Jobs() {
		if last, ok := s.lastRun[job.Name()]; ok && now.Sub(last) < job.Interval() {
			continue
		}
		s.lastRun[job.Name()] = now
		errs = multierr.Append(errs, s.runLocked(ctx, job))
	}
	return errs
}

func (s *Service) runLocked(ctx context.Context, job Job) error {
	ttl := s.lockTTL
	if ttl <= 0 {
		ttl = job.Interval()
	}
	lease, ok, err := s.locker.TryLock(ctx, job.Name(), ttl)
	if err != nil {
		return fmt.Errorf("lock %s: %w", job.Name(), err)
	}
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "cron.job",
	})
	if !ok {
		s.logg.Info(jobCtx, "job held by another replica; skipping")
		return nil
	}
	defer func() {
		if relErr := lease.Release(ctx); relErr != nil {
			s.logg.Error(jobCtx, "failed to release cron lock", relErr)
		}
	}()

	start := time.Now()
	err = job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
	return nil
}
