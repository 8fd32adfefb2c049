// Package escalation runs the periodic pass that widens the search radius of requests
// nobody has accepted.
package escalation

import (
	"context"
	"log/slog"
	"time"

	"bloodlink/internal/bloodrequest/metrics"
	"bloodlink/internal/bloodrequest/service"
)

const DefaultInterval = 5 * time.Minute

// Escalator is the service operation a tick invokes.
type Escalator interface {
	EscalateStale(ctx context.Context, now time.Time) (service.EscalationReport, error)
}

type Scheduler struct {
	escalator Escalator
	lock      Lock
	interval  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLock(l Lock) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.lock = l
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithClock replaces time.Now for ticks started by Start.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func New(escalator Escalator, opts ...Option) *Scheduler {
	s := &Scheduler{
		escalator: escalator,
		lock:      NoopLock{},
		interval:  DefaultInterval,
		logger:    slog.Default(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs a tick every interval until ctx is cancelled. Tick failures are logged and
// never stop the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "escalation scheduler started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx, s.clock()); err != nil {
				s.logger.ErrorContext(ctx, "escalation tick failed", "error", err)
			}
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "escalation scheduler stopped")
			return ctx.Err()
		}
	}
}

// RunOnce performs one tick at now. When another replica holds the lock it returns an
// empty report and no error.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (report service.EscalationReport, err error) {
	release, ok, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, err
	}
	if !ok {
		s.logger.DebugContext(ctx, "escalation tick skipped, lock held elsewhere")
		return report, nil
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			s.logger.WarnContext(ctx, "failed to release scheduler lock", "error", relErr)
		}
	}()

	start := time.Now()
	report, err = s.escalator.EscalateStale(ctx, now)
	if s.metrics != nil {
		s.metrics.ObserveSchedulerTick(start)
		for range report.Failed {
			s.metrics.IncrementSchedulerFailures()
		}
	}
	if err != nil {
		return report, err
	}
	if report.Scanned > 0 {
		s.logger.InfoContext(ctx, "escalation tick completed",
			"scanned", report.Scanned,
			"escalated", report.Escalated,
			"skipped", report.Skipped,
			"failed", report.Failed,
		)
	}
	return report, nil
}
