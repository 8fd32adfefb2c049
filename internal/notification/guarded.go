package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bloodlink/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while the delivery service is considered down.
var ErrCircuitOpen = errors.New("notification circuit open")

const defaultTimeout = 5 * time.Second

// Guarded wraps a Dispatcher with a per-call timeout, a circuit breaker and metrics.
// A panicking dispatcher is reported as an error.
type Guarded struct {
	next    Dispatcher
	breaker *circuit.Breaker
	timeout time.Duration
	metrics *Metrics
	logger  *slog.Logger
}

type GuardOption func(*Guarded)

func WithTimeout(d time.Duration) GuardOption {
	return func(g *Guarded) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) GuardOption {
	return func(g *Guarded) {
		g.breaker = b
	}
}

func WithMetrics(m *Metrics) GuardOption {
	return func(g *Guarded) {
		g.metrics = m
	}
}

func WithLogger(logger *slog.Logger) GuardOption {
	return func(g *Guarded) {
		g.logger = logger
	}
}

func NewGuarded(next Dispatcher, opts ...GuardOption) *Guarded {
	g := &Guarded{
		next:    next,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.breaker == nil {
		g.breaker = circuit.New("notification")
	}
	return g
}

func (g *Guarded) Dispatch(ctx context.Context, email, subject, body string) error {
	if !g.breaker.Allow() {
		g.metrics.incDropped()
		return ErrCircuitOpen
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.call(ctx, email, subject, body); err != nil {
		g.metrics.incFailed()
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.metrics.setBreakerOpen(true)
			g.logger.WarnContext(ctx, "notification circuit opened",
				"breaker", g.breaker.Name(),
				"error", err,
			)
		}
		return err
	}

	g.metrics.incSent()
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.metrics.setBreakerOpen(false)
		g.logger.InfoContext(ctx, "notification circuit closed", "breaker", g.breaker.Name())
	}
	return nil
}

func (g *Guarded) call(ctx context.Context, email, subject, body string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher panic: %v", r)
		}
	}()
	return g.next.Dispatch(ctx, email, subject, body)
}
