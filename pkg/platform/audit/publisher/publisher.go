// Package publisher delivers audit events to a store, synchronously or through a
// bounded buffer drained by a background goroutine.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "bloodlink/pkg/domain"
	audit "bloodlink/pkg/platform/audit"
)

// ErrBufferFull is returned by Emit in async mode when the buffer cannot take the event.
var ErrBufferFull = errors.New("audit buffer full")

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event audit.Event) error
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]audit.Event, error)
}

type Publisher struct {
	store  Store
	logger *slog.Logger

	bufferSize int
	events     chan audit.Event
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with a buffer of n events.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.bufferSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.bufferSize > 0 {
		p.events = make(chan audit.Event, p.bufferSize)
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit stamps missing timestamp and category, then stores the event.
// In async mode a full buffer returns ErrBufferFull immediately, or ctx.Err()
// if ctx is already done.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.events == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.events <- event:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.logger.WarnContext(ctx, "audit buffer full, dropping event",
		"action", event.Action,
		"blood_request_id", event.BloodRequestID.String(),
	)
	return ErrBufferFull
}

// List returns events recorded for a blood request in emission order.
func (p *Publisher) List(ctx context.Context, requestID id.RequestID) ([]audit.Event, error) {
	return p.store.ListByRequest(ctx, requestID)
}

// Close stops accepting async events and waits for the buffer to drain.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.events != nil {
			close(p.events)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.store.Append(ctx, event); err != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"blood_request_id", event.BloodRequestID.String(),
				"error", err,
			)
		}
		cancel()
	}
}
