// Package notification hands emails to the external delivery service.
//
// Delivery is best effort. Callers log and count a Dispatch error and carry on; no
// state they have already persisted depends on it.
package notification

import (
	"context"
	"log/slog"
)

// Dispatcher sends one email.
type Dispatcher interface {
	Dispatch(ctx context.Context, email, subject, body string) error
}

// LogDispatcher writes emails to the log instead of sending them. Used when no
// message broker is configured.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, email, subject, body string) error {
	d.logger.InfoContext(ctx, "email dispatched",
		"to", email,
		"subject", subject,
		"body_bytes", len(body),
	)
	return nil
}
