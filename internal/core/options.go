// Package core provides the runtime core tier of the statechart engine.
// Options for configuring Machine instances.
package core

import (
	"log/slog"
	"time"

	"github.com/comalice/formchart/internal/logging"
)

type options struct {
	logger    *slog.Logger
	publisher Publisher
	now       func() time.Time
}

// Option applies configuration to a Machine via the functional options pattern.
type Option func(*options)

func defaultOptions() options {
	return options{
		logger: logging.NewNop(),
		now:    time.Now,
	}
}

// WithLogger configures the Machine's debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPublisher configures the Machine with a Publisher notified of every
// fired or ignored event.
func WithPublisher(p Publisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

// WithClock configures the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
