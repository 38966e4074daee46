package broker

import (
	"log/slog"

	"github.com/aretw0/scenestack/internal/logging"
)

// AsyncStrategy controls how an async publish fans out to its subscribers.
type AsyncStrategy int

const (
	// Sequential awaits subscribers one by one in registration order and stops at the first error.
	Sequential AsyncStrategy = iota
	// Parallel starts every subscriber at once and returns the first error after all finish.
	Parallel
)

type options struct {
	strategy AsyncStrategy
	logger   *slog.Logger
	name     string
}

// Option configures a Builder (and the Broker it builds).
type Option func(*options)

// WithAsyncStrategy sets the fan-out strategy of async publishers.
func WithAsyncStrategy(s AsyncStrategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithName labels the broker in logs. Useful when several brokers coexist.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func newOptions(opts []Option) options {
	o := options{
		strategy: Sequential,
		logger:   logging.NewNop(),
		name:     "default",
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With("broker", o.name)
	return o
}
