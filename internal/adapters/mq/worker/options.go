package worker

import (
	"github.com/okian/osker/pkg/logger"
)

// Option applies a configuration option to a worker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithAccumulate replaces the partition accumulator.
func WithAccumulate(fn AccumulateFunc) Option {
	return func(w *InMemoryWorker) {
		if fn != nil {
			w.accumulate = fn
		}
	}
}
