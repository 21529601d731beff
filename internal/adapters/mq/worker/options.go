package worker

import (
	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
)

// Option configures an InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName labels the worker in logs. The pool numbers its workers
// "recompute-0", "recompute-1", and so on.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets the logger; the worker adds its name to it.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
