package repository

import (
	"time"

	"github.com/google/uuid"
)

type options struct {
	now       func() time.Time
	newID     func() string
	keyPrefix string
	sync      bool
}

func defaultOptions() options {
	return options{
		now:       time.Now,
		newID:     uuid.NewString,
		keyPrefix: "ranking",
	}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides how record IDs are generated.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// WithKeyPrefix sets the key namespace used by the Redis store.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithSync makes Pebble writes fsync before returning.
func WithSync(enabled bool) Option {
	return func(o *options) {
		o.sync = enabled
	}
}
