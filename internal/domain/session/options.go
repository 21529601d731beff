package session

import (
	"time"

	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithTTL sets the idle lifetime of a session.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithAdminKeyHash sets the bcrypt hash that Unlock compares against. An
// empty hash disables unlocking.
func WithAdminKeyHash(hash string) Option {
	return func(m *Manager) {
		m.adminHash = []byte(hash)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger used for unlock auditing.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}
