package service

import (
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/adapters/repository"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/session"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending change events.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithTopN sets how many clients the leaderboard keeps.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.topN = n
		}
	}
}

// WithVisibleCount sets how many leading ranks disclose their totals.
func WithVisibleCount(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.visibleCount = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the persistence backend. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSessionManager sets the session manager.
func WithSessionManager(m *session.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.sessions = m
		}
	}
}

// WithBoardListener registers fn to receive every accepted board.
func WithBoardListener(fn func(types.Board)) Option {
	return func(s *Service) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}

// WithRefreshInterval makes the service recompute the board periodically,
// picking up writes made by other instances sharing the store. Zero disables.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}
