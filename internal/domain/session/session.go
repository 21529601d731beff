// Package session tracks anonymous viewer sessions: whether the viewer
// unlocked admin access and which notice version they dismissed.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
	"github.com/Clinico01/ranking-de-clientes3/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTTL is the idle lifetime of a session.
const DefaultTTL = 24 * time.Hour

const sweepInterval = time.Minute

// Session is the server-side state behind a token.
type Session struct {
	Token           string    `json:"token"`
	Admin           bool      `json:"admin"`
	DismissedNotice uint64    `json:"dismissed_notice"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Manager issues and resolves sessions. It is safe for concurrent use.
type Manager struct {
	ttl       time.Duration
	adminHash []byte
	now       func() time.Time
	logger    logger.Logger

	mu        sync.Mutex
	sessions  map[string]*Session
	lastSweep time.Time
}

// NewManager creates a Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   logger.Nop(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSweep = m.now()
	return m
}

// HashKey produces the bcrypt hash to configure as admin_key_hash.
func HashKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(b), err
}

// UnlockEnabled reports whether an admin key hash is configured.
func (m *Manager) UnlockEnabled() bool { return len(m.adminHash) > 0 }

// Create issues a fresh non-admin session.
func (m *Manager) Create(_ context.Context) Session {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(now)

	s := &Session{
		Token:     uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.sessions[s.Token] = s
	metrics.UpdateSessionsActive(len(m.sessions))
	return *s
}

// Get resolves a token and extends its expiry.
func (m *Manager) Get(_ context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookupLocked(token)
	if err != nil {
		return Session{}, err
	}
	return *s, nil
}

// Unlock grants admin rights to the session when key matches the configured
// hash.
func (m *Manager) Unlock(ctx context.Context, token, key string) (Session, error) {
	if !m.UnlockEnabled() {
		metrics.RecordUnlockAttempt("disabled")
		return Session{}, ErrUnlockDisabled
	}

	m.mu.Lock()
	_, err := m.lookupLocked(token)
	m.mu.Unlock()
	if err != nil {
		return Session{}, err
	}

	// bcrypt is slow on purpose; compare outside the lock.
	if err := bcrypt.CompareHashAndPassword(m.adminHash, []byte(key)); err != nil {
		metrics.RecordUnlockAttempt("denied")
		m.logger.Warn(ctx, "admin unlock denied", logger.String("session", shortToken(token)))
		return Session{}, ErrInvalidKey
	}

	// The session may have expired or been swept while unlocked.
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookupLocked(token)
	if err != nil {
		return Session{}, err
	}
	s.Admin = true
	metrics.RecordUnlockAttempt("granted")
	m.logger.Info(ctx, "admin unlock granted", logger.String("session", shortToken(token)))
	return *s, nil
}

// DismissNotice records that the session hid the notice at version.
func (m *Manager) DismissNotice(_ context.Context, token string, version uint64) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookupLocked(token)
	if err != nil {
		return Session{}, err
	}
	if version > s.DismissedNotice {
		s.DismissedNotice = version
	}
	return *s, nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// lookupLocked must be called with m.mu held.
func (m *Manager) lookupLocked(token string) (*Session, error) {
	now := m.now()
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	if !now.Before(s.ExpiresAt) {
		delete(m.sessions, token)
		metrics.UpdateSessionsActive(len(m.sessions))
		return nil, ErrNotFound
	}
	s.ExpiresAt = now.Add(m.ttl)
	return s, nil
}

// sweepLocked drops expired sessions at most once per sweepInterval.
func (m *Manager) sweepLocked(now time.Time) {
	if now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now
	for token, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, token)
		}
	}
	metrics.UpdateSessionsActive(len(m.sessions))
}

func shortToken(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
