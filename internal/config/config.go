// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Store backends accepted by StoreBackend.
const (
	BackendMemory = "memory"
	BackendPebble = "pebble"
	BackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TopN is how many clients the leaderboard keeps.
	TopN int `koanf:"top_n"`
	// VisibleCount is how many leading ranks disclose their totals.
	VisibleCount int `koanf:"visible_count"`
	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// EventQueueSize bounds the change-event queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many idempotency keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreBackend picks the sale store: memory, pebble or redis.
	StoreBackend   string `koanf:"store_backend"`
	PebbleDir      string `koanf:"pebble_dir"`
	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`
	// RefreshSeconds recomputes the board periodically so instances sharing
	// a redis store pick up each other's writes. Zero disables it.
	RefreshSeconds int `koanf:"refresh_seconds"`

	// AdminKeyHash is the bcrypt hash of the key that unlocks admin sessions.
	// Empty disables unlocking.
	AdminKeyHash string `koanf:"admin_key_hash"`
	// SessionTTLMinutes is the idle lifetime of a session.
	SessionTTLMinutes int `koanf:"session_ttl_minutes"`

	// LivePingSeconds is the websocket keep-alive interval.
	LivePingSeconds int `koanf:"live_ping_seconds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "json",
		Addr:                ":9080",
		TopN:                10,
		VisibleCount:        3,
		MaxLeaderboardLimit: 100,
		EventQueueSize:      1_024,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          10_000,
		StoreBackend:        BackendMemory,
		PebbleDir:           "data/pebble",
		RedisAddr:           "localhost:6379",
		RedisKeyPrefix:      "ranking",
		SessionTTLMinutes:   60 * 24,
		LivePingSeconds:     30,
	}
}

// SessionTTL returns SessionTTLMinutes as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// LivePing returns LivePingSeconds as a duration.
func (c *Config) LivePing() time.Duration {
	return time.Duration(c.LivePingSeconds) * time.Second
}

// Refresh returns RefreshSeconds as a duration.
func (c *Config) Refresh() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TopN < 0 || c.VisibleCount < 0:
		return fmt.Errorf("%w: top_n and visible_count must not be negative", ErrInvalidConfig)
	case c.VisibleCount > c.TopN:
		return fmt.Errorf("%w: visible_count %d exceeds top_n %d", ErrInvalidConfig, c.VisibleCount, c.TopN)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.EventQueueSize <= 0 || c.WorkerCount <= 0 || c.DedupeSize <= 0:
		return fmt.Errorf("%w: queue_size, worker_count and dedupe_size must be positive", ErrInvalidConfig)
	case c.SessionTTLMinutes <= 0 || c.LivePingSeconds <= 0:
		return fmt.Errorf("%w: session_ttl_minutes and live_ping_seconds must be positive", ErrInvalidConfig)
	case c.RefreshSeconds < 0:
		return fmt.Errorf("%w: refresh_seconds must not be negative", ErrInvalidConfig)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendPebble:
		if strings.TrimSpace(c.PebbleDir) == "" {
			return fmt.Errorf("%w: pebble backend needs pebble_dir", ErrInvalidConfig)
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("%w: redis backend needs redis_addr", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}
