package live

import (
	"net/http"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
)

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithPingInterval sets how often idle connections are pinged.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithSendBuffer sets how many messages may queue per client before the
// client is dropped as too slow.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithCheckOrigin overrides the websocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) {
		if fn != nil {
			h.upgrader.CheckOrigin = fn
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
