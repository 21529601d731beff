// Package live pushes every newly computed leaderboard to websocket clients.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
	"github.com/Clinico01/ranking-de-clientes3/pkg/metrics"
	"github.com/gorilla/websocket"
)

// MessageLeaderboard is the type of messages carrying a board.
const MessageLeaderboard = "leaderboard"

// DefaultPingInterval is how often idle connections are pinged.
const DefaultPingInterval = 30 * time.Second

const (
	defaultSendBuffer = 16
	writeWait         = 10 * time.Second
	maxMessageSize    = 512
)

// Message is the envelope sent to clients.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// BoardSource yields the board a new client receives on connect.
type BoardSource interface {
	Board() (types.Board, bool)
}

// Hub tracks websocket clients and fans boards out to them. Each client has
// a bounded send buffer; a client whose buffer is full is disconnected
// instead of stalling the broadcast.
type Hub struct {
	source       BoardSource
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	sendBuffer   int
	logger       logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	remote string
	// version of the newest board queued for this client
	version uint64
}

// NewHub creates a Hub that greets new clients with source's current board.
func NewHub(source BoardSource, opts ...Option) *Hub {
	h := &Hub{
		source:       source,
		pingInterval: DefaultPingInterval,
		sendBuffer:   defaultSendBuffer,
		logger:       logger.Nop(),
		clients:      make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func encode(b types.Board) ([]byte, error) {
	return json.Marshal(Message{Type: MessageLeaderboard, Payload: b})
}

// Publish queues b for every connected client. A client that already holds
// this version or a newer one is skipped, so boards never go backwards on
// the wire.
func (h *Hub) Publish(b types.Board) {
	msg, err := encode(b)
	if err != nil {
		h.logger.Error(context.Background(), "encode board", logger.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for c := range h.clients {
		if b.Version <= c.version {
			continue
		}
		select {
		case c.send <- msg:
			c.version = b.Version
		default:
			h.logger.Warn(context.Background(), "dropping slow live client", logger.String("remote", c.remote))
			metrics.RecordLiveDroppedClient()
			h.removeLocked(c)
		}
	}
	metrics.RecordLiveBroadcast()
	metrics.UpdateLiveSubscribers(len(h.clients))
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	metrics.UpdateLiveSubscribers(0)
}

// ServeHTTP upgrades the request and streams boards until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	c := &client{
		conn:   conn,
		send:   make(chan []byte, h.sendBuffer),
		remote: r.RemoteAddr,
	}
	if err := h.register(c); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.logger.Debug(r.Context(), "live client connected", logger.String("remote", c.remote))

	go h.writePump(c)
	h.readPump(c)

	h.logger.Debug(r.Context(), "live client disconnected", logger.String("remote", c.remote))
}

// register adds c and queues the current board as its first message.
func (h *Hub) register(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if b, ok := h.source.Board(); ok {
		msg, err := encode(b)
		if err == nil {
			c.send <- msg
			c.version = b.Version
		}
	}
	h.clients[c] = struct{}{}
	metrics.UpdateLiveSubscribers(len(h.clients))
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
	metrics.UpdateLiveSubscribers(len(h.clients))
}

// removeLocked must be called with h.mu held. Closing send makes the write
// pump say goodbye and close the connection.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames; it exists to process pongs and notice
// the peer going away.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	pongWait := 2 * h.pingInterval
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
