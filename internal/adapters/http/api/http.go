// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
)

// SessionHeader carries the session token on every request that needs one.
const SessionHeader = "X-Session-Token"

// IdempotencyHeader makes POST /sales safe to retry.
const IdempotencyHeader = "Idempotency-Key"

// DefaultMaxLimit bounds GET /leaderboard?limit when none is configured.
const DefaultMaxLimit = 100

const maxBodyBytes = 64 << 10

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LeaderboardDependencies
	SaleDependencies
	NoticeDependencies
	ContactDependencies
	SessionDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	logger logger.Logger

	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	salesHandler       *SalesHandler
	noticeHandler      *NoticeHandler
	contactsHandler    *ContactsHandler
	sessionHandler     *SessionHandler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets where handlers log internal failures. The default
// discards them.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers. A maxLimit <= 0
// falls back to DefaultMaxLimit.
func NewServer(deps Dependencies, maxLimit int, opts ...Option) *Server {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	s := &Server{
		logger:             logger.Nop(),
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		salesHandler:       NewSalesHandler(deps),
		noticeHandler:      NewNoticeHandler(deps, deps),
		contactsHandler:    NewContactsHandler(deps),
		sessionHandler:     NewSessionHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}

	errs := errorLog{logger: s.logger}
	s.healthHandler.errorLog = errs
	s.leaderboardHandler.errorLog = errs
	s.salesHandler.errorLog = errs
	s.noticeHandler.errorLog = errs
	s.contactsHandler.errorLog = errs
	s.sessionHandler.errorLog = errs
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	admin := s.sessionHandler.RequireAdmin

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /clients/count", MetricsMiddleware(s.leaderboardHandler.HandleClientCount, "clients_count"))

	mux.HandleFunc("POST /sales", MetricsMiddleware(s.salesHandler.HandleCreate, "sales_create"))
	mux.HandleFunc("GET /sales", MetricsMiddleware(admin(s.salesHandler.HandleList), "sales_list"))
	mux.HandleFunc("GET /sales/{id}", MetricsMiddleware(admin(s.salesHandler.HandleGet), "sales_get"))
	mux.HandleFunc("PUT /sales/{id}", MetricsMiddleware(admin(s.salesHandler.HandleUpdate), "sales_update"))
	mux.HandleFunc("DELETE /sales/{id}", MetricsMiddleware(admin(s.salesHandler.HandleDelete), "sales_delete"))

	mux.HandleFunc("GET /notice", MetricsMiddleware(s.noticeHandler.HandleGet, "notice_get"))
	mux.HandleFunc("PUT /notice", MetricsMiddleware(admin(s.noticeHandler.HandleSet), "notice_set"))
	mux.HandleFunc("DELETE /notice", MetricsMiddleware(admin(s.noticeHandler.HandleClear), "notice_clear"))
	mux.HandleFunc("POST /notice/dismiss", MetricsMiddleware(s.noticeHandler.HandleDismiss, "notice_dismiss"))

	mux.HandleFunc("GET /contacts", MetricsMiddleware(s.contactsHandler.HandleList, "contacts_list"))
	mux.HandleFunc("POST /contacts", MetricsMiddleware(admin(s.contactsHandler.HandleAdd), "contacts_add"))
	mux.HandleFunc("PUT /contacts/{id}", MetricsMiddleware(admin(s.contactsHandler.HandleUpdate), "contacts_update"))
	mux.HandleFunc("DELETE /contacts/{id}", MetricsMiddleware(admin(s.contactsHandler.HandleDelete), "contacts_delete"))

	mux.HandleFunc("POST /session", MetricsMiddleware(s.sessionHandler.HandleCreate, "session_create"))
	mux.HandleFunc("GET /session", MetricsMiddleware(s.sessionHandler.HandleGet, "session_get"))
	mux.HandleFunc("POST /session/unlock", MetricsMiddleware(s.sessionHandler.HandleUnlock, "session_unlock"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a single JSON value from a size-limited body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func sessionToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}
