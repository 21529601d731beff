package api

import (
	"context"
	"net/http"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/session"
)

// SessionDependencies defines the interface for session operations.
type SessionDependencies interface {
	CreateSession(ctx context.Context) session.Session
	GetSession(ctx context.Context, token string) (session.Session, error)
	UnlockSession(ctx context.Context, token, key string) (session.Session, error)
	DismissNotice(ctx context.Context, token string, version uint64) (session.Session, error)
}

// SessionHandler handles /session requests and guards admin routes.
type SessionHandler struct {
	errorLog
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

type unlockRequest struct {
	Key string `json:"key"`
}

// HandleCreate handles POST /session.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.deps.CreateSession(r.Context()))
}

// HandleGet handles GET /session.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	s, err := h.resolve(r)
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleUnlock handles POST /session/unlock. The key is checked server-side
// and never echoed back.
func (h *SessionHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	const op = "api.unlock_session"
	token := sessionToken(r)
	if token == "" {
		h.respondError(w, r, NewKind(op, ErrUnauthorized))
		return
	}
	var req unlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	s, err := h.deps.UnlockSession(r.Context(), token, req.Key)
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// RequireAdmin rejects requests whose session has not been unlocked.
func (h *SessionHandler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.require_admin"
		s, err := h.resolve(r)
		if err != nil {
			h.respondError(w, r, Wrap(op, err))
			return
		}
		if !s.Admin {
			h.respondError(w, r, NewKind(op, ErrForbidden))
			return
		}
		next(w, r)
	}
}

func (h *SessionHandler) resolve(r *http.Request) (session.Session, error) {
	token := sessionToken(r)
	if token == "" {
		return session.Session{}, ErrUnauthorized
	}
	return h.deps.GetSession(r.Context(), token)
}
