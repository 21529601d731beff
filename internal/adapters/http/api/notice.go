package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
)

// NoticeDependencies defines the interface for notice operations.
type NoticeDependencies interface {
	Notice(ctx context.Context) (model.Notice, error)
	SetNotice(ctx context.Context, message string) (model.Notice, error)
	ClearNotice(ctx context.Context) (model.Notice, error)
}

// NoticeHandler handles /notice requests.
type NoticeHandler struct {
	errorLog
	deps     NoticeDependencies
	sessions SessionDependencies
}

// NewNoticeHandler creates a new notice handler.
func NewNoticeHandler(deps NoticeDependencies, sessions SessionDependencies) *NoticeHandler {
	return &NoticeHandler{deps: deps, sessions: sessions}
}

type noticeResponse struct {
	Message   string    `json:"message"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Visible   bool      `json:"visible"`
}

type noticeRequest struct {
	Message string `json:"message"`
}

type dismissRequest struct {
	Version *uint64 `json:"version"`
}

func toNoticeResponse(n model.Notice, dismissed uint64) noticeResponse {
	return noticeResponse{
		Message:   n.Message,
		Version:   n.Version,
		UpdatedAt: n.UpdatedAt,
		Visible:   n.Message != "" && n.Version > dismissed,
	}
}

// HandleGet handles GET /notice. The notice is reported hidden when the
// caller's session dismissed this version or a later one. An unknown token
// is treated as no session.
func (h *NoticeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_notice"
	n, err := h.deps.Notice(r.Context())
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	var dismissed uint64
	if token := sessionToken(r); token != "" {
		if s, err := h.sessions.GetSession(r.Context(), token); err == nil {
			dismissed = s.DismissedNotice
		}
	}
	writeJSON(w, http.StatusOK, toNoticeResponse(n, dismissed))
}

// HandleSet handles PUT /notice.
func (h *NoticeHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_notice"
	var req noticeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	n, err := h.deps.SetNotice(r.Context(), req.Message)
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toNoticeResponse(n, 0))
}

// HandleClear handles DELETE /notice.
func (h *NoticeHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	const op = "api.clear_notice"
	n, err := h.deps.ClearNotice(r.Context())
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toNoticeResponse(n, 0))
}

// HandleDismiss handles POST /notice/dismiss. Without a version in the body
// the current notice version is dismissed.
func (h *NoticeHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	const op = "api.dismiss_notice"
	token := sessionToken(r)
	if token == "" {
		h.respondError(w, r, NewKind(op, ErrUnauthorized))
		return
	}
	var req dismissRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.respondError(w, r, WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	n, err := h.deps.Notice(r.Context())
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	version := n.Version
	if req.Version != nil {
		version = *req.Version
	}
	s, err := h.sessions.DismissNotice(r.Context(), token, version)
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toNoticeResponse(n, s.DismissedNotice))
}
