// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, limit int) (types.Board, error)
	ClientCount(ctx context.Context) (int, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	errorLog
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

type countResponse struct {
	Clients int `json:"clients"`
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N requests. Without a
// limit the whole board is returned.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	n := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			h.respondError(w, r, NewKind(op, ErrBadRequest))
			return
		}
		if v > h.maxLimit {
			h.respondError(w, r, NewKind(op, ErrLimitExceeded))
			return
		}
		n = v
	}
	board, err := h.deps.Leaderboard(r.Context(), n)
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleClientCount handles GET /clients/count requests.
func (h *LeaderboardHandler) HandleClientCount(w http.ResponseWriter, r *http.Request) {
	const op = "api.client_count"
	n, err := h.deps.ClientCount(r.Context())
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Clients: n})
}
