// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
	"github.com/Clinico01/ranking-de-clientes3/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	errorLog
	deps LeaderboardDependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps LeaderboardDependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status       string    `json:"status"`
	BoardVersion uint64    `json:"board_version"`
	ComputedAt   time.Time `json:"computed_at,omitzero"`
}

// HandleHealth handles GET /healthz requests. It answers 503 until the first
// leaderboard has been computed.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	board, err := h.deps.Leaderboard(r.Context(), 1)
	switch {
	case errors.Is(err, types.ErrNoBoard):
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "starting"})
	case err != nil:
		h.respondError(w, r, Wrap("api.health", err))
	default:
		writeJSON(w, http.StatusOK, healthResponse{
			Status:       "ok",
			BoardVersion: board.Version,
			ComputedAt:   board.ComputedAt,
		})
	}
}

// MetricsHandler serves the service metrics registry in the Prometheus
// exposition format.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
