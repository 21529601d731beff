// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	statsProvider StatsProvider
	now           func() time.Time
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, now: time.Now}
}

// HandleStats writes the provider's counters. Timestamps are rendered in UTC
// and unset ones are left out.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.statsProvider.GetStats()
	out := make(map[string]interface{}, len(stats)+1)
	for k, v := range stats {
		if t, ok := v.(time.Time); ok {
			if t.IsZero() {
				continue
			}
			v = t.UTC().Format(time.RFC3339Nano)
		}
		out[k] = v
	}
	out["generatedAt"] = h.now().UTC().Format(time.RFC3339Nano)
	writeJSON(w, http.StatusOK, out)
}
