package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports inference daemon reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles liveness and readiness endpoints.
type HealthHandler struct {
	daemon Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(daemon Pinger) *HealthHandler {
	return &HealthHandler{daemon: daemon}
}

// Health handles GET /health (liveness).
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Ready handles GET /ready (readiness: the daemon must be reachable).
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.daemon.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
