package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/econagent/internal/agent"
)

// StatusSource reports the agent summary.
type StatusSource interface {
	Status() agent.Status
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	status StatusSource
	mode   string
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(status StatusSource, mode string) *HealthHandler {
	return &HealthHandler{status: status, mode: mode}
}

// HealthCheck responds with liveness plus the agent summary.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"mode":      h.mode,
		"agent":     h.status.Status(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
