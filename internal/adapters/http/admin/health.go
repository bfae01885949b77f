package admin

import (
	"net/http"
)

// HealthHandler handles liveness checks.
type HealthHandler struct {
	ready ReadinessFunc
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(ready ReadinessFunc) *HealthHandler {
	return &HealthHandler{ready: ready}
}

// HandleHealth handles GET /healthz.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeJSON(w, http.StatusMethodNotAllowed, healthResponse{Status: "error", Error: "method not allowed"})
		return
	}
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
