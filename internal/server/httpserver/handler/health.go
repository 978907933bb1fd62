package handler

import (
	"net/http"
	"time"
)

// handleHealth handles GET /health. It reports liveness only.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: h.version,
	})
}

// handleReady handles GET /ready.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ready",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			resp.Status = "not_ready"
			resp.Error = err.Error()
			h.writeJSON(w, r, http.StatusServiceUnavailable, resp)
			return
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}
