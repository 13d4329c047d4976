package api

import (
	"net/http"

	"github.com/evihealth/evi/internal/session"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store *session.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store *session.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /api/health", h.status)
}

// liveness returns 200 OK while the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// status is the frontend-facing health endpoint.
func (h *HealthHandler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.store.Count(),
	})
}
