package api

import (
	"net/http"

	"github.com/Paramfpv/lev/internal/log"
	"github.com/Paramfpv/lev/internal/storage"
)

// healthHandler handles the liveness and readiness probes.
type healthHandler struct {
	store  *storage.Store
	logger log.Logger
}

func (h *healthHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *healthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness returns 200 OK once the database answers a ping.
func (h *healthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "database not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
