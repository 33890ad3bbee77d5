package http

import (
	"context"
	"net/http"
	"time"
)

const pingTimeout = 2 * time.Second

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.storeUp(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleAPIHealth serves GET /api/health with the store connection state.
func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	if !s.storeUp(r.Context()) {
		writeJSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "degraded", DB: "disconnected"})
		return
	}
	writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok", DB: "connected"})
}

func (s *Server) storeUp(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.store.Ping(ctx) == nil
}
