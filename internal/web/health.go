package web

import (
	"net/http"

	"github.com/joestump/hotel-chat-gateway/internal/config"
)

type healthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	BackendReachable *bool  `json:"backendReachable,omitempty"`
}

// handleHealth serves GET /health: no auth, always 200. The
// backendReachable field is a best-effort hint that unaware clients can
// ignore.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: config.Version}

	if s.pinger != nil {
		reachable := s.pinger.Ping(r.Context())
		resp.BackendReachable = &reachable
	}

	writeJSON(w, http.StatusOK, resp)
}
