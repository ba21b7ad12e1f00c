package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/joestump/hotel-chat-gateway/internal/config"
	"github.com/joestump/hotel-chat-gateway/internal/redaction"
	"github.com/joestump/hotel-chat-gateway/internal/turn"
)

// BackendPinger is an optional best-effort reachability check for the
// hotel backend, surfaced in GET /health. A nil BackendPinger omits the
// field entirely.
type BackendPinger interface {
	Ping(ctx context.Context) bool
}

// Server exposes exactly two routes: GET /health and POST /chat. It wraps
// a *http.Server around a *http.ServeMux, constructed in New, started in
// Start, drained in Shutdown.
type Server struct {
	cfg        *config.Config
	controller *turn.Controller
	pinger     BackendPinger
	filter     *redaction.Filter
	mux        *http.ServeMux
	server     *http.Server
}

// New constructs a Server. pinger may be nil, in which case GET /health
// omits the backend-reachability hint. filter may be nil, in which case
// bearer credentials are not registered for log-line redaction.
func New(cfg *config.Config, controller *turn.Controller, pinger BackendPinger, filter *redaction.Filter) *Server {
	s := &Server{
		cfg:        cfg,
		controller: controller,
		pinger:     pinger,
		filter:     filter,
		mux:        http.NewServeMux(),
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.TurnDeadlineSec+15) * time.Second,
	}

	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /chat", s.handleChat)
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
