// Package api exposes the conversational orchestrator over HTTP:
// session CRUD, one-shot and SSE-streamed chat, standalone section
// enrichment, and health/readiness probes.
package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenloop/esgpilot/internal/log"
	"github.com/greenloop/esgpilot/internal/session"
)

// ServerConfig contains the dependencies for the API server.
type ServerConfig struct {
	Logger       log.Logger
	Engine       TurnProcessor // Required
	SessionStore session.Store // Required
	Enricher     Enricher      // Optional: nil disables the enrich endpoint
	Pool         *pgxpool.Pool // Optional: nil disables pool stats in /ready
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if cfg.SessionStore == nil {
		return nil, errors.New("session store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	sh := &sessionHandler{store: cfg.SessionStore, logger: logger}
	ch := &chatHandler{engine: cfg.Engine, logger: logger}

	mux := http.NewServeMux()

	// Session CRUD
	mux.HandleFunc("GET /api/v1/sessions", sh.list)
	mux.HandleFunc("POST /api/v1/sessions", sh.create)
	mux.HandleFunc("GET /api/v1/sessions/{id}", sh.get)
	mux.HandleFunc("GET /api/v1/sessions/{id}/turns", sh.turns)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", sh.delete)

	// Chat
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/chat/stream", ch.streamChat)

	// Section enrichment for report assembly callers
	if cfg.Enricher != nil {
		eh := &enrichHandler{enricher: cfg.Enricher, logger: logger}
		mux.HandleFunc("POST /api/v1/enrich", eh.enrich)
	}

	// Middleware stack (outermost first): Recovery -> Logging -> Routes
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
