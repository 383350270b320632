package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/decision-gateway/internal/configstore"
	"github.com/ignite/decision-gateway/internal/oauth"
	"github.com/ignite/decision-gateway/internal/pipeline"
)

// Server represents the API server
type Server struct {
	handler  http.Handler
	handlers *Handlers
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new API server.
func NewServer(engine *oauth.Engine, store configstore.Store, p *pipeline.Pipeline, maxRecords int, skipVerify bool) *Server {
	handlers := NewHandlers(engine, store, p, maxRecords, skipVerify)
	router := SetupRoutes(handlers)

	return &Server{
		handler:  router,
		handlers: handlers,
		router:   router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Notification batches are capped, so tight timeouts are safe.
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
