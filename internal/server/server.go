package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ghogue02/living-economy-arena-sub000/internal/engine"
)

// Server is the coalition engine's HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Config holds all dependencies and settings for creating a Server.
type Config struct {
	Engine *engine.Engine
	Broker *Broker
	Logger *slog.Logger

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg Config) *Server {
	h := NewHandlers(HandlersDeps{
		Engine:              cfg.Engine,
		Broker:              cfg.Broker,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	mux := http.NewServeMux()

	// Formation pipeline.
	mux.HandleFunc("POST /v1/coalitions/form", h.HandleFormCoalition)

	// Active coalition registry.
	mux.HandleFunc("GET /v1/coalitions", h.HandleListCoalitions)
	mux.HandleFunc("GET /v1/coalitions/{coalition_id}", h.HandleGetCoalition)
	mux.HandleFunc("DELETE /v1/coalitions/{coalition_id}", h.HandleDissolveCoalition)

	// Monitoring and improvement (externally triggered).
	mux.HandleFunc("POST /v1/coalitions/{coalition_id}/check", h.HandleCheckCoalition)
	mux.HandleFunc("POST /v1/coalitions/{coalition_id}/improve", h.HandleImproveCoalition)

	// Event stream (long-lived connection).
	mux.HandleFunc("GET /v1/events", h.HandleEvents)

	// Health (no envelope dependencies beyond the engine itself).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
