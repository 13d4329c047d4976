// Package api provides the HTTP REST API for the assistant.
//
// Endpoints:
//
//	GET  /health       → liveness probe
//	GET  /api/health   → status for the frontend
//	POST /api/chat     → run one conversation turn
//	GET  /api/profile  → read a session's stored profile
//	POST /api/profile  → replace a session's stored profile
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (recovery, logging, CORS)
//   - health.go: health endpoints
//   - chat.go: chat endpoint
//   - profile.go: profile endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/evihealth/evi/internal/log"
	"github.com/evihealth/evi/internal/session"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8000"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response. Chat
	// turns can run several model rounds, so this is generous.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum wait for the next keep-alive request.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the assistant's REST API.
type Server struct {
	mux         *http.ServeMux
	logger      log.Logger
	corsOrigins []string

	health  *HealthHandler
	chat    *ChatHandler
	profile *ProfileHandler
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(store *session.Store, logger log.Logger, corsOrigins []string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:         mux,
		logger:      logger,
		corsOrigins: corsOrigins,
		health:      NewHealthHandler(store),
		chat:        NewChatHandler(store, logger),
		profile:     NewProfileHandler(store, logger),
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.profile.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → CORS → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		corsMiddleware(s.corsOrigins),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
