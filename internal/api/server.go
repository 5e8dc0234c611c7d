// Package api exposes the chatbot over HTTP: account registration and
// login, question answering, conversation reset, and persisted history.
//
// Endpoints:
//
//	GET  /health              liveness probe
//	GET  /ready               readiness probe (database ping)
//	POST /register            create an account
//	POST /login               verify credentials
//	POST /chat                answer one question
//	POST /reset               clear a conversation's memory
//	GET  /history/{user_id}   persisted exchanges, newest first
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Paramfpv/lev/internal/log"
	"github.com/Paramfpv/lev/internal/storage"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8000"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds request header reads.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response. Chat
	// responses wait on the inference endpoint, so this exceeds its timeout.
	WriteTimeout = 60 * time.Second

	// IdleTimeout bounds keep-alive connections between requests.
	IdleTimeout = 120 * time.Second
)

// ServerConfig contains configuration for creating the HTTP server.
type ServerConfig struct {
	Logger log.Logger

	// Engines hands out the per-conversation chat engine. Required.
	Engines *Registry

	// Store persists accounts and history. Optional: nil disables the
	// auth and history endpoints and readiness reports not ready.
	Store *storage.Store
}

// Server is the chatbot's HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates a server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Engines == nil {
		return nil, errors.New("engine registry is required")
	}

	mux := http.NewServeMux()

	hh := &healthHandler{store: cfg.Store, logger: cfg.Logger}
	hh.registerRoutes(mux)

	ch := &chatHandler{engines: cfg.Engines, store: cfg.Store, logger: cfg.Logger}
	ch.registerRoutes(mux)

	if cfg.Store != nil {
		ah := &authHandler{store: cfg.Store, logger: cfg.Logger}
		ah.registerRoutes(mux)
	}

	return &Server{mux: mux, logger: cfg.Logger}, nil
}

// Handler returns the server as an http.Handler with middleware applied.
// Middleware order: recovery, then logging, then routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
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
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
