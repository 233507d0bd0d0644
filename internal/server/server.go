// Package server exposes the pipeline engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapml/internal/engine"
)

// DefaultShutdownTimeout bounds graceful shutdown when none is configured.
const DefaultShutdownTimeout = 5 * time.Second

// Server is the HTTP front end of an engine.
type Server struct {
	engine          *engine.Engine
	addr            string
	apiKey          string
	watchSeeds      bool
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// Config holds configuration for the HTTP server.
type Config struct {
	Engine *engine.Engine
	// Addr is the listen address, e.g. ":8000".
	Addr string
	// APIKey is required in the X-API-Key header of every /api route except
	// the health check.
	APIKey string
	// WatchSeeds re-ingests seed files while serving.
	WatchSeeds      bool
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	return &Server{
		engine:          cfg.Engine,
		addr:            cfg.Addr,
		apiKey:          cfg.APIKey,
		watchSeeds:      cfg.WatchSeeds,
		shutdownTimeout: timeout,
		logger:          logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return NewRouter(s.engine, s.apiKey, s.logger)
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting server", "addr", ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watchSeeds {
		eg.Go(func() error {
			return s.engine.WatchSeeds(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
