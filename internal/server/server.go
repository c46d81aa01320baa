// Package server provides the HTTP surface: the webhook ingestion endpoint,
// liveness probe, and the read-only stats API used by the reporting client.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noviciado/attendance-tracker/internal/config"
	"github.com/noviciado/attendance-tracker/internal/database"
	"github.com/noviciado/attendance-tracker/internal/ingest"
	"github.com/noviciado/attendance-tracker/internal/logger"
)

// Server wraps the HTTP server and its route handlers.
type Server struct {
	logger   *slog.Logger
	cfg      *config.ServerConfig
	store    database.Store
	ingester *ingest.Service
	httpSrv  *http.Server
}

// New creates the HTTP server with all routes configured.
func New(log *slog.Logger, cfg *config.ServerConfig, store database.Store, ingester *ingest.Service) *Server {
	s := &Server{
		logger:   log.With("component", "server"),
		cfg:      cfg,
		store:    store,
		ingester: ingester,
	}

	s.httpSrv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// routes configures the chi router and middleware stack.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(logger.RequestLogger(s.logger))

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealthz)
	r.Post("/webhook", s.handleWebhook)
	r.Handle("/metrics", promhttp.Handler())

	// Read-only aggregate queries for the reporting client
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/attendance/recent", s.handleRecentAttendance)
		r.Get("/attendance/daily", s.handleDailyCounts)
		r.Get("/attendance/top", s.handleTopAttendees)
		r.Get("/messages/top", s.handleTopSenders)
	})

	return r
}

// Run starts the HTTP listener and blocks until the context is cancelled,
// then shuts the server down gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", s.cfg.ListenAddr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped gracefully.")
	return nil
}
