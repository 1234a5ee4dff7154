// SPDX-License-Identifier: MIT

// Package api serves the read-mostly status surface of a running session.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/adpod/internal/api/middleware"
	"github.com/ManuGH/adpod/internal/health"
	"github.com/ManuGH/adpod/internal/player"
)

// Session is the part of a playback session the API drives.
type Session interface {
	Status(ctx context.Context) (player.Snapshot, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Config holds the HTTP surface settings.
type Config struct {
	Listen     string
	RateLimit  int
	RateWindow time.Duration
	Version    string

	// Health receives the session check. A manager is created when nil.
	Health *health.Manager
}

// Server exposes a session over HTTP.
type Server struct {
	cfg     Config
	session Session
	router  *chi.Mux
}

// New builds the router for session.
func New(cfg Config, session Session) *Server {
	if cfg.Health == nil {
		cfg.Health = health.NewManager(cfg.Version)
	}
	cfg.Health.RegisterChecker(health.NewFuncChecker("session", sessionCheck(session)))
	s := &Server{cfg: cfg, session: session}
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
	})
	r.Get("/healthz", cfg.Health.ServeHealth)
	r.Get("/readyz", cfg.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestLimit: cfg.RateLimit,
			WindowSize:   cfg.RateWindow,
		}))
		r.Get("/status", s.handleStatus)
		r.Get("/adbreaks", s.handleAdBreaks)
		r.Post("/playback/pause", s.handlePause)
		r.Post("/playback/resume", s.handleResume)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log := logger("api")

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("event", "api.listen").Str("addr", s.cfg.Listen).Msg("status API listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Str("event", "api.stopped").Msg("status API stopped")
	return nil
}
