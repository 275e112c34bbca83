// SPDX-License-Identifier: MIT

// Package api provides the HTTP query surface for the enzyme store.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/brendacyc/brendacyc/internal/cache"
	"github.com/brendacyc/brendacyc/internal/config"
	"github.com/brendacyc/brendacyc/internal/health"
	"github.com/brendacyc/brendacyc/internal/jobs"
	"github.com/brendacyc/brendacyc/internal/store"
)

// ConfigProvider supplies the current configuration; implemented by
// config.Holder so hot reloads take effect per request.
type ConfigProvider interface {
	Current() config.AppConfig
}

// Server is the HTTP API server.
type Server struct {
	provider ConfigProvider
	store    *store.Store
	cache    cache.Cache
	health   *health.Manager

	mu         sync.RWMutex
	lastStatus *jobs.Status
	startTime  time.Time

	// importFn allows tests to stub the import pipeline; defaults to jobs.Import.
	importFn func(context.Context, config.AppConfig, *store.Store) (*jobs.Status, error)
}

// New creates the API server. The cache may be a no-op implementation.
func New(provider ConfigProvider, st *store.Store, c cache.Cache, hm *health.Manager) *Server {
	return &Server{
		provider:  provider,
		store:     st,
		cache:     c,
		health:    hm,
		startTime: time.Now(),
		importFn:  jobs.Import,
	}
}

func (s *Server) cfg() config.AppConfig {
	return s.provider.Current()
}

// SetLastStatus records the most recent import outcome for /api/v1/status.
// Safe for concurrent use; called by the startup import and the file watcher.
func (s *Server) SetLastStatus(status *jobs.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStatus = status
}

func (s *Server) getLastStatus() *jobs.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastStatus
}

// Handler builds the routed handler with the full middleware stack.
func (s *Server) Handler() http.Handler {
	cfg := s.cfg()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(securityHeaders)
	if cfg.RateLimitEnabled {
		r.Use(httprate.LimitByIP(cfg.RateLimitRPM, time.Minute))
	}

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/fields", s.handleFields)
		r.Get("/enzymes/{ec}", s.handleEnzyme)
		r.Get("/enzymes/{ec}/{field}", s.handleEnzymeField)
		r.Get("/search", s.handleSearch)
		r.With(s.authMiddleware).Post("/import", s.handleImport)
	})

	r.Get("/files/*", s.handleFiles)

	if cfg.TracingEnabled {
		return otelhttp.NewHandler(r, "brendacyc-api")
	}
	return r
}
