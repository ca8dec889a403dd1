// Package server provides the HTTP server and routing for Coinwatch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/coinwatch/internal/config"
	"github.com/aristath/coinwatch/internal/di"
	ledgerhandlers "github.com/aristath/coinwatch/internal/modules/ledger/handlers"
)

// NextRunner reports when the next scheduled run fires
type NextRunner interface {
	Next() time.Time
}

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container    // DI container with all services
	Jobs      *di.JobInstances // Jobs that can be triggered via API
	Scheduler NextRunner       // Optional; nil when no schedule is configured
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	cfg       *config.Config
	container *di.Container
	jobs      *di.JobInstances
	scheduler NextRunner
	startedAt time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		jobs:      cfg.Jobs,
		scheduler: cfg.Scheduler,
		startedAt: time.Now(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware installs the middleware stack shared by every route.
// Compression is left off in dev mode so responses stay readable with curl.
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.RealIP,
		s.loggingMiddleware,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}),
	)

	if !devMode {
		s.router.Use(middleware.Compress(5, "text/html", "application/json"))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Status page
	s.router.Get("/", s.handleReport)
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		ledgerHandler := ledgerhandlers.NewHandler(s.container.Transactions, s.log)
		ledgerHandler.RegisterRoutes(r)

		r.Route("/valuations", func(r chi.Router) {
			r.Get("/current", s.handleCurrentValuation)
			r.Get("/last", s.handleLastValuations)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/valuation", s.handleTriggerValuation)
			r.Post("/store-maintenance", s.handleTriggerStoreMaintenance)
		})
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port until Shutdown is called
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Status endpoint listening")
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Stopping status endpoint")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs one line per request. Health probes log at debug
// level so frequent polling does not flood the output.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		event := s.log.Info()
		if r.URL.Path == "/health" {
			event = s.log.Debug()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(began)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request served")
	})
}
