// Package server exposes the research engine over HTTP: the latest
// analysis, candidates, exclusions, paper trades, weight history, research
// errors, and a manual cycle trigger.
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

	"github.com/aristath/research-trader/internal/database"
	"github.com/aristath/research-trader/internal/modules/analysis"
	"github.com/aristath/research-trader/internal/modules/feedback"
	"github.com/aristath/research-trader/internal/modules/papertrade"
	"github.com/aristath/research-trader/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Port        int
	DevMode     bool
	Log         zerolog.Logger
	DB          *database.DB
	Analyses    *analysis.Repository
	Service     *analysis.Service
	Trades      *papertrade.Repository
	Weights     *feedback.WeightRepository
	Errors      *feedback.ErrorRepository
	Scheduler   *scheduler.Scheduler
	MarketHours *scheduler.MarketHoursService
}

// Server represents the HTTP server
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	db          *database.DB
	analyses    *analysis.Repository
	service     *analysis.Service
	trades      *papertrade.Repository
	weights     *feedback.WeightRepository
	errors      *feedback.ErrorRepository
	scheduler   *scheduler.Scheduler
	marketHours *scheduler.MarketHoursService
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		db:          cfg.DB,
		analyses:    cfg.Analyses,
		service:     cfg.Service,
		trades:      cfg.Trades,
		weights:     cfg.Weights,
		errors:      cfg.Errors,
		scheduler:   cfg.Scheduler,
		marketHours: cfg.MarketHours,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // manual cycle runs inline
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(120 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/research", func(r chi.Router) {
		r.Get("/latest", s.handleLatestAnalysis)
		r.Get("/candidates", s.handleCandidates)
		r.Get("/exclusions", s.handleExclusions)
		r.Get("/trades", s.handleTrades)
		r.Get("/weights", s.handleWeights)
		r.Get("/errors", s.handleErrors)
		r.Get("/runs", s.handleRuns)
		r.Post("/run", s.handleRunCycle)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
