// Package server provides the HTTP server and routing for Alphaseeker.
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

	"github.com/aristath/alphaseeker/internal/clients/advisor"
	"github.com/aristath/alphaseeker/internal/database"
	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/events"
	allocationhandlers "github.com/aristath/alphaseeker/internal/modules/allocation/handlers"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/alphaseeker/internal/modules/portfolio/handlers"
	settlementhandlers "github.com/aristath/alphaseeker/internal/modules/settlement/handlers"
	"github.com/aristath/alphaseeker/internal/reliability"
	"github.com/aristath/alphaseeker/internal/scheduler"
)

// JobRunner lists and triggers the scheduled jobs. *scheduler.Scheduler satisfies it.
type JobRunner interface {
	Jobs() []scheduler.JobStatus
	RunByName(name string) error
}

// BackupManager takes, lists and restores snapshot backups.
// *reliability.BackupService satisfies it.
type BackupManager interface {
	BackupNow(ctx context.Context) (reliability.BackupInfo, error)
	ListBackups(ctx context.Context) ([]reliability.BackupInfo, error)
	Restore(ctx context.Context, key string) (domain.Snapshot, error)
}

// ReportGenerator writes the strategy report. *advisor.Client satisfies it.
type ReportGenerator interface {
	Model() string
	GenerateReport(ctx context.Context, in advisor.Input) (string, error)
}

// Config holds server configuration
type Config struct {
	Log          zerolog.Logger
	DataDir      string
	DB           *database.DB
	Portfolio    *portfolio.Service
	EventManager *events.Manager
	Jobs         JobRunner       // optional
	Backups      BackupManager   // optional, nil when backups are not configured
	Advisor      ReportGenerator // optional, nil without an API key
	Port         int
	DevMode      bool
	Version      string
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            Config
	systemHandlers *SystemHandlers
	statusMonitor  *StatusMonitor
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	systemHandlers := NewSystemHandlers(cfg.Log, cfg.DataDir, cfg.DB, cfg.Jobs)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg,
		systemHandlers: systemHandlers,
	}
	if cfg.EventManager != nil {
		s.statusMonitor = NewStatusMonitor(cfg.EventManager, systemHandlers, cfg.Log)
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router exposes the configured router (used by tests and embedding)
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware installs the middleware shared by every route
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived event streams skip the request timeout and compression
		if s.cfg.EventManager != nil && s.cfg.EventManager.Bus() != nil {
			bus := s.cfg.EventManager.Bus()
			r.Get("/events/stream", NewEventsStreamHandler(bus, s.log).ServeHTTP)
			r.Get("/events/ws", NewEventsSocketHandler(bus, s.log).ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			portfoliohandlers.NewHandler(s.cfg.Portfolio, s.log).RegisterRoutes(r)
			allocationhandlers.NewHandler(s.cfg.Portfolio, s.log).RegisterRoutes(r)
			settlementhandlers.NewHandler(s.cfg.Portfolio, s.log).RegisterRoutes(r)

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
				r.Post("/jobs/{name}/run", s.systemHandlers.HandleTriggerJob)
			})

			if s.cfg.Backups != nil {
				NewBackupHandlers(s.cfg.Backups, s.log).RegisterRoutes(r)
			}
			if s.cfg.Advisor != nil {
				NewAdvisorHandlers(s.cfg.Advisor, s.cfg.Portfolio, s.log).RegisterRoutes(r)
			}
		})
	})
}

// Start starts the HTTP server and the status monitor
func (s *Server) Start() error {
	if s.statusMonitor != nil {
		s.statusMonitor.Start(60 * time.Second)
		s.log.Info().Msg("Status monitor started")
	}

	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	if s.statusMonitor != nil {
		s.statusMonitor.Stop()
	}
	return s.server.Shutdown(ctx)
}

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
