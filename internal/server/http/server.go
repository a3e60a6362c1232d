// Package httpserver provides the HTTP REST API for the paper import service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/researchhub/paper-import-service/internal/database"
	"github.com/researchhub/paper-import-service/internal/domain"
	"github.com/researchhub/paper-import-service/internal/importer"
	"github.com/researchhub/paper-import-service/internal/repository"
)

// JobService is the import surface the handlers depend on. It is satisfied
// by *importer.Manager.
type JobService interface {
	Submit(ctx context.Context, items []importer.PaperInput) (*domain.ImportJob, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error)
	List(ctx context.Context, filter repository.ImportJobFilter) ([]*domain.ImportJob, int64, error)
	EnrichResearcher(ctx context.Context, researcherID uuid.UUID) ([]string, error)
	ImportResearcherPaper(ctx context.Context, researcherID uuid.UUID, externalID string) (*domain.Paper, bool, error)
}

// HealthChecker reports database connectivity for the health endpoints.
// It is satisfied by *database.DB.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP REST API server.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	jobs        JobService
	papers      repository.PaperRepository
	researchers repository.ResearcherRepository
	authorships repository.AuthorshipRepository
	health      HealthChecker
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	jobs JobService,
	papers repository.PaperRepository,
	researchers repository.ResearcherRepository,
	authorships repository.AuthorshipRepository,
	health HealthChecker,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		jobs:        jobs,
		papers:      papers,
		researchers: researchers,
		authorships: authorships,
		health:      health,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/import-jobs", s.submitImportJob)
		r.Get("/import-jobs", s.listImportJobs)
		r.Get("/import-jobs/{jobID}", s.getImportJob)

		r.Get("/papers", s.listPapers)
		r.Get("/papers/{paperID}", s.getPaper)

		r.Get("/researchers", s.listResearchers)
		r.Get("/researchers/{researcherID}", s.getResearcher)
		r.Post("/researchers/{researcherID}/enrich", s.enrichResearcher)
		r.Post("/researchers/{researcherID}/import-paper/{externalID}", s.importResearcherPaper)
	})

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler reports whether the service can accept traffic.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
