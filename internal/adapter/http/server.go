package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/flight-movement-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	"github.com/couchcryptid/flight-movement-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker = sharedobs.ReadinessChecker

// Processor runs one import over a batch source.
type Processor interface {
	Process(ctx context.Context, src pipeline.Source) (domain.ImportSummary, error)
}

// SummaryLookup finds the summary of a finished run.
type SummaryLookup interface {
	Get(ctx context.Context, runID string) (domain.ImportSummary, error)
}

// Dependencies are the collaborators behind the HTTP routes.
type Dependencies struct {
	Processor      Processor
	Summaries      SummaryLookup
	Ready          ReadinessChecker
	MaxUploadBytes int64
}

// Server exposes the upload API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Dependencies
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the upload, lookup, /healthz,
// /readyz, and /metrics routes.
func NewServer(addr string, deps Dependencies, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(deps.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/upload", func(r chi.Router) {
		r.Post("/flights", s.handleUpload)
		r.Get("/flights/{runID}", s.handleSummary)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Flight movement import API",
		"endpoints": map[string]string{
			"upload":  "/upload/flights (POST - CSV file)",
			"summary": "/upload/flights/{runID} (GET)",
			"health":  "/healthz",
			"ready":   "/readyz",
			"metrics": "/metrics",
		},
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if limit := s.deps.MaxUploadBytes; limit > 0 {
		if r.ContentLength > limit {
			writeDetail(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeDetail(w, http.StatusBadRequest, "A CSV file is required in the 'file' field")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, ".csv") {
		writeDetail(w, http.StatusBadRequest, "Only CSV files are accepted")
		return
	}

	logger := s.logger.With("request_id", middleware.GetReqID(r.Context()), "filename", header.Filename)
	summary, err := s.deps.Processor.Process(r.Context(), csvfile.NewReader(file, logger))
	if err != nil {
		logger.Error("import failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "import failed")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	summary, err := s.deps.Summaries.Get(r.Context(), runID)
	if errors.Is(err, domain.ErrSummaryNotFound) {
		writeDetail(w, http.StatusNotFound, "import run not found")
		return
	}
	if err != nil {
		s.logger.Error("summary lookup failed", "run_id", runID, "error", err)
		writeDetail(w, http.StatusInternalServerError, "summary lookup failed")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, summary)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	sharedobs.WriteJSON(w, status, map[string]string{"detail": detail})
}
