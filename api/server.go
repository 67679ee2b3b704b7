// Package api provides the HTTP API server for forward-curve reports.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"freight-curve/db/ingestion"
	"freight-curve/decision/curve"
	"freight-curve/decision/report"
	"freight-curve/internal/config"
	"freight-curve/internal/source"
	"freight-curve/pkg/export"
	cerrors "freight-curve/pkg/errors"
)

// Version is reported by /health.
var Version = "0.1.0"

// Server is the HTTP API server
type Server struct {
	httpServer *http.Server
	defs       *config.File
	reader     *source.Reader
	builder    *report.Builder
	archive    *ingestion.Adapter
	config     *Config
	logger     zerolog.Logger
	started    time.Time
}

// Config holds server configuration. Sources named in a request must fall
// inside Sources; the configured default snapshots are always readable.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	Sources      source.Scope
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		CORSOrigins:  []string{"*"},
	}
}

// NewServer creates a new API server. Snapshots default to the sources in defs.
func NewServer(defs *config.File, reader *source.Reader, builder *report.Builder, cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Server{
		defs:    defs,
		reader:  reader,
		builder: builder,
		config:  cfg,
		logger:  zerolog.Nop(),
		started: time.Now(),
	}
}

// WithArchive enables base_id/compare_id lookups and /api/v1/snapshots.
func (s *Server) WithArchive(a *ingestion.Adapter) *Server {
	s.archive = a
	return s
}

// WithLogger sets the request logger.
func (s *Server) WithLogger(l zerolog.Logger) *Server {
	s.logger = l
	return s
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/report", s.handleReport)
		r.Get("/report/{format}", s.handleReport)
		r.Get("/config", s.handleConfig)
		r.Get("/snapshots", s.handleListSnapshots)
	})
	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info().Int("port", s.config.Port).Str("version", Version).Msg("Starting curve report server")
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts the server and stops it on SIGINT/SIGTERM
// or when ctx is cancelled.
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errChan:
		return err
	case <-quit:
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		allowed := false
		for _, o := range s.config.CORSOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	hits, misses := s.builder.Loader().Stats()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"version":      Version,
		"uptime":       time.Since(s.started).Round(time.Second).String(),
		"cache_hits":   hits,
		"cache_misses": misses,
	})
}

// handleReport builds a report for the configured snapshots, or for the ones
// named by the base/compare (path within the source scope) or base_id/compare_id
// (archive) parameters.
// Sources are re-read on every request; unchanged files hit the loader cache.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	format := report.FormatJSON
	if f := chi.URLParam(r, "format"); f != "" {
		parsed, err := report.ParseFormat(f)
		if err != nil {
			s.jsonError(w, http.StatusNotFound, err.Error())
			return
		}
		format = parsed
	}

	q := r.URL.Query()
	base, err := s.resolve(r.Context(), q, "base", s.defs.Snapshots.Base)
	if err != nil {
		s.sourceError(w, err)
		return
	}
	compare, err := s.resolve(r.Context(), q, "compare", s.defs.Snapshots.Compare)
	if err != nil {
		s.sourceError(w, err)
		return
	}

	rep := s.builder.Build(base, compare)

	switch format {
	case report.FormatTable:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.WriteTable(w, rep); err != nil {
			s.logger.Error().Err(err).Msg("Failed to write table report")
		}
	case report.FormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		if err := report.WriteMarkdown(w, rep); err != nil {
			s.logger.Error().Err(err).Msg("Failed to write markdown report")
		}
	case report.FormatXLSX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
			fmt.Sprintf("curve_%s_vs_%s.xlsx", rep.Base.Label, rep.Compare.Label)))
		if err := export.WriteXLSX(w, rep); err != nil {
			s.logger.Error().Err(err).Msg("Failed to write workbook")
		}
	default:
		s.jsonResponse(w, http.StatusOK, rep)
	}
}

func (s *Server) resolve(ctx context.Context, q url.Values, side string, ref config.SnapshotRef) (*curve.Snapshot, error) {
	if raw := q.Get(side + "_id"); raw != "" {
		if s.archive == nil {
			return nil, errNoArchive
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, badRequest(fmt.Sprintf("invalid %s_id: %v", side, err))
		}
		return s.archive.Load(ctx, id)
	}

	if v := q.Get(side); v != "" {
		path, err := s.config.Sources.Resolve(v)
		if err != nil {
			return nil, err
		}
		ref = config.SnapshotRef{Source: path, Label: v}
	}
	if v := q.Get(side + "_label"); v != "" {
		ref.Label = v
	}
	if v := q.Get(side + "_captured"); v != "" {
		ref.Captured = v
	}
	meta, err := ref.Meta()
	if err != nil {
		return nil, badRequest(err.Error())
	}
	return s.reader.ReadSnapshot(ctx, ref.Source, meta)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	out, err := s.defs.Marshal()
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(out)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.jsonError(w, http.StatusNotImplemented, errNoArchive.Error())
		return
	}
	records, err := s.archive.List(r.Context())
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list snapshots: %v", err))
		return
	}
	s.jsonResponse(w, http.StatusOK, records)
}

var errNoArchive = errors.New("no snapshot archive configured")

type badRequest string

func (e badRequest) Error() string { return string(e) }

// sourceError maps snapshot loading failures onto HTTP statuses.
func (s *Server) sourceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var br badRequest
	switch {
	case errors.As(err, &br):
		status = http.StatusBadRequest
	case errors.Is(err, source.ErrOutOfScope):
		status = http.StatusForbidden
	case errors.Is(err, errNoArchive):
		status = http.StatusNotImplemented
	case errors.Is(err, cerrors.ErrSourceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, cerrors.ErrEmptySnapshot),
		errors.Is(err, cerrors.ErrMissingIndex),
		errors.Is(err, cerrors.ErrSourceUnreadable):
		status = http.StatusUnprocessableEntity
	}
	s.logger.Warn().Err(err).Int("status", status).Msg("Snapshot could not be loaded")
	s.jsonError(w, status, err.Error())
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{
		"error": message,
	})
}
