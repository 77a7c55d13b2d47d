// Package server exposes an engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gnolang/revxslt/internal/store"
	tt "github.com/gnolang/revxslt/internal/types"
)

const maxDocumentSize = 16 << 20

// Extractor matches posted documents.
type Extractor interface {
	RunSource(ctx context.Context, name string, src []byte, contentType string) tt.Record
	TemplatePath() string
}

type Server struct {
	engine  Extractor
	store   store.Store
	metrics http.Handler
	logger  *zap.Logger
}

type Option func(*Server)

// WithStore persists every extraction and enables the record endpoints.
func WithStore(s store.Store) Option {
	return func(srv *Server) {
		srv.store = s
	}
}

// WithMetrics serves h under /metrics.
func WithMetrics(h http.Handler) Option {
	return func(srv *Server) {
		srv.metrics = h
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(srv *Server) {
		if logger != nil {
			srv.logger = logger
		}
	}
}

func New(engine Extractor, opts ...Option) *Server {
	srv := &Server{
		engine: engine,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Handler returns the routes:
//
//	POST /v1/extract?source=name   match the request body
//	GET  /v1/records?template=t    latest record of every source
//	GET  /v1/records?source=s      latest record of one source
//	GET  /health
//	GET  /metrics
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Heartbeat("/health"))
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", s.Extract)
		r.Get("/records", s.Records)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) Extract(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty document")
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "request:" + middleware.GetReqID(r.Context())
	}

	record := s.engine.RunSource(r.Context(), source, body, r.Header.Get("Content-Type"))
	if s.store != nil {
		if err := s.store.Save(r.Context(), record); err != nil {
			s.logger.Error("failed to save record", zap.String("source", source), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to save record")
			return
		}
	}

	status := http.StatusOK
	if record.Status == tt.StatusError {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, record)
}

func (s *Server) Records(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no store configured")
		return
	}

	if source := r.URL.Query().Get("source"); source != "" {
		record, err := s.store.Load(r.Context(), source)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		if err != nil {
			s.logger.Error("failed to load record", zap.String("source", source), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load record")
			return
		}
		writeJSON(w, http.StatusOK, record)
		return
	}

	template := r.URL.Query().Get("template")
	if template == "" {
		template = s.engine.TemplatePath()
	}
	records, err := s.store.List(r.Context(), template)
	if err != nil {
		s.logger.Error("failed to list records", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
