// Package http exposes the task-orchestration surface: task submission and
// lookup, SSE streaming, embedding upsert/search, health and metrics.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/relayforge/taskmesh/pkg/dispatcher"
	"github.com/relayforge/taskmesh/pkg/domain/interfaces"
	"github.com/relayforge/taskmesh/pkg/utils/logging"
)

type Server struct {
	router     *chi.Mux
	dispatcher *dispatcher.Dispatcher
	store      interfaces.Store
	vectorDim  int
}

type Options func(*Server)

// WithVectorDimension enforces a fixed dimensionality on embedding writes
// and queries. Zero disables the check.
func WithVectorDimension(dim int) Options {
	return func(s *Server) {
		s.vectorDim = dim
	}
}

func New(dsp *dispatcher.Dispatcher, store interfaces.Store, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:     r,
		dispatcher: dsp,
		store:      store,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", s.submitTaskHandler)
		r.Post("/stream", s.streamSubmitHandler)
		r.Get("/{id}", s.getTaskHandler)
		r.Get("/{id}/stream", s.streamStatusHandler)
	})

	r.Route("/embeddings", func(r chi.Router) {
		r.Put("/", s.upsertEmbeddingHandler)
		r.Post("/search", s.searchEmbeddingHandler)
	})

	r.Route("/snapshots", func(r chi.Router) {
		r.Post("/", s.putSnapshotHandler)
		r.Get("/{id}", s.getSnapshotHandler)
	})

	r.Get("/conversations/{id}/history", s.getHistoryHandler)

	r.Get("/health", s.healthHandler)
	r.Get("/metrics", s.metricsHandler)
	r.Get("/metrics/prometheus", promhttp.Handler().ServeHTTP)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
