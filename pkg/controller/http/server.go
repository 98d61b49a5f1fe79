package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/adsafe/pkg/usecase"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
	"github.com/secmon-lab/adsafe/pkg/utils/metrics"
)

type Server struct {
	router  *chi.Mux
	uc      *usecase.UseCases
	metrics *metrics.Collector
}

type Options func(*Server)

// WithMetrics records request metrics and exposes them at /metrics
func WithMetrics(collector *metrics.Collector) Options {
	return func(s *Server) {
		s.metrics = collector
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(requestMetrics(s.metrics))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/taxonomy", func(r chi.Router) {
			r.Get("/", s.listTaxonomy)
			r.Post("/", s.createTaxonomy)
			r.Get("/{code}", s.getTaxonomy)
			r.Put("/{code}", s.updateTaxonomy)
			r.Delete("/{code}", s.deleteTaxonomy)
		})

		r.Route("/rule-set-versions", func(r chi.Router) {
			r.Get("/", s.listVersions)
			r.Post("/", s.createVersion)
			r.Get("/active", s.getActiveVersion)
			r.Get("/{id}", s.getVersion)
			r.Delete("/{id}", s.deleteVersion)
			r.Put("/{id}/activate", s.activateVersion)
			r.Put("/{id}/deactivate", s.deactivateVersion)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.listRules)
			r.Post("/", s.createRule)
			r.Get("/{id}", s.getRule)
			r.Put("/{id}", s.updateRule)
			r.Delete("/{id}", s.deleteRule)
		})

		r.Get("/resolved-rules", s.resolvedRules)
	})

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

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		ctx := logging.With(r.Context(), logger)

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
