// Package server exposes the dashboard API: lead queries, batch ingestion,
// and scrape-run management, behind bearer-token auth.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/smc1992/leadgen-ai/internal/auth"
	"github.com/smc1992/leadgen-ai/internal/config"
	"github.com/smc1992/leadgen-ai/internal/ingest"
	"github.com/smc1992/leadgen-ai/internal/runs"
	"github.com/smc1992/leadgen-ai/internal/store"
)

// Server bundles the API dependencies behind a chi router.
type Server struct {
	store    store.Store
	pipeline *ingest.Pipeline
	tracker  *runs.Tracker
	verifier *auth.Verifier
	metrics  *Metrics
	cfg      config.ServerConfig
}

// New assembles a Server. The tracker may be nil when no scrape provider is
// configured; the run endpoints then answer 503.
func New(st store.Store, pipeline *ingest.Pipeline, tracker *runs.Tracker, verifier *auth.Verifier, cfg config.ServerConfig) *Server {
	return newServer(st, pipeline, tracker, verifier, cfg, prometheus.DefaultRegisterer)
}

func newServer(st store.Store, pipeline *ingest.Pipeline, tracker *runs.Tracker, verifier *auth.Verifier, cfg config.ServerConfig, reg prometheus.Registerer) *Server {
	return &Server{
		store:    st,
		pipeline: pipeline,
		tracker:  tracker,
		verifier: verifier,
		metrics:  NewMetrics(reg),
		cfg:      cfg,
	}
}

// Router builds the full route tree. Health and metrics are public;
// everything under /api requires a session.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.metrics.Instrument)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.verifier.Middleware)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", s.handleListLeads)
			r.Post("/ingest", s.handleIngest)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetLead)
				r.Patch("/", s.handleUpdateLead)
				r.Delete("/", s.handleDeleteLead)
			})
		})

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.handleStartRun)
			r.Get("/{id}", s.handleRunStatus)
		})
	})

	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.Int("port", s.cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
