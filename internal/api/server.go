// ABOUTME: HTTP server exposing the aggregation engine and record store as JSON.
// ABOUTME: Routes are mounted on chi; errors are problem+json; /metrics is Prometheus.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/harperreed/healthlog/internal/aggregate"
	"github.com/harperreed/healthlog/internal/metrics"
	"github.com/harperreed/healthlog/internal/storage"
)

// Server wires the HTTP routes to the store and aggregation service.
type Server struct {
	repo    storage.Repository
	svc     *aggregate.Service
	metrics *metrics.Collector
	logger  *log.Logger
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics sets the metrics collector served on /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithClock sets the clock used to stamp records posted without a time.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) { s.now = clock }
}

// NewServer creates a Server. Without WithMetrics a private collector is used.
func NewServer(repo storage.Repository, svc *aggregate.Service, opts ...Option) *Server {
	s := &Server{
		repo:   repo,
		svc:    svc,
		logger: log.New(io.Discard),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCollector("healthlog")
	}
	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.recovery)
	r.Use(s.instrument)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/timeline", s.timeline)
		r.Get("/days/{date}", s.day)
		r.Get("/recent", s.recent)
		r.Get("/charts", s.charts)
		r.Get("/charts/{category}", s.chart)
		r.Get("/report", s.report)
		r.Get("/report.pdf", s.reportPDF)
		r.Get("/export", s.export)
		r.Get("/profile", s.getProfile)
		r.Put("/profile", s.putProfile)

		r.Route("/records/{category}", func(r chi.Router) {
			r.Get("/", s.listRecords)
			r.Post("/", s.createRecord)
			r.Delete("/{id}", s.deleteRecord)
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
