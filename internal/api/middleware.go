// ABOUTME: HTTP middleware for panic recovery, request logging and metrics.
// ABOUTME: Metrics are labelled by chi route pattern to keep cardinality bounded.
package api

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harperreed/healthlog/internal/problem"
)

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "err", err, "stack", string(debug.Stack()))
				problem.InternalError("An unexpected error occurred").Write(w)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		d := time.Since(start)

		s.metrics.RecordAPIRequest(route, r.Method, strconv.Itoa(status), d)
		if status >= http.StatusInternalServerError {
			s.metrics.RecordAPIError(http.StatusText(status), route)
		}
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "status", status, "took", d)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
