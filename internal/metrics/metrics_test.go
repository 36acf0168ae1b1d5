// ABOUTME: Tests for the Prometheus collector.
// ABOUTME: Uses testutil to read counters from the collector's own registry.
package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAggregation(t *testing.T) {
	c := NewCollector("healthlog")

	c.ObserveAggregation("day", 12, 3*time.Millisecond, nil)
	c.ObserveAggregation("day", 0, time.Millisecond, errors.New("boom"))
	c.ObserveAggregation("report", 40, 10*time.Millisecond, nil)

	if got := testutil.ToFloat64(c.AggregationsTotal.WithLabelValues("day", "ok")); got != 1 {
		t.Errorf("Expected 1 ok day aggregation, got %v", got)
	}
	if got := testutil.ToFloat64(c.AggregationsTotal.WithLabelValues("day", "error")); got != 1 {
		t.Errorf("Expected 1 failed day aggregation, got %v", got)
	}
	if got := testutil.CollectAndCount(c.AggregationDuration); got != 2 {
		t.Errorf("Expected 2 duration series, got %d", got)
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("healthlog")
	b := NewCollector("healthlog")

	a.RecordAPIRequest("/health", "GET", "200", time.Millisecond)

	if got := testutil.ToFloat64(b.APIRequestsTotal.WithLabelValues("/health", "GET", "200")); got != 0 {
		t.Errorf("Expected second collector untouched, got %v", got)
	}

	n, err := testutil.GatherAndCount(a.Registry(), "healthlog_api_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 request series in first registry, got %d", n)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("healthlog")
	c.RecordAPIError("unavailable", "/api/report")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "healthlog_api_errors_total") {
		t.Error("Expected api_errors_total in metrics output")
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("Expected Go runtime metrics in output")
	}
}
