// ABOUTME: Prometheus metrics for the HTTP boundary and the aggregation engine.
// ABOUTME: Each Collector owns its registry so tests and servers never collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector provides application metrics collection
type Collector struct {
	registry *prometheus.Registry

	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Aggregation Metrics
	AggregationsTotal   *prometheus.CounterVec
	AggregationDuration *prometheus.HistogramVec
	AggregationRecords  *prometheus.HistogramVec
}

// NewCollector creates a collector with a fresh registry that also carries
// the Go runtime and process collectors.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by route, method, and status",
			},
			[]string{"route", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"route"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "route"},
		),

		AggregationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregations_total",
				Help:      "Total number of aggregation calls by operation and outcome",
			},
			[]string{"op", "outcome"},
		),

		AggregationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "aggregation_duration_seconds",
				Help:      "Duration of aggregation calls including the snapshot read",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"op"},
		),

		AggregationRecords: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "aggregation_snapshot_records",
				Help:      "Number of records in the snapshot an aggregation ran over",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"op"},
		),
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveAggregation records one aggregation call.
func (c *Collector) ObserveAggregation(op string, records int, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.AggregationsTotal.WithLabelValues(op, outcome).Inc()
	c.AggregationDuration.WithLabelValues(op).Observe(d.Seconds())
	if err == nil {
		c.AggregationRecords.WithLabelValues(op).Observe(float64(records))
	}
}

// RecordAPIRequest increments the request counter and observes its duration.
func (c *Collector) RecordAPIRequest(route, method, status string, d time.Duration) {
	c.APIRequestsTotal.WithLabelValues(route, method, status).Inc()
	c.APIRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, route string) {
	c.APIErrorsTotal.WithLabelValues(errorType, route).Inc()
}
