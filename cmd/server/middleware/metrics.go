package middleware

import (
	"net/http"
	"strconv"

	"github.com/quarryhq/quarry/pkg/infrastructure/metrics"
)

// MetricsMiddleware records request counters and latency histograms.
type MetricsMiddleware struct {
	collector metrics.Collector
}

// NewMetricsMiddleware creates a new metrics middleware.
func NewMetricsMiddleware(collector metrics.Collector) *MetricsMiddleware {
	return &MetricsMiddleware{
		collector: collector,
	}
}

// Handler wraps next with metrics collection. The route label uses the
// matched mux pattern so path parameters do not explode cardinality.
func (m *MetricsMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := m.collector.StartTimer("http_request_duration_seconds")

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		elapsed := timer.Stop()
		m.collector.RecordHistogram("http_request_duration_seconds", elapsed, "route", route)
		m.collector.IncrementCounter("http_requests_total",
			"route", route, "status", strconv.Itoa(rec.status))
	})
}
