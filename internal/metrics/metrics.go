// internal/metrics/metrics.go

// Package metrics exposes Prometheus counters for the save pipeline and the
// HTTP layer. Everything registers against the default registry and is
// served by Handler at GET /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProductSaves counts accepted product saves by operation (create, update).
var ProductSaves = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "verdict_cms_product_saves_total",
	Help: "Accepted product saves.",
}, []string{"operation"})

// Rejections counts refused saves by the pipeline stage that refused them.
var Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "verdict_cms_save_rejections_total",
	Help: "Product saves refused by the publication rules, by stage.",
}, []string{"stage"})

// Conflicts counts detected conflicts by severity.
var Conflicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "verdict_cms_conflicts_total",
	Help: "Verdict conflicts detected, by severity.",
}, []string{"severity"})

// CategoryLookupFailures counts category lookups that failed open.
var CategoryLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "verdict_cms_category_lookup_failures_total",
	Help: "Category rule lookups that failed and were skipped.",
})

// JobRuns counts background job executions by job name and result.
var JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "verdict_cms_job_runs_total",
	Help: "Background job runs by name and result.",
}, []string{"job", "result"})

// HTTPRequests counts HTTP requests by method, route and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "verdict_cms_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "path", "status"})

// HTTPDuration tracks HTTP request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "verdict_cms_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path"})

// ObserveHTTP records one finished request.
func ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
