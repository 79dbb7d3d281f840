// Package metrics provides Prometheus metrics for the clip service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Outline API
	outlineRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_outline_requests_total",
			Help: "Outline API calls by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	outlineRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_outline_request_duration_seconds",
			Help:    "Outline API call duration in seconds, retries included",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"method"},
	)

	transportRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_transport_retries_total",
			Help: "Retried transport attempts by failure kind",
		},
		[]string{"kind"},
	)

	// Provisioning
	provisionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_provision_total",
			Help: "Provisioning decisions by resource and action (hit, created, recreated)",
		},
		[]string{"resource", "action"},
	)

	cachedFolders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_cached_domain_folders",
			Help: "Number of domain folder mappings in the cache",
		},
	)

	// Clips
	clipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_clips_total",
			Help: "Clip operations by result",
		},
		[]string{"result"},
	)

	clipsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_clips_in_flight",
			Help: "Clip operations currently running",
		},
	)

	rateLimitHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clip_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	accessDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_access_denied_total",
			Help: "Requests rejected by the access filters, by filter (cidr, host)",
		},
		[]string{"filter"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordOutlineCall records one Outline API call.
func RecordOutlineCall(method, outcome string, duration time.Duration) {
	outlineRequestsTotal.WithLabelValues(method, outcome).Inc()
	outlineRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRetry records a retried transport attempt.
func RecordRetry(kind string) {
	transportRetriesTotal.WithLabelValues(kind).Inc()
}

// RecordProvision records a provisioning decision.
func RecordProvision(resource, action string) {
	provisionTotal.WithLabelValues(resource, action).Inc()
}

// SetCachedFolders sets the number of cached domain folders.
func SetCachedFolders(n int) {
	cachedFolders.Set(float64(n))
}

// ClipStarted marks a clip as in flight.
func ClipStarted() {
	clipsInFlight.Inc()
}

// ClipFinished records a finished clip.
func ClipFinished(success bool) {
	clipsInFlight.Dec()
	result := "success"
	if !success {
		result = "failure"
	}
	clipsTotal.WithLabelValues(result).Inc()
}

// RecordRateLimitHit records a rate limit rejection.
func RecordRateLimitHit() {
	rateLimitHitsTotal.Inc()
}

// RecordAccessDenied records a request rejected by an access filter.
func RecordAccessDenied(filter string) {
	accessDeniedTotal.WithLabelValues(filter).Inc()
}
