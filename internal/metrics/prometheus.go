package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "accountpulse"

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	registry          *prometheus.Registry
	upstreamCalls     *prometheus.CounterVec
	upstreamDurations *prometheus.HistogramVec
	handlerFailures   *prometheus.CounterVec
	listCache         *prometheus.CounterVec
	rateLimited       *prometheus.CounterVec
}

// NewPrometheus registers the application collectors plus the Go and process
// collectors on a fresh registry.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()

	r := &PrometheusRecorder{
		registry: reg,
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Calls made to third-party integrations.",
		}, []string{"service", "outcome"}),
		upstreamDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_call_duration_seconds",
			Help:      "Latency of calls to third-party integrations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_failures_total",
			Help:      "Handler responses that carried an error envelope.",
		}, []string{"endpoint", "kind"}),
		listCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_cache_lookups_total",
			Help:      "Listing cache lookups by result.",
		}, []string{"service", "result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by a rate limiter.",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.upstreamCalls,
		r.upstreamDurations,
		r.handlerFailures,
		r.listCache,
		r.rateLimited,
	)

	return r
}

// Gatherer returns the registry for exposition.
func (r *PrometheusRecorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// IncUpstreamCall increments the upstream call counter.
func (r *PrometheusRecorder) IncUpstreamCall(service, outcome string) {
	r.upstreamCalls.WithLabelValues(service, outcome).Inc()
}

// ObserveUpstreamDuration records upstream call latency.
func (r *PrometheusRecorder) ObserveUpstreamDuration(service string, duration time.Duration) {
	r.upstreamDurations.WithLabelValues(service).Observe(duration.Seconds())
}

// IncHandlerFailure increments the handler failure counter.
func (r *PrometheusRecorder) IncHandlerFailure(endpoint, kind string) {
	r.handlerFailures.WithLabelValues(endpoint, kind).Inc()
}

// IncListCache increments the listing cache counter.
func (r *PrometheusRecorder) IncListCache(service, result string) {
	r.listCache.WithLabelValues(service, result).Inc()
}

// IncRateLimited increments the rate-limited counter.
func (r *PrometheusRecorder) IncRateLimited(scope string) {
	r.rateLimited.WithLabelValues(scope).Inc()
}
