package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes metrics in Prometheus exposition format.
type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler creates a MetricsHandler over gatherer. A nil gatherer
// makes the endpoint answer 503.
func NewMetricsHandler(gatherer prometheus.Gatherer) *MetricsHandler {
	if gatherer == nil {
		return &MetricsHandler{}
	}
	return &MetricsHandler{
		handler: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		}),
	}
}

// Metrics handles GET /metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.handler == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	h.handler.ServeHTTP(w, r)
}
