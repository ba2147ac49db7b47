// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edita_http_requests_total",
		Help: "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "edita_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	VisionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edita_vision_requests_total",
		Help: "Vision collaborator calls by backend, operation and outcome.",
	}, []string{"backend", "operation", "outcome"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edita_events_published_total",
		Help: "Project events handed to the broker by channel and outcome.",
	}, []string{"channel", "outcome"})

	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edita_events_handled_total",
		Help: "Project events consumed by the worker by outcome.",
	}, []string{"outcome"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edita_rate_limited_total",
		Help: "Requests rejected by the rate limiter by resource.",
	}, []string{"resource"})
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
