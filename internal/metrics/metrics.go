// Package metrics holds the Prometheus collectors exported by the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gateway"

// Upstream call outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// Metrics groups every collector. Collectors are registered on the registry
// passed to New so tests can use an isolated registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal       *prometheus.CounterVec
	HTTPRequestDuration     *prometheus.HistogramVec
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
	CircuitBreakerState     *prometheus.GaugeVec
	JobsPublishedTotal      *prometheus.CounterVec
}

// New creates and registers the gateway collectors on registry.
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled by the gateway",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "route"},
		),
		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of calls to upstream services by outcome",
			},
			[]string{"service", "outcome"},
		),
		UpstreamRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Upstream call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state per upstream (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		JobsPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_published_total",
				Help:      "Total number of job publish attempts by outcome",
			},
			[]string{"queue", "outcome"},
		),
	}
}

// NewNop returns metrics backed by a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// RecordHTTPRequest records a completed gateway request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUpstreamRequest records one upstream call.
func (m *Metrics) RecordUpstreamRequest(service, outcome string, duration time.Duration) {
	m.UpstreamRequestsTotal.WithLabelValues(service, outcome).Inc()
	if outcome != OutcomeRejected {
		m.UpstreamRequestDuration.WithLabelValues(service).Observe(duration.Seconds())
	}
}

// SetCircuitBreakerState stores the numeric breaker state for service.
func (m *Metrics) SetCircuitBreakerState(service string, state float64) {
	m.CircuitBreakerState.WithLabelValues(service).Set(state)
}

// RecordJobPublished records a publish attempt on queue.
func (m *Metrics) RecordJobPublished(queue string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.JobsPublishedTotal.WithLabelValues(queue, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
