package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "libraryclient"

// Metrics holds the client's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	staleResponses  *prometheus.CounterVec
	slotFailures    prometheus.Counter
	httpRequests    *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Requests sent to the library backend, by operation and outcome.",
		}, []string{"op", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Latency of library backend requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		staleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Responses discarded because a newer fetch of the same kind was started.",
		}, []string{"kind"}),
		slotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_slot_failures_total",
			Help:      "Statistics periods that fell back to the no-data sentinel.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests served by the local HTTP API, by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.backendRequests,
		m.backendLatency,
		m.staleResponses,
		m.slotFailures,
		m.httpRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveRequest records one backend round trip
func (m *Metrics) ObserveRequest(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(op, outcome).Inc()
	m.backendLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// StaleResponse counts a discarded out-of-order response
func (m *Metrics) StaleResponse(kind string) {
	if m == nil {
		return
	}
	m.staleResponses.WithLabelValues(kind).Inc()
}

// SlotFailure counts a fan-out period that failed
func (m *Metrics) SlotFailure() {
	if m == nil {
		return
	}
	m.slotFailures.Inc()
}

// ObserveHTTP records a request served by the local API
func (m *Metrics) ObserveHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
