// Package metrics collects Prometheus metrics for the catalog client.
//
// Nothing here listens on a port: collectors register on an injectable
// registry and the CLI dumps gathered families in text format on demand.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Request outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Cache events.
const (
	EventHit         = "hit"
	EventMiss        = "miss"
	EventStaleServed = "stale_served"
	EventRevalidate  = "revalidate"
)

// Metrics holds all collectors for the catalog client.
type Metrics struct {
	registry *prometheus.Registry

	APIRequests        *prometheus.CounterVec
	APIRetries         prometheus.Counter
	APIRequestDuration *prometheus.HistogramVec
	CacheEvents        *prometheus.CounterVec
}

// New creates a Metrics set registered on the given registry.
// A nil registry gets a fresh one, which keeps tests isolated.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopwise_api_requests_total",
			Help: "Catalog API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		APIRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shopwise_api_retries_total",
			Help: "Catalog API retry attempts.",
		}),
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopwise_api_request_duration_seconds",
			Help:    "Catalog API request duration by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		CacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopwise_cache_events_total",
			Help: "Entity cache events by entity and event type.",
		}, []string{"entity", "event"}),
	}

	reg.MustRegister(m.APIRequests, m.APIRetries, m.APIRequestDuration, m.CacheEvents)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Dump writes all gathered metric families to w in Prometheus text format.
func (m *Metrics) Dump(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encoding metrics: %w", err)
		}
	}
	return nil
}
