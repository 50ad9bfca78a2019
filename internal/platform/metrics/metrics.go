// Package metrics holds the Prometheus collectors shared by the vault API and the event relay.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/microcredit-pool-ledger/internal/domain/pool"
)

const namespace = "microcredit"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	operations  *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
	pool        *prometheus.GaugeVec
	outbox      *prometheus.CounterVec
	projections *prometheus.CounterVec
}

// New registers all collectors on reg. Passing nil creates a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations segmented by operation and outcome.",
		}, []string{"operation", "outcome"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for vault API handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		pool: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "balance_minor_units",
			Help:      "Pool balances in minor units (6 decimals).",
		}, []string{"kind"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "messages_total",
			Help:      "Outbox messages handled by the relay, by result.",
		}, []string{"result"}),
		projections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "projections_total",
			Help:      "Events projected into the audit store, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.operations, m.httpLatency, m.pool, m.outbox, m.projections)
	return m
}

// Registry returns the registry the collectors were registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordOperation counts a ledger operation. outcome is "ok" or the error code.
func (m *Metrics) RecordOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// SetPool publishes the pool balances.
func (m *Metrics) SetPool(s pool.State) {
	if m == nil {
		return
	}
	m.pool.WithLabelValues("raw_liquidity").Set(float64(s.RawLiquidity))
	m.pool.WithLabelValues("outstanding_principal").Set(float64(s.OutstandingPrincipal))
	m.pool.WithLabelValues("defaulted_principal").Set(float64(s.DefaultedPrincipal))
	m.pool.WithLabelValues("total_assets").Set(float64(s.TotalAssets()))
	m.pool.WithLabelValues("total_shares").Set(float64(s.TotalShares))
}

// RecordOutbox counts a relay result such as "published", "retry", "deferred" or "failed".
func (m *Metrics) RecordOutbox(result string) {
	if m == nil {
		return
	}
	m.outbox.WithLabelValues(result).Inc()
}

// RecordProjection counts an audit projection result: "stored", "duplicate", "invalid" or "error".
func (m *Metrics) RecordProjection(result string) {
	if m == nil {
		return
	}
	m.projections.WithLabelValues(result).Inc()
}

// OperationCounter returns the counter for one operation and outcome.
func (m *Metrics) OperationCounter(operation, outcome string) prometheus.Counter {
	return m.operations.WithLabelValues(operation, outcome)
}

// OutboxCounter returns the relay counter for one result.
func (m *Metrics) OutboxCounter(result string) prometheus.Counter {
	return m.outbox.WithLabelValues(result)
}

// ProjectionCounter returns the audit projection counter for one result.
func (m *Metrics) ProjectionCounter(result string) prometheus.Counter {
	return m.projections.WithLabelValues(result)
}
