// Package metrics instruments engine operations with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	operations       *prometheus.CounterVec
	opDuration       *prometheus.HistogramVec
	capacityReserved prometheus.Counter
	capacityReleased prometheus.Counter
	conflicts        prometheus.Counter
}

// New registers the engine collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poolengine_operations_total",
			Help: "Engine operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "poolengine_operation_duration_seconds",
			Help:    "Engine operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		capacityReserved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poolengine_capacity_reserved_minor_units_total",
			Help: "Capacity reserved across all pools, in minor units.",
		}),
		capacityReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poolengine_capacity_released_minor_units_total",
			Help: "Capacity released across all pools, in minor units.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poolengine_write_conflicts_total",
			Help: "Optimistic-concurrency and lock-wait conflicts.",
		}),
	}
	reg.MustRegister(m.operations, m.opDuration, m.capacityReserved, m.capacityReleased, m.conflicts)
	return m
}

// ObserveOp records one operation's outcome and duration. Safe on a
// nil receiver so the engine can run uninstrumented in tests.
func (m *Metrics) ObserveOp(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.opDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// AddReserved records reserved capacity.
func (m *Metrics) AddReserved(minorUnits int64) {
	if m == nil {
		return
	}
	m.capacityReserved.Add(float64(minorUnits))
}

// AddReleased records released capacity.
func (m *Metrics) AddReleased(minorUnits int64) {
	if m == nil {
		return
	}
	m.capacityReleased.Add(float64(minorUnits))
}

// IncConflict records a write conflict.
func (m *Metrics) IncConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}
