// Package metrics declares the Prometheus collectors exported by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "todokeeper"

// Resolution results recorded by the tenant registry.
const (
	ResultHit    = "hit"
	ResultOpened = "opened"
	ResultError  = "error"
)

// RegistryMetrics tracks tenant store resolution. A nil *RegistryMetrics is
// valid and records nothing.
type RegistryMetrics struct {
	resolutions *prometheus.CounterVec
	openStores  prometheus.Gauge
}

// NewRegistryMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewRegistryMetrics(reg prometheus.Registerer) *RegistryMetrics {
	factory := promauto.With(reg)
	return &RegistryMetrics{
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenant",
			Name:      "resolutions_total",
			Help:      "Tenant store resolutions by result.",
		}, []string{"result"}),
		openStores: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tenant",
			Name:      "open_stores",
			Help:      "Number of tenant stores currently held open.",
		}),
	}
}

// Observe counts one resolution with the given result.
func (m *RegistryMetrics) Observe(result string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(result).Inc()
}

// SetOpen records the number of open stores.
func (m *RegistryMetrics) SetOpen(n int) {
	if m == nil {
		return
	}
	m.openStores.Set(float64(n))
}
