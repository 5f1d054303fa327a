// Package metrics exposes the keyring daemon's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors registered for the daemon.
type Metrics struct {
	RPCRequests    *prometheus.CounterVec
	Signatures     *prometheus.CounterVec
	PersistedBytes prometheus.Gauge
}

// New registers the keyring collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RPCRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keyring_rpc_requests_total",
			Help: "RPC calls handled, by method and outcome.",
		}, []string{"method", "outcome"}),
		Signatures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keyring_signatures_total",
			Help: "Signatures produced, by signing method.",
		}, []string{"method"}),
		PersistedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "keyring_persisted_state_bytes",
			Help: "Size of the last persisted state blob.",
		}),
	}
}
