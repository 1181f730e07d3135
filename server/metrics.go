package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ccamateur/botvana/metric"
)

// Metrics holds Prometheus metrics for the connection server.
type Metrics struct {
	connectionsAccepted prometheus.Counter
	activeConnections   prometheus.Gauge
	registrations       prometheus.Counter
	handlerFailures     *prometheus.CounterVec
}

// NewMetrics creates and registers server metrics. A nil registry
// returns nil, which disables metrics (nil receiver methods are no-ops).
func NewMetrics(registry *metric.Registry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		connectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botvana",
			Subsystem: "server",
			Name:      "connections_accepted_total",
			Help:      "Total bot connections accepted",
		}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "botvana",
			Subsystem: "server",
			Name:      "connections_active",
			Help:      "Connections currently holding a permit",
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botvana",
			Subsystem: "server",
			Name:      "registrations_total",
			Help:      "Total successful Hello registrations",
		}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botvana",
			Subsystem: "server",
			Name:      "handler_failures_total",
			Help:      "Connection handler failures by reason",
		}, []string{"reason"}),
	}

	registry.Register("server", "connections_accepted", m.connectionsAccepted)
	registry.Register("server", "connections_active", m.activeConnections)
	registry.Register("server", "registrations", m.registrations)
	registry.Register("server", "handler_failures", m.handlerFailures)

	return m
}

func (m *Metrics) recordAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

func (m *Metrics) connActive() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

func (m *Metrics) connDone() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *Metrics) recordRegistration() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

func (m *Metrics) recordFailure(reason string) {
	if m == nil {
		return
	}
	m.handlerFailures.WithLabelValues(reason).Inc()
}
