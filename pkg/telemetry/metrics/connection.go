package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cacheproxy/pkg/config"
	"mercator-hq/cacheproxy/pkg/proxy"
)

// ConnectionMetrics tracks finished client connections.
//
// Metrics:
//   - connections_total: finished connections by outcome
//   - connection_duration_seconds: accept-to-close duration by outcome
//   - response_bytes_total: bytes written back to clients
type ConnectionMetrics struct {
	total         *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	responseBytes prometheus.Counter
}

// NewConnectionMetrics creates and registers connection metrics with the
// provided registry. Every outcome label is created up front so rates start
// at zero instead of appearing on first use.
func NewConnectionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ConnectionMetrics {
	cm := &ConnectionMetrics{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "connections_total",
				Help:      "Total number of finished client connections",
			},
			[]string{"outcome"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "connection_duration_seconds",
				Help:      "Time from accepting a connection to closing it",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"outcome"},
		),

		responseBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "response_bytes_total",
				Help:      "Total bytes written to clients",
			},
		),
	}

	registry.MustRegister(cm.total, cm.duration, cm.responseBytes)

	for _, o := range proxy.Outcomes {
		cm.total.WithLabelValues(string(o))
	}

	return cm
}

// Observe records rec.
func (cm *ConnectionMetrics) Observe(rec proxy.Record) {
	outcome := string(rec.Outcome)
	cm.total.WithLabelValues(outcome).Inc()
	// Discarded connections were never served; their duration means nothing.
	if rec.Outcome != proxy.OutcomeDiscarded {
		cm.duration.WithLabelValues(outcome).Observe(rec.Duration.Seconds())
	}
	if rec.BytesOut > 0 {
		cm.responseBytes.Add(float64(rec.BytesOut))
	}
}
