package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cacheproxy/pkg/config"
	"mercator-hq/cacheproxy/pkg/pool"
)

// registerPoolMetrics registers scrape-time views of src.
func registerPoolMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry, src PoolSource) {
	gauge := func(name, help string, pick func(pool.Stats) int) prometheus.Collector {
		return newGaugeFunc(cfg, name, help, func() float64 { return float64(pick(src.Stats())) })
	}
	counter := func(name, help string, pick func(pool.Stats) uint64) prometheus.Collector {
		return newCounterFunc(cfg, name, help, func() float64 { return float64(pick(src.Stats())) })
	}

	registry.MustRegister(
		gauge("pool_workers", "Number of worker goroutines", func(s pool.Stats) int { return s.Workers }),
		gauge("pool_queue_capacity", "Number of queue slots", func(s pool.Stats) int { return s.QueueCapacity }),
		gauge("pool_queue_depth", "Connections waiting for a worker", func(s pool.Stats) int { return s.Queued }),
		gauge("pool_active", "Connections being served", func(s pool.Stats) int { return s.Active }),
		counter("pool_submitted_total", "Total connections accepted into the queue", func(s pool.Stats) uint64 { return s.Submitted }),
		counter("pool_rejected_total", "Total connections rejected because the queue was full", func(s pool.Stats) uint64 { return s.Rejected }),
		counter("pool_completed_total", "Total tasks run to completion", func(s pool.Stats) uint64 { return s.Completed }),
		counter("pool_discarded_total", "Total queued tasks dropped at shutdown", func(s pool.Stats) uint64 { return s.Discarded }),
		counter("pool_panics_total", "Total tasks that panicked", func(s pool.Stats) uint64 { return s.Panics }),
	)
}
