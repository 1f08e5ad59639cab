package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cacheproxy/pkg/cache"
	"mercator-hq/cacheproxy/pkg/config"
)

// registerCacheMetrics registers scrape-time views of src.
func registerCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry, src CacheSource) {
	gauge := func(name, help string, pick func(cache.Stats) int) prometheus.Collector {
		return newGaugeFunc(cfg, name, help, func() float64 { return float64(pick(src.Stats())) })
	}
	counter := func(name, help string, pick func(cache.Stats) uint64) prometheus.Collector {
		return newCounterFunc(cfg, name, help, func() float64 { return float64(pick(src.Stats())) })
	}

	registry.MustRegister(
		gauge("cache_entries", "Current number of cached responses", func(s cache.Stats) int { return s.Size }),
		gauge("cache_capacity", "Maximum number of cached responses", func(s cache.Stats) int { return s.Capacity }),
		counter("cache_hits_total", "Total number of cache hits", func(s cache.Stats) uint64 { return s.Hits }),
		counter("cache_misses_total", "Total number of cache misses", func(s cache.Stats) uint64 { return s.Misses }),
		counter("cache_inserts_total", "Total number of new cache entries", func(s cache.Stats) uint64 { return s.Inserts }),
		counter("cache_updates_total", "Total number of in-place cache updates", func(s cache.Stats) uint64 { return s.Updates }),
		counter("cache_evictions_total", "Total number of least recently used evictions", func(s cache.Stats) uint64 { return s.Evictions }),
	)
}
