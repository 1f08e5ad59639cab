// Package metrics exposes the proxy's state as Prometheus metrics.
//
// # Metrics
//
//   - <ns>_connections_total{outcome}: finished connections by outcome
//   - <ns>_connection_duration_seconds{outcome}: time from accept to close
//   - <ns>_response_bytes_total: bytes written to clients
//   - <ns>_cache_{hits,misses,inserts,updates,evictions}_total
//   - <ns>_cache_entries, <ns>_cache_capacity
//   - <ns>_pool_{submitted,rejected,completed,discarded,panics}_total
//   - <ns>_pool_workers, <ns>_pool_queue_depth, <ns>_pool_queue_capacity,
//     <ns>_pool_active
//   - <ns>_journal_{written,dropped}_total
//
// Cache, pool and journal values are read from their Stats at scrape time,
// so the components keep a single set of counters.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RegisterCache(lru)
//	collector.RegisterPool(workers)
//	handler, _ := proxy.NewHandler(lru, pcfg, proxy.WithObserver(collector))
//	http.Handle("/metrics", collector.Handler())
package metrics
