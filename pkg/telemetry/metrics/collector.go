package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cacheproxy/pkg/cache"
	"mercator-hq/cacheproxy/pkg/config"
	"mercator-hq/cacheproxy/pkg/pool"
	"mercator-hq/cacheproxy/pkg/proxy"
)

// CacheSource is anything reporting cache statistics.
type CacheSource interface {
	Stats() cache.Stats
}

// PoolSource is anything reporting worker pool statistics.
type PoolSource interface {
	Stats() pool.Stats
}

// JournalSource reports how many journal records were written and dropped.
type JournalSource interface {
	Written() uint64
	Dropped() uint64
}

// Collector owns the proxy's metrics and the registry they live in.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	connections *ConnectionMetrics
}

// NewCollector creates a collector with the specified configuration and
// Prometheus registry. If registry is nil, a fresh registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNS
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:      cfg,
		registry:    registry,
		connections: NewConnectionMetrics(cfg, registry),
	}
}

// ObserveConnection records a finished connection. It makes Collector a
// proxy.Observer.
func (c *Collector) ObserveConnection(rec proxy.Record) {
	c.connections.Observe(rec)
}

// RegisterCache exports src's statistics.
func (c *Collector) RegisterCache(src CacheSource) {
	registerCacheMetrics(c.config, c.registry, src)
}

// RegisterPool exports src's statistics.
func (c *Collector) RegisterPool(src PoolSource) {
	registerPoolMetrics(c.config, c.registry, src)
}

// RegisterJournal exports src's write and drop counts.
func (c *Collector) RegisterJournal(src JournalSource) {
	c.registry.MustRegister(
		c.counterFunc("journal_written_total", "Total connection records written to the journal",
			func() float64 { return float64(src.Written()) }),
		c.counterFunc("journal_dropped_total", "Total connection records dropped because the journal buffer was full",
			func() float64 { return float64(src.Dropped()) }),
	)
}

func (c *Collector) counterFunc(name, help string, fn func() float64) prometheus.CounterFunc {
	return newCounterFunc(c.config, name, help, fn)
}

func newCounterFunc(cfg *config.MetricsConfig, name, help string, fn func() float64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		},
		fn,
	)
}

func newGaugeFunc(cfg *config.MetricsConfig, name, help string, fn func() float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		},
		fn,
	)
}
