package config

import "time"

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultBufferSize       = 4096
	DefaultUpstreamPort     = 80
	DefaultUpstreamRead     = "single"
	DefaultMaxResponseBytes = 1048576 // 1MB
	DefaultShutdownTimeout  = 30 * time.Second

	// Pool defaults
	DefaultQueueSize    = 100
	DefaultShutdownMode = "drop"

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsListen  = "127.0.0.1:9090"
	DefaultMetricsPath    = "/metrics"
	DefaultMetricsNS      = "cacheproxy"
	DefaultTracingRatio   = 1.0
	DefaultTracingService = "cacheproxy"
	DefaultStatsSchedule  = "@every 1m"

	// Journal defaults
	DefaultJournalPath   = "data/journal.db"
	DefaultJournalBuffer = 1000
	DefaultJournalBusy   = 5 * time.Second

	// Watch defaults
	DefaultWatchDebounce = 100 * time.Millisecond
)

// DefaultDurationBuckets are the connection duration histogram buckets.
var DefaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Default returns a Config with every default applied. Port, workers and
// cache capacity stay zero; they have no default.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Proxy defaults
	if cfg.Proxy.BufferSize == 0 {
		cfg.Proxy.BufferSize = DefaultBufferSize
	}
	if cfg.Proxy.UpstreamPort == 0 {
		cfg.Proxy.UpstreamPort = DefaultUpstreamPort
	}
	if cfg.Proxy.UpstreamRead == "" {
		cfg.Proxy.UpstreamRead = DefaultUpstreamRead
	}
	if cfg.Proxy.MaxResponseBytes == 0 {
		cfg.Proxy.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Pool defaults
	if cfg.Pool.QueueSize == 0 {
		cfg.Pool.QueueSize = DefaultQueueSize
	}
	if cfg.Pool.ShutdownMode == "" {
		cfg.Pool.ShutdownMode = DefaultShutdownMode
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListen
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNS
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	// A zero ratio from YAML means unset; use 1.0
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Stats.Schedule == "" {
		cfg.Telemetry.Stats.Schedule = DefaultStatsSchedule
	}

	// Journal defaults
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath
	}
	if cfg.Journal.Buffer == 0 {
		cfg.Journal.Buffer = DefaultJournalBuffer
	}
	if cfg.Journal.BusyTimeout == 0 {
		cfg.Journal.BusyTimeout = DefaultJournalBusy
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
}
