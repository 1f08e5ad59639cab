package config

import "time"

// Config is the root configuration structure for the caching proxy.
type Config struct {
	// Proxy contains listener and connection I/O settings.
	Proxy ProxyConfig `yaml:"proxy"`

	// Pool contains worker pool sizing and shutdown behaviour.
	Pool PoolConfig `yaml:"pool"`

	// Cache contains response cache sizing.
	Cache CacheConfig `yaml:"cache"`

	// Telemetry contains logging, metrics, tracing and stats reporting.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Journal contains the optional SQLite connection journal.
	Journal JournalConfig `yaml:"journal"`

	// Watch controls reloading of the configuration file.
	Watch WatchConfig `yaml:"watch"`
}

// ProxyConfig contains configuration for the proxy listener and per-connection I/O.
type ProxyConfig struct {
	// Port is the TCP port to listen on, on all interfaces.
	// Required; usually given as the first positional argument.
	Port int `yaml:"port"`

	// BufferSize bounds every single read; at most BufferSize-1 bytes are read.
	// Default: 4096
	BufferSize int `yaml:"buffer_size"`

	// UpstreamPort is the port dialled on the resolved Host.
	// Default: 80
	UpstreamPort int `yaml:"upstream_port"`

	// UpstreamRead selects how the upstream response is read.
	// Options: "single" (one bounded read), "full" (until EOF, up to MaxResponseBytes)
	// Default: "single"
	UpstreamRead string `yaml:"upstream_read"`

	// MaxResponseBytes caps a full upstream read.
	// Default: 1048576 (1MB)
	MaxResponseBytes int `yaml:"max_response_bytes"`

	// ShutdownTimeout bounds how long shutdown waits for in-flight connections.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PoolConfig contains configuration for the worker pool.
type PoolConfig struct {
	// Workers is the number of worker goroutines.
	// Required; usually given as the second positional argument.
	Workers int `yaml:"workers"`

	// QueueSize is the number of connections that may wait for a worker.
	// Default: 100
	QueueSize int `yaml:"queue_size"`

	// ShutdownMode selects what happens to queued connections at shutdown.
	// Options: "drop" (close them unserved), "drain" (serve them first)
	// Default: "drop"
	ShutdownMode string `yaml:"shutdown_mode"`
}

// CacheConfig contains configuration for the response cache.
type CacheConfig struct {
	// Capacity is the maximum number of cached responses.
	// Required; usually given as the third positional argument.
	Capacity int `yaml:"capacity"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Stats contains the periodic stats report configuration.
	Stats StatsConfig `yaml:"stats"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled turns on the admin HTTP endpoint serving metrics and health.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the admin endpoint address.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the Prometheus metric namespace.
	// Default: "cacheproxy"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	// Default: ""
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are the histogram buckets for connection duration, in seconds.
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled turns on span export.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address (e.g., "localhost:4317").
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of connections traced (0.0-1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service.name resource attribute.
	// Default: "cacheproxy"
	ServiceName string `yaml:"service_name"`
}

// StatsConfig contains the periodic stats report configuration.
type StatsConfig struct {
	// Enabled turns on the scheduled stats log line.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression or descriptor.
	// Default: "@every 1m"
	Schedule string `yaml:"schedule"`
}

// JournalConfig contains the connection journal configuration.
type JournalConfig struct {
	// Enabled turns on recording of connection outcomes.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file.
	// Default: "data/journal.db"
	Path string `yaml:"path"`

	// Buffer is the number of records queued for the writer before new ones
	// are dropped.
	// Default: 1000
	Buffer int `yaml:"buffer"`

	// BusyTimeout is the SQLite busy timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// WatchConfig controls configuration file watching.
type WatchConfig struct {
	// Enabled reloads the log level when the configuration file changes.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Debounce is the quiet period after a change before reloading.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`
}
