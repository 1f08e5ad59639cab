package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	cfg := Config{}
	ApplyDefaults(&cfg)
	cfg.Proxy.Port = 8080
	cfg.Pool.Workers = 4
	cfg.Cache.Capacity = 16
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithPort sets the listen port.
func (b *ConfigBuilder) WithPort(port int) *ConfigBuilder {
	b.cfg.Proxy.Port = port
	return b
}

// WithWorkers sets the worker count.
func (b *ConfigBuilder) WithWorkers(n int) *ConfigBuilder {
	b.cfg.Pool.Workers = n
	return b
}

// WithQueueSize sets the pool queue size.
func (b *ConfigBuilder) WithQueueSize(n int) *ConfigBuilder {
	b.cfg.Pool.QueueSize = n
	return b
}

// WithCapacity sets the cache capacity.
func (b *ConfigBuilder) WithCapacity(n int) *ConfigBuilder {
	b.cfg.Cache.Capacity = n
	return b
}

// WithLogLevel sets the logging level.
func (b *ConfigBuilder) WithLogLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}

// WithTracing enables tracing with the given endpoint.
func (b *ConfigBuilder) WithTracing(endpoint string) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Enabled = true
	b.cfg.Telemetry.Tracing.Endpoint = endpoint
	return b
}

// WithJournal enables the journal at path.
func (b *ConfigBuilder) WithJournal(path string) *ConfigBuilder {
	b.cfg.Journal.Enabled = true
	b.cfg.Journal.Path = path
	return b
}

// WithShutdownTimeout sets the shutdown timeout.
func (b *ConfigBuilder) WithShutdownTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Proxy.ShutdownTimeout = d
	return b
}
