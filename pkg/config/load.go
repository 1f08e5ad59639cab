package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "CACHEPROXY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CACHEPROXY_SECTION_FIELD (e.g., CACHEPROXY_POOL_QUEUE_SIZE).
// Environment variables always take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Read builds a configuration from defaults, the YAML file at path (skipped
// when path is empty) and environment overrides, without validating it.
// The command line uses it so positional arguments can be applied before
// Validate runs.
func Read(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// envOverride binds one environment variable to a field.
type envOverride struct {
	name  string
	apply func(val string) error
}

func envString(dst *string) func(string) error {
	return func(val string) error {
		*dst = val
		return nil
	}
}

func envInt(dst *int) func(string) error {
	return func(val string) error {
		i, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		*dst = i
		return nil
	}
}

func envBool(dst *bool) func(string) error {
	return func(val string) error {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func envFloat(dst *float64) func(string) error {
	return func(val string) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func envDuration(dst *time.Duration) func(string) error {
	return func(val string) error {
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

func envOverrides(cfg *Config) []envOverride {
	return []envOverride{
		// Proxy overrides
		{"PROXY_PORT", envInt(&cfg.Proxy.Port)},
		{"PROXY_BUFFER_SIZE", envInt(&cfg.Proxy.BufferSize)},
		{"PROXY_UPSTREAM_PORT", envInt(&cfg.Proxy.UpstreamPort)},
		{"PROXY_UPSTREAM_READ", envString(&cfg.Proxy.UpstreamRead)},
		{"PROXY_MAX_RESPONSE_BYTES", envInt(&cfg.Proxy.MaxResponseBytes)},
		{"PROXY_SHUTDOWN_TIMEOUT", envDuration(&cfg.Proxy.ShutdownTimeout)},

		// Pool and cache overrides
		{"POOL_WORKERS", envInt(&cfg.Pool.Workers)},
		{"POOL_QUEUE_SIZE", envInt(&cfg.Pool.QueueSize)},
		{"POOL_SHUTDOWN_MODE", envString(&cfg.Pool.ShutdownMode)},
		{"CACHE_CAPACITY", envInt(&cfg.Cache.Capacity)},

		// Telemetry overrides
		{"TELEMETRY_LOGGING_LEVEL", envString(&cfg.Telemetry.Logging.Level)},
		{"TELEMETRY_LOGGING_FORMAT", envString(&cfg.Telemetry.Logging.Format)},
		{"TELEMETRY_LOGGING_ADD_SOURCE", envBool(&cfg.Telemetry.Logging.AddSource)},
		{"TELEMETRY_METRICS_ENABLED", envBool(&cfg.Telemetry.Metrics.Enabled)},
		{"TELEMETRY_METRICS_LISTEN_ADDRESS", envString(&cfg.Telemetry.Metrics.ListenAddress)},
		{"TELEMETRY_METRICS_PATH", envString(&cfg.Telemetry.Metrics.Path)},
		{"TELEMETRY_TRACING_ENABLED", envBool(&cfg.Telemetry.Tracing.Enabled)},
		{"TELEMETRY_TRACING_ENDPOINT", envString(&cfg.Telemetry.Tracing.Endpoint)},
		{"TELEMETRY_TRACING_INSECURE", envBool(&cfg.Telemetry.Tracing.Insecure)},
		{"TELEMETRY_TRACING_SAMPLE_RATIO", envFloat(&cfg.Telemetry.Tracing.SampleRatio)},
		{"TELEMETRY_STATS_ENABLED", envBool(&cfg.Telemetry.Stats.Enabled)},
		{"TELEMETRY_STATS_SCHEDULE", envString(&cfg.Telemetry.Stats.Schedule)},

		// Journal overrides
		{"JOURNAL_ENABLED", envBool(&cfg.Journal.Enabled)},
		{"JOURNAL_PATH", envString(&cfg.Journal.Path)},
		{"JOURNAL_BUFFER", envInt(&cfg.Journal.Buffer)},

		{"WATCH_ENABLED", envBool(&cfg.Watch.Enabled)},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format CACHEPROXY_SECTION_FIELD. A value that
// does not parse for its field is an error.
func applyEnvOverrides(cfg *Config) error {
	for _, o := range envOverrides(cfg) {
		name := EnvPrefix + o.name
		val := os.Getenv(name)
		if val == "" {
			continue
		}
		if err := o.apply(val); err != nil {
			return fmt.Errorf("invalid value %q for %s: %w", val, name, err)
		}
	}
	return nil
}
