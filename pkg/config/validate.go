package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "pool.queue_size").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validatePool(&cfg.Pool)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validatePort(field string, port int) []FieldError {
	if port < 1 || port > 65535 {
		return []FieldError{{
			Field:   field,
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", port),
		}}
	}
	return nil
}

// validateProxy validates proxy configuration.
func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, validatePort("proxy.port", cfg.Port)...)
	errs = append(errs, validatePort("proxy.upstream_port", cfg.UpstreamPort)...)

	if cfg.BufferSize < 2 {
		errs = append(errs, FieldError{
			Field:   "proxy.buffer_size",
			Message: fmt.Sprintf("buffer size must be at least 2, got %d", cfg.BufferSize),
		})
	}

	switch cfg.UpstreamRead {
	case "single", "full":
	default:
		errs = append(errs, FieldError{
			Field:   "proxy.upstream_read",
			Message: fmt.Sprintf("invalid upstream read mode %q: must be 'single' or 'full'", cfg.UpstreamRead),
		})
	}

	if cfg.MaxResponseBytes <= 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_response_bytes",
			Message: "max response bytes must be positive",
		})
	}

	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.shutdown_timeout",
			Message: "shutdown timeout must not be negative",
		})
	}

	return errs
}

// validatePool validates worker pool configuration.
func validatePool(cfg *PoolConfig) []FieldError {
	var errs []FieldError

	if cfg.Workers <= 0 {
		errs = append(errs, FieldError{
			Field:   "pool.workers",
			Message: fmt.Sprintf("worker count must be positive, got %d", cfg.Workers),
		})
	}
	if cfg.QueueSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "pool.queue_size",
			Message: fmt.Sprintf("queue size must be positive, got %d", cfg.QueueSize),
		})
	}

	switch cfg.ShutdownMode {
	case "drop", "drain":
	default:
		errs = append(errs, FieldError{
			Field:   "pool.shutdown_mode",
			Message: fmt.Sprintf("invalid shutdown mode %q: must be 'drop' or 'drain'", cfg.ShutdownMode),
		})
	}

	return errs
}

// validateCache validates cache configuration.
func validateCache(cfg *CacheConfig) []FieldError {
	if cfg.Capacity <= 0 {
		return []FieldError{{
			Field:   "cache.capacity",
			Message: fmt.Sprintf("cache capacity must be positive, got %d", cfg.Capacity),
		}}
	}
	if cfg.Capacity > math.MaxInt32 {
		return []FieldError{{
			Field:   "cache.capacity",
			Message: fmt.Sprintf("cache capacity must be at most %d, got %d", math.MaxInt32, cfg.Capacity),
		}}
	}
	return nil
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.ListenAddress == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: "listen address is required when metrics are enabled",
			})
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
	}
	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Stats.Enabled {
		if _, err := cron.ParseStandard(cfg.Stats.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.stats.schedule",
				Message: fmt.Sprintf("invalid schedule %q: %v", cfg.Stats.Schedule, err),
			})
		}
	}

	return errs
}

// validateJournal validates journal configuration.
func validateJournal(cfg *JournalConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "journal.path",
			Message: "path is required when the journal is enabled",
		})
	}
	if cfg.Buffer <= 0 {
		errs = append(errs, FieldError{
			Field:   "journal.buffer",
			Message: "buffer must be positive",
		})
	}
	return errs
}
