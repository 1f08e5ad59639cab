// Package config provides configuration management for the caching proxy.
//
// Configuration comes from four layers, later overriding earlier:
//
//  1. Default values (defined in defaults.go)
//  2. Values from an optional YAML file
//  3. Environment variables named CACHEPROXY_SECTION_FIELD
//  4. Command-line flags and positional arguments
//
// The command line calls Read for layers 1 to 3, applies its own values and
// then calls Validate. LoadConfig and LoadConfigWithEnvOverrides load and
// validate in one step for callers whose file is complete.
//
// # Environment Variable Overrides
//
//   - CACHEPROXY_PROXY_PORT overrides proxy.port
//   - CACHEPROXY_POOL_QUEUE_SIZE overrides pool.queue_size
//   - CACHEPROXY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Validation
//
// Validation collects every problem and reports them together:
//
//	configuration validation failed with 2 errors:
//	  - pool.workers: worker count must be positive, got 0
//	  - cache.capacity: cache capacity must be positive, got 0
//
// # Example Configuration
//
//	proxy:
//	  port: 8080
//	  upstream_read: "single"
//
//	pool:
//	  workers: 8
//	  queue_size: 100
//	  shutdown_mode: "drain"
//
//	cache:
//	  capacity: 1000
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//	  metrics:
//	    enabled: true
//	    listen_address: "127.0.0.1:9090"
//
//	watch:
//	  enabled: true
//
// # Reloading
//
// Watcher re-reads the file on change. Only the log level is applied at
// runtime; every other setting needs a restart.
package config
