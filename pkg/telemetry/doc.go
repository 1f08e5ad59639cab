// Package telemetry groups the proxy's observability packages.
//
//   - logging: slog construction with a runtime-adjustable level and
//     connection/trace IDs pulled from the context
//   - metrics: Prometheus collectors over cache, pool, connection and
//     journal state
//   - tracing: OpenTelemetry tracer provider with OTLP export
//   - stats: cron-scheduled summary log lines
//   - health: liveness and readiness checks for the admin endpoint
package telemetry
