// Package tracing sets up OpenTelemetry tracing for the proxy.
//
// When enabled, spans are exported over OTLP/gRPC in batches and the
// provider is installed as the global one, so components that call
// otel.Tracer pick it up. When disabled, a no-op tracer is used.
//
// Each client connection produces a "proxy.connection" server span; a cache
// miss adds a "proxy.upstream" client span beneath it.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version.Version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
package tracing
