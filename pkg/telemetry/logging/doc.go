// Package logging builds the process logger on top of log/slog.
//
// # Overview
//
// New returns a Logger whose handler is JSON or text, whose level lives in a
// slog.LevelVar (so a config reload can change it without rebuilding
// handlers), and whose records are enriched from the context:
//
//   - conn_id, set by the connection handler with WithConnID
//   - trace_id and span_id, taken from the active OpenTelemetry span
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger.Logger)
//
//	ctx = logging.WithConnID(ctx, id)
//	slog.InfoContext(ctx, "connection closed", "outcome", "hit")
package logging
