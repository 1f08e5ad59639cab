package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

// ConnIDKey is the context key for connection IDs.
const ConnIDKey contextKey = "conn_id"

// WithConnID adds a connection ID to the context.
func WithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ConnIDKey, id)
}

// GetConnID retrieves the connection ID from the context.
func GetConnID(ctx context.Context) string {
	if id, ok := ctx.Value(ConnIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextHandler adds conn_id, trace_id and span_id from the record's context
// before passing it on.
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: next}
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id := GetConnID(ctx); id != "" {
			r.AddAttrs(slog.String("conn_id", id))
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			r.AddAttrs(
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
		}
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}
