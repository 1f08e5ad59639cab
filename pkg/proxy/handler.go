package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/cacheproxy/pkg/parser"
	"mercator-hq/cacheproxy/pkg/telemetry/logging"
)

const tracerName = "mercator-hq/cacheproxy/pkg/proxy"

// Cache is the subset of the LRU cache the handler uses.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte)
}

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Dialer opens upstream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ReadMode selects how the upstream response is read.
type ReadMode int

const (
	// ReadSingle performs one bounded read of the response.
	ReadSingle ReadMode = iota

	// ReadFull reads until the upstream closes, up to MaxResponseBytes.
	ReadFull
)

// String returns the config spelling of m.
func (m ReadMode) String() string {
	switch m {
	case ReadSingle:
		return "single"
	case ReadFull:
		return "full"
	default:
		return fmt.Sprintf("ReadMode(%d)", int(m))
	}
}

// ParseReadMode parses "single" or "full".
func ParseReadMode(s string) (ReadMode, error) {
	switch s {
	case "single", "":
		return ReadSingle, nil
	case "full":
		return ReadFull, nil
	default:
		return ReadSingle, fmt.Errorf("unknown upstream read mode %q", s)
	}
}

// Config holds the handler's I/O parameters.
type Config struct {
	// BufferSize bounds a single read; at most BufferSize-1 bytes are read.
	BufferSize int

	// UpstreamPort is the port dialled on the resolved host.
	UpstreamPort int

	// UpstreamRead selects single-read or read-to-EOF.
	UpstreamRead ReadMode

	// MaxResponseBytes caps a ReadFull response.
	MaxResponseBytes int
}

// DefaultConfig returns the configuration the proxy runs with when nothing
// is overridden.
func DefaultConfig() Config {
	return Config{
		BufferSize:       4096,
		UpstreamPort:     80,
		UpstreamRead:     ReadSingle,
		MaxResponseBytes: 1 << 20,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.BufferSize < 2 {
		return fmt.Errorf("buffer size must be at least 2, got %d", c.BufferSize)
	}
	if c.UpstreamPort < 1 || c.UpstreamPort > 65535 {
		return fmt.Errorf("upstream port must be 1-65535, got %d", c.UpstreamPort)
	}
	if c.UpstreamRead == ReadFull && c.MaxResponseBytes <= 0 {
		return fmt.Errorf("max response bytes must be positive for full reads, got %d", c.MaxResponseBytes)
	}
	return nil
}

// Option configures a Handler.
type Option func(*Handler)

// WithResolver replaces net.DefaultResolver.
func WithResolver(r Resolver) Option {
	return func(h *Handler) {
		if r != nil {
			h.resolver = r
		}
	}
}

// WithDialer replaces the zero net.Dialer.
func WithDialer(d Dialer) Option {
	return func(h *Handler) {
		if d != nil {
			h.dialer = d
		}
	}
}

// WithObserver adds an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(h *Handler) {
		if o != nil {
			h.observers = append(h.observers, o)
		}
	}
}

// WithTracer sets the tracer. Default: the global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) {
		if t != nil {
			h.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Handler serves client connections. It is safe for concurrent use.
type Handler struct {
	cfg       Config
	cache     Cache
	resolver  Resolver
	dialer    Dialer
	observers Observers
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewHandler creates a Handler backed by cache.
func NewHandler(cache Cache, cfg Config, opts ...Option) (*Handler, error) {
	if cache == nil {
		return nil, errors.New("proxy handler requires a cache")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid proxy config: %w", err)
	}

	h := &Handler{
		cfg:      cfg,
		cache:    cache,
		resolver: net.DefaultResolver,
		dialer:   &net.Dialer{},
		tracer:   otel.Tracer(tracerName),
		logger:   slog.Default().With("component", "proxy"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Serve handles one client connection and closes it before returning.
func (h *Handler) Serve(ctx context.Context, conn net.Conn) {
	rec := Record{
		ID:         uuid.New().String(),
		RemoteAddr: remoteAddr(conn),
		Start:      time.Now(),
	}

	ctx = logging.WithConnID(ctx, rec.ID)
	ctx, span := h.tracer.Start(ctx, "proxy.connection",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("conn.id", rec.ID),
			attribute.String("client.address", rec.RemoteAddr),
		),
	)

	rec.Outcome, rec.Err = h.serve(ctx, conn, &rec)
	if err := conn.Close(); err != nil {
		// The response has been written already; nothing to relay.
		h.logger.DebugContext(ctx, "closing client connection", "error", err)
	}
	rec.Duration = time.Since(rec.Start)

	span.SetAttributes(
		attribute.String("proxy.outcome", string(rec.Outcome)),
		attribute.Bool("proxy.cache_hit", rec.CacheHit),
		attribute.Int("proxy.bytes_out", rec.BytesOut),
	)
	if rec.Err != nil {
		span.RecordError(rec.Err)
		span.SetStatus(codes.Error, string(rec.Outcome))
	}
	span.End()

	if rec.Err != nil {
		h.logger.WarnContext(ctx, "connection failed",
			"outcome", rec.Outcome,
			"remote_addr", rec.RemoteAddr,
			"url", rec.URL,
			"error", rec.Err,
		)
	} else {
		h.logger.DebugContext(ctx, "connection served",
			"outcome", rec.Outcome,
			"url", rec.URL,
			"bytes_out", rec.BytesOut,
			"duration", rec.Duration,
		)
	}

	h.observers.ObserveConnection(rec)
}

// serve runs the sequence up to the final close, filling in rec.
func (h *Handler) serve(ctx context.Context, conn net.Conn, rec *Record) (Outcome, error) {
	buf := make([]byte, h.cfg.BufferSize)
	n, err := conn.Read(buf[:h.cfg.BufferSize-1])
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return OutcomeReadError, stageError(StageReadRequest, err)
		}
		return OutcomeReadError, parser.ErrInvalidInput
	}
	raw := buf[:n]
	rec.BytesIn = n

	req, err := parser.Parse(raw)
	if err != nil {
		return OutcomeParseError, err
	}
	rec.Method, rec.URL, rec.Host = req.Method, req.URL, req.Host

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", req.URL),
		attribute.String("server.address", req.Host),
	)

	if req.URL == "" || req.Host == "" {
		return OutcomeInvalidRequest, fmt.Errorf("%w: url=%q host=%q", ErrEmptyRequiredField, req.URL, req.Host)
	}

	if cached, ok := h.cache.Get(req.URL); ok {
		rec.CacheHit = true
		if _, err := conn.Write(cached); err != nil {
			return OutcomeWriteError, stageError(StageWriteClient, err)
		}
		rec.BytesOut = len(cached)
		return OutcomeHit, nil
	}

	resp, outcome, err := h.fetch(ctx, req.Host, raw)
	if err != nil {
		return outcome, err
	}

	h.cache.Put(req.URL, resp)

	if _, err := conn.Write(resp); err != nil {
		return OutcomeWriteError, stageError(StageWriteClient, err)
	}
	rec.BytesOut = len(resp)
	return OutcomeMiss, nil
}

// fetch forwards raw to host and returns the response bytes.
func (h *Handler) fetch(ctx context.Context, host string, raw []byte) (resp []byte, outcome Outcome, err error) {
	ctx, span := h.tracer.Start(ctx, "proxy.upstream",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("server.address", host)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(outcome))
		} else {
			span.SetAttributes(attribute.Int("proxy.response_bytes", len(resp)))
		}
		span.End()
	}()

	ip, err := h.resolve(ctx, host)
	if err != nil {
		return nil, OutcomeResolveError, err
	}

	addr := net.JoinHostPort(ip.String(), strconv.Itoa(h.cfg.UpstreamPort))
	span.SetAttributes(attribute.String("network.peer.address", addr))

	upstream, err := h.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, OutcomeConnectError, stageError(StageConnect, err)
	}
	defer upstream.Close()

	if _, err := upstream.Write(raw); err != nil {
		return nil, OutcomeUpstreamError, stageError(StageForward, err)
	}

	resp, err = h.readResponse(upstream)
	if err != nil {
		return nil, OutcomeUpstreamError, stageError(StageReadResponse, err)
	}
	if len(resp) == 0 {
		return nil, OutcomeUpstreamError, ErrEmptyResponse
	}
	return resp, OutcomeMiss, nil
}

func (h *Handler) readResponse(upstream net.Conn) ([]byte, error) {
	if h.cfg.UpstreamRead == ReadFull {
		return io.ReadAll(io.LimitReader(upstream, int64(h.cfg.MaxResponseBytes)))
	}

	buf := make([]byte, h.cfg.BufferSize)
	n, err := upstream.Read(buf[:h.cfg.BufferSize-1])
	if n == 0 && err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// resolve returns the first IPv4 address of host, or its first address when
// it has no IPv4 one. Literal IPs are returned as is.
func (h *Handler) resolve(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}

	addrs, err := h.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrHostResolution, host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s: no addresses", ErrHostResolution, host)
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4, nil
		}
	}
	return addrs[0].IP, nil
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
