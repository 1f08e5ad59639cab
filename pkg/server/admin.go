package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/cacheproxy/pkg/cache"
	"mercator-hq/cacheproxy/pkg/pool"
	"mercator-hq/cacheproxy/pkg/telemetry/health"
)

// StatsSource supplies the /stats body.
type StatsSource interface {
	Snapshot() Snapshot
}

// StatsFunc adapts a function to StatsSource.
type StatsFunc func() Snapshot

// Snapshot returns f().
func (f StatsFunc) Snapshot() Snapshot { return f() }

// Snapshot is the /stats response.
type Snapshot struct {
	Cache      cache.Stats   `json:"cache"`
	HitRatio   float64       `json:"hit_ratio"`
	RecentKeys []string      `json:"recent_keys,omitempty"`
	Pool       pool.Stats    `json:"pool"`
	Server     Stats         `json:"server"`
	Journal    *JournalStats `json:"journal,omitempty"`
}

// JournalStats reports the connection journal's counters.
type JournalStats struct {
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
}

// AdminConfig configures the admin endpoint.
type AdminConfig struct {
	// ListenAddress is the host:port to serve on.
	ListenAddress string

	// MetricsPath is where Metrics is mounted.
	MetricsPath string

	// Metrics serves the Prometheus exposition. Nil leaves the path unmounted.
	Metrics http.Handler

	// Checker backs /health and /ready.
	Checker *health.Checker

	// Stats backs /stats. Nil leaves the path unmounted.
	Stats StatsSource

	// Version is served on /version.
	Version health.VersionInfo
}

// Admin is the HTTP server for metrics and probes.
type Admin struct {
	cfg        AdminConfig
	httpServer *http.Server
	logger     *slog.Logger

	mu           sync.Mutex
	listener     net.Listener
	shutdownOnce sync.Once
}

// NewAdmin builds the admin server. Call Start to begin serving.
func NewAdmin(cfg AdminConfig) *Admin {
	if cfg.Checker == nil {
		cfg.Checker = health.New(0)
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	a := &Admin{
		cfg:    cfg,
		logger: slog.Default().With("component", "admin"),
	}
	a.httpServer = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a
}

// Handler returns the admin routes.
func (a *Admin) Handler() http.Handler {
	mux := http.NewServeMux()

	if a.cfg.Metrics != nil {
		mux.Handle(a.cfg.MetricsPath, a.cfg.Metrics)
	}
	mux.Handle("/health", a.cfg.Checker.LivenessHandler())
	mux.Handle("/ready", a.cfg.Checker.ReadinessHandler())
	mux.Handle("/version", health.VersionHandler(a.cfg.Version.Version, a.cfg.Version.Commit, a.cfg.Version.BuildTime))
	if a.cfg.Stats != nil {
		mux.HandleFunc("/stats", a.handleStats)
	}
	return mux
}

func (a *Admin) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	health.WriteJSON(w, r, http.StatusOK, a.cfg.Stats.Snapshot())
}

// Start listens on the configured address and serves in the background.
// Listen errors are returned; later serve errors are logged.
func (a *Admin) Start() error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.ListenAddress, err)
	}

	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()

	a.logger.Info("admin endpoint listening",
		"address", ln.Addr().String(),
		"metrics_path", a.cfg.MetricsPath,
	)

	go func() {
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("admin server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the listening address, or nil before Start.
func (a *Admin) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Shutdown stops the admin server, waiting for in-flight requests until ctx
// expires.
func (a *Admin) Shutdown(ctx context.Context) error {
	var err error
	a.shutdownOnce.Do(func() {
		if shutdownErr := a.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("admin shutdown error: %w", shutdownErr)
		}
	})
	return err
}
