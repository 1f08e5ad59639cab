package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cacheproxy/pkg/cache"
	"mercator-hq/cacheproxy/pkg/cli"
	"mercator-hq/cacheproxy/pkg/config"
	"mercator-hq/cacheproxy/pkg/journal"
	"mercator-hq/cacheproxy/pkg/pool"
	"mercator-hq/cacheproxy/pkg/proxy"
	"mercator-hq/cacheproxy/pkg/server"
	"mercator-hq/cacheproxy/pkg/telemetry/health"
	"mercator-hq/cacheproxy/pkg/telemetry/logging"
	"mercator-hq/cacheproxy/pkg/telemetry/metrics"
	"mercator-hq/cacheproxy/pkg/telemetry/stats"
	"mercator-hq/cacheproxy/pkg/telemetry/tracing"
)

// recentKeys bounds the cache keys listed on /stats.
const recentKeys = 20

// app is one running proxy and everything hanging off it.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	tracer *tracing.Tracer

	cache   *cache.LRU
	pool    *pool.Pool
	handler *proxy.Handler
	server  *server.Server

	collector *metrics.Collector
	admin     *server.Admin
	store     *journal.Store
	recorder  *journal.Recorder
	reporter  *stats.Reporter
}

// evictionLogger logs cache evictions at debug level.
type evictionLogger struct {
	logger *slog.Logger
}

func (e evictionLogger) OnEvict(key string) {
	e.logger.Debug("cache entry evicted", "key", key)
}

func runProxy(ctx context.Context, cfg *config.Config, configPath string, stdout io.Writer) error {
	a, err := newApp(cfg, stdout)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	addr := net.JoinHostPort("", strconv.Itoa(cfg.Proxy.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		a.shutdown()
		return cli.NewCommandError("serve", fmt.Errorf("failed to listen on %s: %w", addr, err))
	}

	if err := a.run(ctx, ln, configPath); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

// newApp builds every component cfg enables. On error the components built
// so far are released.
func newApp(cfg *config.Config, stdout io.Writer) (_ *app, err error) {
	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    stdout,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger.Logger)

	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.shutdown()
		}
	}()

	if a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	a.cache, err = cache.New(cfg.Cache.Capacity,
		cache.WithObserver(evictionLogger{logger: logger.With("component", "cache")}),
	)
	if err != nil {
		return nil, err
	}

	mode, err := pool.ParseShutdownMode(cfg.Pool.ShutdownMode)
	if err != nil {
		return nil, err
	}
	a.pool, err = pool.New(cfg.Pool.Workers, cfg.Pool.QueueSize,
		pool.WithShutdownMode(mode),
		pool.WithLogger(logger.With("component", "pool")),
	)
	if err != nil {
		return nil, err
	}

	readMode, err := proxy.ParseReadMode(cfg.Proxy.UpstreamRead)
	if err != nil {
		return nil, err
	}
	opts := []proxy.Option{
		proxy.WithTracer(a.tracer.Tracer()),
		proxy.WithLogger(logger.With("component", "proxy")),
	}

	if cfg.Telemetry.Metrics.Enabled {
		a.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
		a.collector.RegisterCache(a.cache)
		a.collector.RegisterPool(a.pool)
		opts = append(opts, proxy.WithObserver(a.collector))
	}

	if cfg.Journal.Enabled {
		if a.store, err = journal.Open(cfg.Journal.Path, cfg.Journal.BusyTimeout); err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		logger.Info("connection journal opened", "path", a.store.Path())
		a.recorder = journal.NewRecorder(a.store, cfg.Journal.Buffer)
		opts = append(opts, proxy.WithObserver(a.recorder))
		if a.collector != nil {
			a.collector.RegisterJournal(a.recorder)
		}
	}

	a.handler, err = proxy.NewHandler(a.cache, proxy.Config{
		BufferSize:       cfg.Proxy.BufferSize,
		UpstreamPort:     cfg.Proxy.UpstreamPort,
		UpstreamRead:     readMode,
		MaxResponseBytes: cfg.Proxy.MaxResponseBytes,
	}, opts...)
	if err != nil {
		return nil, err
	}
	a.server = server.New(a.handler, a.pool, server.WithLogger(logger.With("component", "server")))

	if cfg.Telemetry.Metrics.Enabled {
		a.admin = server.NewAdmin(server.AdminConfig{
			ListenAddress: cfg.Telemetry.Metrics.ListenAddress,
			MetricsPath:   cfg.Telemetry.Metrics.Path,
			Metrics:       a.collector.Handler(),
			Checker:       a.healthChecker(),
			Stats:         server.StatsFunc(a.snapshot),
			Version:       health.VersionInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate},
		})
	}

	if cfg.Telemetry.Stats.Enabled {
		a.reporter = stats.NewReporter(a.cache, a.pool, cfg.Telemetry.Stats.Schedule, logger.Logger)
	}

	return a, nil
}

func (a *app) healthChecker() *health.Checker {
	checker := health.New(2 * time.Second)
	checker.Register("pool", health.Accepting(a.pool.Done()))
	if a.store != nil {
		checker.Register("journal", health.Ping(a.store))
	}
	return checker
}

func (a *app) snapshot() server.Snapshot {
	cs := a.cache.Stats()
	snap := server.Snapshot{
		Cache:      cs,
		HitRatio:   cs.HitRatio(),
		RecentKeys: a.cache.Keys(recentKeys),
		Pool:       a.pool.Stats(),
		Server:     a.server.Stats(),
	}
	if a.recorder != nil {
		snap.Journal = &server.JournalStats{
			Written: a.recorder.Written(),
			Dropped: a.recorder.Dropped(),
		}
	}
	return snap
}

// run serves ln until ctx is cancelled, then shuts everything down.
func (a *app) run(ctx context.Context, ln net.Listener, configPath string) error {
	defer a.shutdown()

	if a.admin != nil {
		if err := a.admin.Start(); err != nil {
			ln.Close()
			return err
		}
	}
	if a.reporter != nil {
		if err := a.reporter.Start(ctx); err != nil {
			ln.Close()
			return err
		}
	}
	if a.cfg.Watch.Enabled && configPath != "" {
		w, err := config.NewWatcher(configPath, a.cfg.Watch.Debounce, a.logger.Logger)
		if err != nil {
			a.logger.Warn("config watcher unavailable", "path", configPath, "error", err)
		} else {
			go func() {
				if err := w.Watch(ctx, a.reload); err != nil {
					a.logger.Error("config watcher stopped", "error", err)
				}
			}()
		}
	}

	a.logger.Info("cacheproxy started",
		"version", Version,
		"address", ln.Addr().String(),
		"log_format", a.logger.Format(),
		"workers", a.cfg.Pool.Workers,
		"queue_size", a.cfg.Pool.QueueSize,
		"cache_capacity", a.cfg.Cache.Capacity,
		"upstream_read", a.cfg.Proxy.UpstreamRead,
		"metrics", a.admin != nil,
		"journal", a.store != nil,
	)

	return a.server.Serve(ctx, ln)
}

// reload applies the settings that can change without a restart.
func (a *app) reload(cfg *config.Config) {
	level := cfg.Telemetry.Logging.Level
	if err := a.logger.SetLevel(level); err != nil {
		a.logger.Error("reloaded log level rejected", "level", level, "error", err)
		return
	}
	a.logger.Info("configuration reloaded", "log_level", a.logger.Level().String())
}

// shutdown stops accepting, stops the pool in its configured mode, then
// flushes the journal and the tracer. It tolerates a partially built app.
func (a *app) shutdown() {
	ctx := context.Background()
	if t := a.cfg.Proxy.ShutdownTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	if a.server != nil {
		a.server.Close()
	}
	if a.pool != nil {
		done := make(chan struct{})
		go func() {
			a.pool.Shutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			a.logger.Warn("worker pool did not stop before the shutdown timeout",
				"timeout", a.cfg.Proxy.ShutdownTimeout,
			)
		}
	}
	if a.reporter != nil {
		a.reporter.Stop()
		a.reporter.Report()
	}
	if a.cache != nil {
		a.cache.Purge()
	}
	if a.admin != nil {
		if err := a.admin.Shutdown(ctx); err != nil {
			a.logger.Warn("admin shutdown failed", "error", err)
		}
	}
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing journal failed", "error", err)
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", "error", err)
		}
	}

	a.logger.Info("cacheproxy stopped")
}
