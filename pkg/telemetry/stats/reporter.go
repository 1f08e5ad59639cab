// Package stats logs a periodic summary of cache and pool activity.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/cacheproxy/pkg/cache"
	"mercator-hq/cacheproxy/pkg/pool"
)

// CacheSource reports cache statistics.
type CacheSource interface {
	Stats() cache.Stats
}

// PoolSource reports worker pool statistics.
type PoolSource interface {
	Stats() pool.Stats
}

// Snapshot is what one report logged.
type Snapshot struct {
	Cache cache.Stats
	Pool  pool.Stats

	// Counter increases since the previous report.
	NewHits      uint64
	NewMisses    uint64
	NewRejected  uint64
	NewEvictions uint64
}

// Reporter logs a Snapshot on a cron schedule.
type Reporter struct {
	cache    CacheSource
	pool     PoolSource
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	last    Snapshot
}

// NewReporter creates a Reporter. schedule is a standard cron expression or
// a descriptor such as "@every 1m".
func NewReporter(c CacheSource, p PoolSource, schedule string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		cache:    c,
		pool:     p,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "stats"),
	}
}

// Start schedules the report. The reporter stops itself when ctx is done.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("stats reporter already running")
	}

	if _, err := cron.ParseStandard(r.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", r.schedule, err)
	}
	if _, err := r.cron.AddFunc(r.schedule, func() { r.Report() }); err != nil {
		return fmt.Errorf("failed to schedule stats report: %w", err)
	}

	r.cron.Start()
	r.running = true
	r.logger.Info("stats reporter started", "schedule", r.schedule)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	return nil
}

// Report logs the current statistics and returns them.
func (r *Reporter) Report() Snapshot {
	snap := Snapshot{
		Cache: r.cache.Stats(),
		Pool:  r.pool.Stats(),
	}

	r.mu.Lock()
	snap.NewHits = snap.Cache.Hits - r.last.Cache.Hits
	snap.NewMisses = snap.Cache.Misses - r.last.Cache.Misses
	snap.NewEvictions = snap.Cache.Evictions - r.last.Cache.Evictions
	snap.NewRejected = snap.Pool.Rejected - r.last.Pool.Rejected
	r.last = snap
	r.mu.Unlock()

	r.logger.Info("proxy stats",
		"cache_size", snap.Cache.Size,
		"cache_capacity", snap.Cache.Capacity,
		"hit_ratio", snap.Cache.HitRatio(),
		"hits", snap.NewHits,
		"misses", snap.NewMisses,
		"evictions", snap.NewEvictions,
		"queue_depth", snap.Pool.Queued,
		"active", snap.Pool.Active,
		"rejected", snap.NewRejected,
	)

	return snap
}

// Stop stops the schedule and waits for a running report to finish.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	// Report takes mu, so wait for it unlocked.
	<-r.cron.Stop().Done()
	r.logger.Info("stats reporter stopped")
}

// NextRun returns the next scheduled report time, or the zero time when
// nothing is scheduled.
func (r *Reporter) NextRun() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
