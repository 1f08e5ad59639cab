package stats

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"mercator-hq/cacheproxy/pkg/cache"
	"mercator-hq/cacheproxy/pkg/pool"
)

type fakeCache struct{ s cache.Stats }

func (f *fakeCache) Stats() cache.Stats { return f.s }

type fakePool struct{ s pool.Stats }

func (f *fakePool) Stats() pool.Stats { return f.s }

func TestReporter_ReportDeltas(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	c := &fakeCache{s: cache.Stats{Size: 2, Capacity: 4, Hits: 3, Misses: 1}}
	p := &fakePool{s: pool.Stats{Queued: 1, Rejected: 2}}
	r := NewReporter(c, p, "@every 1m", logger)

	first := r.Report()
	if first.NewHits != 3 || first.NewRejected != 2 {
		t.Errorf("first report = %+v, want 3 new hits and 2 new rejections", first)
	}

	c.s.Hits = 10
	p.s.Rejected = 2
	second := r.Report()
	if second.NewHits != 7 {
		t.Errorf("NewHits = %d, want 7", second.NewHits)
	}
	if second.NewRejected != 0 {
		t.Errorf("NewRejected = %d, want 0", second.NewRejected)
	}

	out := buf.String()
	if strings.Count(out, "msg=\"proxy stats\"") != 2 {
		t.Errorf("expected two report lines, got:\n%s", out)
	}
	if !strings.Contains(out, "component=stats") || !strings.Contains(out, "queue_depth=1") {
		t.Errorf("report line missing fields:\n%s", out)
	}
}

func TestReporter_InvalidSchedule(t *testing.T) {
	r := NewReporter(&fakeCache{}, &fakePool{}, "sometimes", nil)
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("Start() accepted an invalid schedule")
	}
}

func TestReporter_StartStop(t *testing.T) {
	r := NewReporter(&fakeCache{}, &fakePool{}, "@every 1h", nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("second Start() succeeded")
	}

	next := r.NextRun()
	if next.IsZero() || next.Before(time.Now()) {
		t.Errorf("NextRun() = %v, want a future time", next)
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for {
		r.mu.Lock()
		running := r.running
		r.mu.Unlock()
		if !running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reporter still running after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Stop after stop is a no-op
	r.Stop()
}
