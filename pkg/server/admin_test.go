package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mercator-hq/cacheproxy/pkg/cache"
	"mercator-hq/cacheproxy/pkg/pool"
	"mercator-hq/cacheproxy/pkg/telemetry/health"
)

func newTestAdmin(t *testing.T, done <-chan struct{}) *Admin {
	t.Helper()
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "cacheproxy_test_total",
		Help: "Test counter.",
	}, func() float64 { return 7 }))

	checker := health.New(time.Second)
	checker.Register("pool", health.Accepting(done))

	return NewAdmin(AdminConfig{
		ListenAddress: "127.0.0.1:0",
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Checker:       checker,
		Stats: StatsFunc(func() Snapshot {
			return Snapshot{
				Cache:      cache.Stats{Size: 3, Capacity: 8, Hits: 1, Misses: 3},
				HitRatio:   0.25,
				RecentKeys: []string{"/c", "/b", "/a"},
				Pool:       pool.Stats{Workers: 4, QueueCapacity: 100},
				Server:     Stats{Accepted: 4},
			}
		}),
		Version: health.VersionInfo{Version: "1.0.0", Commit: "abc"},
	})
}

func TestAdmin_Routes(t *testing.T) {
	done := make(chan struct{})
	h := newTestAdmin(t, done).Handler()

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/metrics", http.StatusOK, "cacheproxy_test_total 7"},
		{"/health", http.StatusOK, `"status":"ok"`},
		{"/ready", http.StatusOK, `"status":"ready"`},
		{"/stats", http.StatusOK, `"hit_ratio":0.25`},
		{"/version", http.StatusOK, `"version":"1.0.0"`},
		{"/missing", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestAdmin_ReadyFailsAfterPoolShutdown(t *testing.T) {
	done := make(chan struct{})
	h := newTestAdmin(t, done).Handler()
	close(done)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestAdmin_StatsBody(t *testing.T) {
	h := newTestAdmin(t, make(chan struct{})).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	var snap Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decoding /stats: %v", err)
	}
	if snap.Cache.Size != 3 || snap.Pool.Workers != 4 || snap.Server.Accepted != 4 {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.RecentKeys) != 3 || snap.RecentKeys[0] != "/c" {
		t.Errorf("recent keys = %v, want [/c /b /a]", snap.RecentKeys)
	}
	if snap.Journal != nil {
		t.Error("journal stats present without a journal")
	}
}

func TestAdmin_OptionalRoutes(t *testing.T) {
	h := NewAdmin(AdminConfig{}).Handler()

	for _, path := range []string{"/metrics", "/stats"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s code = %d, want 404", path, rec.Code)
		}
	}
}

func TestAdmin_StartAndShutdown(t *testing.T) {
	a := newTestAdmin(t, make(chan struct{}))
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	resp, err := http.Get("http://" + a.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, body %s", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error: %v", err)
	}
	if _, err := http.Get("http://" + a.Addr().String() + "/health"); err == nil {
		t.Error("admin still serving after Shutdown")
	}
}

func TestAdmin_StartListenError(t *testing.T) {
	a := NewAdmin(AdminConfig{ListenAddress: "127.0.0.1:-1"})
	if err := a.Start(); err == nil {
		t.Error("Start() with an invalid address succeeded")
	}
}
