package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/cacheproxy/pkg/config"
	"mercator-hq/cacheproxy/pkg/journal"
	"mercator-hq/cacheproxy/pkg/server"
)

const upstreamBody = "HTTP/1.0 200 OK\r\nContent-Length: 2\r\n\r\nok"

func startUpstream(t *testing.T) (int, *atomic.Int64) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	accepts := new(atomic.Int64)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepts.Add(1)
			go func() {
				defer conn.Close()
				buf := make([]byte, 4096)
				if _, err := conn.Read(buf); err == nil {
					conn.Write([]byte(upstreamBody))
				}
			}()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port, accepts
}

func proxyRequest(t *testing.T, addr, url string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	io.WriteString(conn, "GET "+url+" HTTP/1.0\r\nHost: 127.0.0.1\r\n\r\n")
	resp, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(resp)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Proxy.Port = 8080
	cfg.Pool.Workers = 2
	cfg.Cache.Capacity = 8
	return cfg
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func httpGet(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestApp_ServeCacheAndShutdown(t *testing.T) {
	upstreamPort, accepts := startUpstream(t)
	journalPath := filepath.Join(t.TempDir(), "journal.db")

	cfg := testConfig()
	cfg.Proxy.UpstreamPort = upstreamPort
	cfg.Telemetry.Logging.Level = "error"
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Metrics.ListenAddress = "127.0.0.1:0"
	cfg.Journal.Enabled = true
	cfg.Journal.Path = journalPath
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	a, err := newApp(cfg, io.Discard)
	if err != nil {
		t.Fatalf("newApp() error: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- a.run(ctx, ln, "") }()

	addr := ln.Addr().String()
	for i := 0; i < 2; i++ {
		if got := proxyRequest(t, addr, "http://127.0.0.1/page"); got != upstreamBody {
			t.Fatalf("response %d = %q, want %q", i, got, upstreamBody)
		}
	}
	if n := accepts.Load(); n != 1 {
		t.Errorf("upstream connections = %d, want 1", n)
	}

	eventually(t, "admin endpoint", func() bool { return a.admin.Addr() != nil })
	base := "http://" + a.admin.Addr().String()

	var snap server.Snapshot
	if err := json.Unmarshal([]byte(httpGet(t, base+"/stats")), &snap); err != nil {
		t.Fatalf("decoding /stats: %v", err)
	}
	if snap.Cache.Hits != 1 || snap.Cache.Misses != 1 || snap.Server.Accepted != 2 {
		t.Errorf("stats = %+v", snap)
	}
	if snap.Journal == nil {
		t.Error("stats lack journal counters")
	}
	if len(snap.RecentKeys) != 1 || snap.RecentKeys[0] != "http://127.0.0.1/page" {
		t.Errorf("recent keys = %v, want the proxied url", snap.RecentKeys)
	}

	eventually(t, "hit counted in metrics", func() bool {
		return strings.Contains(httpGet(t, base+"/metrics"), `cacheproxy_connections_total{outcome="hit"} 1`)
	})
	if body := httpGet(t, base+"/ready"); !strings.Contains(body, `"status":"ready"`) {
		t.Errorf("/ready = %s", body)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
	if n := a.cache.Len(); n != 0 {
		t.Errorf("cache holds %d entries after shutdown, want 0", n)
	}

	store, err := journal.Open(journalPath, time.Second)
	if err != nil {
		t.Fatalf("reopening journal: %v", err)
	}
	defer store.Close()
	counts, err := store.CountByOutcome(context.Background())
	if err != nil {
		t.Fatalf("CountByOutcome() error: %v", err)
	}
	if counts["miss"] != 1 || counts["hit"] != 1 {
		t.Errorf("journal counts = %v, want one miss and one hit", counts)
	}
}

func TestApp_ReloadLogLevel(t *testing.T) {
	cfg := testConfig()
	a, err := newApp(cfg, io.Discard)
	if err != nil {
		t.Fatalf("newApp() error: %v", err)
	}
	defer a.shutdown()

	reloaded := config.Default()
	reloaded.Telemetry.Logging.Level = "debug"
	a.reload(reloaded)
	if got := a.logger.Level().String(); got != "DEBUG" {
		t.Errorf("level after reload = %s, want DEBUG", got)
	}

	reloaded.Telemetry.Logging.Level = "chatty"
	a.reload(reloaded)
	if got := a.logger.Level().String(); got != "DEBUG" {
		t.Errorf("invalid reload changed level to %s", got)
	}
}

func TestNewApp_JournalOpenFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Journal.Enabled = true
	cfg.Journal.Path = t.TempDir() // a directory is not a database

	if _, err := newApp(cfg, io.Discard); err == nil {
		t.Error("newApp() succeeded with an unusable journal path")
	}
}
