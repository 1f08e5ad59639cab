package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/cacheproxy/pkg/proxy"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"), time.Second)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open("", time.Second); err == nil {
		t.Error("Open(\"\") succeeded")
	}
}

func TestStore_InsertAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	start := time.Unix(1700000000, 123)
	entries := []Entry{
		{ConnID: "a", URL: "/one", Host: "example.test", Outcome: "miss", BytesOut: 10, StartedAt: start, Duration: time.Millisecond},
		{ConnID: "b", URL: "/one", Host: "example.test", Outcome: "hit", CacheHit: true, BytesOut: 10, StartedAt: start},
		{ConnID: "c", Outcome: "parse_error", Error: "malformed request line"},
	}
	for _, e := range entries {
		if _, err := s.Insert(ctx, e); err != nil {
			t.Fatalf("Insert(%s) error: %v", e.ConnID, err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(got))
	}
	if got[0].ConnID != "c" || got[1].ConnID != "b" {
		t.Errorf("Recent order = %s, %s; want c, b", got[0].ConnID, got[1].ConnID)
	}
	if got[0].Error != "malformed request line" || !got[0].StartedAt.IsZero() {
		t.Errorf("entry c = %+v", got[0])
	}
	if !got[1].CacheHit || !got[1].StartedAt.Equal(start) {
		t.Errorf("entry b = %+v", got[1])
	}

	all, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if all[2].Duration != time.Millisecond {
		t.Errorf("duration = %v, want 1ms", all[2].Duration)
	}
}

func TestStore_CountByOutcome(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, o := range []string{"hit", "hit", "miss"} {
		if _, err := s.Insert(ctx, Entry{Outcome: o}); err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
	}

	counts, err := s.CountByOutcome(ctx)
	if err != nil {
		t.Fatalf("CountByOutcome() error: %v", err)
	}
	if counts["hit"] != 2 || counts["miss"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestStore_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path, time.Second)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if _, err := s.Insert(context.Background(), Entry{ConnID: "persisted", Outcome: "miss"}); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	s.Close()

	s, err = Open(path, time.Second)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s.Close()

	got, err := s.Recent(context.Background(), 1)
	if err != nil || len(got) != 1 || got[0].ConnID != "persisted" {
		t.Errorf("Recent() after reopen = %+v, %v", got, err)
	}
}

func TestFromRecord(t *testing.T) {
	rec := proxy.Record{
		ID:       "id-1",
		URL:      "/x",
		Outcome:  proxy.OutcomeResolveError,
		Err:      errors.New("host resolution failed"),
		Duration: 2 * time.Second,
	}

	e := FromRecord(rec)
	if e.ConnID != "id-1" || e.Outcome != "resolve_error" || e.Error != "host resolution failed" || e.Duration != 2*time.Second {
		t.Errorf("FromRecord() = %+v", e)
	}
	if FromRecord(proxy.Record{}).Error != "" {
		t.Error("nil error converted to non-empty text")
	}
}
