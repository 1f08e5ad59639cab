package cache

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
)

// checkInvariants verifies that bucket chains and the recency list describe
// the same set of entries.
func (c *LRU) checkInvariants(t *testing.T) {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	size := len(c.entries)
	if size > c.capacity {
		t.Fatalf("size %d exceeds capacity %d", size, c.capacity)
	}

	inRecency := make(map[int32]bool, size)
	prev := nilIndex
	for idx := c.head; idx != nilIndex; idx = c.entries[idx].next {
		if inRecency[idx] {
			t.Fatalf("recency list cycles at index %d", idx)
		}
		if c.entries[idx].prev != prev {
			t.Fatalf("entry %d prev = %d, want %d", idx, c.entries[idx].prev, prev)
		}
		inRecency[idx] = true
		prev = idx
	}
	if c.tail != prev {
		t.Fatalf("tail = %d, want %d", c.tail, prev)
	}
	if len(inRecency) != size {
		t.Fatalf("recency list has %d entries, size is %d", len(inRecency), size)
	}

	keys := make(map[string]bool, size)
	chained := 0
	for b := 0; b < c.capacity; b++ {
		for idx := c.buckets.head(b); idx != nilIndex; idx = c.entries[idx].bucketNext {
			key := c.entries[idx].key
			if got := bucketIndex(key, c.capacity); got != b {
				t.Fatalf("key %q found in bucket %d, hashes to %d", key, b, got)
			}
			if keys[key] {
				t.Fatalf("key %q appears twice", key)
			}
			if !inRecency[idx] {
				t.Fatalf("key %q reachable from bucket but not from recency list", key)
			}
			keys[key] = true
			chained++
		}
	}
	if chained != size {
		t.Fatalf("bucket chains hold %d entries, size is %d", chained, size)
	}
}

func mustNew(t *testing.T, capacity int) *LRU {
	t.Helper()
	c, err := New(capacity)
	if err != nil {
		t.Fatalf("New(%d) error: %v", capacity, err)
	}
	return c
}

func TestNew_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, MaxCapacity + 1} {
		if _, err := New(capacity); err != ErrInvalidCapacity {
			t.Errorf("New(%d) error = %v, want %v", capacity, err, ErrInvalidCapacity)
		}
	}
}

func TestNew_LargeCapacityAllocatesLazily(t *testing.T) {
	c := mustNew(t, 50_000_000)

	if n := c.buckets.allocated(); n != 0 {
		t.Fatalf("empty cache allocated %d bucket pages, want 0", n)
	}
	if cap(c.entries) != 0 {
		t.Fatalf("empty cache reserved %d entry slots, want 0", cap(c.entries))
	}

	for i := 0; i < 10; i++ {
		c.Put(fmt.Sprintf("/page/%d", i), []byte("body"))
	}
	for i := 0; i < 10; i++ {
		if _, ok := c.Get(fmt.Sprintf("/page/%d", i)); !ok {
			t.Fatalf("key /page/%d missing", i)
		}
	}
	if c.Len() != 10 {
		t.Errorf("Len() = %d, want 10", c.Len())
	}
	if n := c.buckets.allocated(); n > 10 {
		t.Errorf("10 entries allocated %d bucket pages", n)
	}
	if cap(c.entries) >= 1000 {
		t.Errorf("10 entries reserved %d slots", cap(c.entries))
	}
}

func TestPutAndGet(t *testing.T) {
	c := mustNew(t, 2)

	c.Put("/a", []byte("alpha"))

	got, ok := c.Get("/a")
	if !ok {
		t.Fatal("expected key /a to exist")
	}
	if string(got) != "alpha" {
		t.Errorf("Get(/a) = %q, want %q", got, "alpha")
	}
	c.checkInvariants(t)
}

func TestPut_CopiesValue(t *testing.T) {
	c := mustNew(t, 1)

	value := []byte("original")
	c.Put("/a", value)
	value[0] = 'X'

	got, _ := c.Get("/a")
	if string(got) != "original" {
		t.Errorf("cached value changed with caller buffer: %q", got)
	}
}

func TestGet_MissLeavesCacheUnchanged(t *testing.T) {
	c := mustNew(t, 3)
	c.Put("/a", []byte("a"))
	c.Put("/b", []byte("b"))

	before := c.Keys(0)
	if _, ok := c.Get("/missing"); ok {
		t.Fatal("expected miss for absent key")
	}
	after := c.Keys(0)

	if fmt.Sprint(before) != fmt.Sprint(after) {
		t.Errorf("recency order changed on miss: %v -> %v", before, after)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if s := c.Stats(); s.Misses != 1 || s.Hits != 0 {
		t.Errorf("stats = %+v, want 1 miss and 0 hits", s)
	}
	c.checkInvariants(t)
}

func TestEviction_InsertionOrder(t *testing.T) {
	c := mustNew(t, 3)

	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("/k%d", i), []byte{byte(i)})
	}

	if _, ok := c.Get("/k0"); ok {
		t.Error("expected first inserted key to be evicted")
	}
	for i := 1; i < 4; i++ {
		if _, ok := c.Get(fmt.Sprintf("/k%d", i)); !ok {
			t.Errorf("expected /k%d to remain", i)
		}
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
	c.checkInvariants(t)
}

func TestEviction_RecentlyUsedProtected(t *testing.T) {
	c := mustNew(t, 2)

	c.Put("/a", []byte("a"))
	c.Put("/b", []byte("b"))

	// Touch /a so /b becomes the eviction candidate.
	c.Get("/a")
	c.Put("/c", []byte("c"))

	if _, ok := c.Get("/b"); ok {
		t.Error("expected /b to be evicted")
	}
	if _, ok := c.Get("/a"); !ok {
		t.Error("expected /a to remain")
	}
	if _, ok := c.Get("/c"); !ok {
		t.Error("expected /c to exist")
	}
	c.checkInvariants(t)
}

func TestPut_UpdateExisting(t *testing.T) {
	c := mustNew(t, 2)

	c.Put("/a", []byte("v1"))
	c.Put("/b", []byte("b"))
	c.Put("/a", []byte("v2"))

	if c.Len() != 2 {
		t.Errorf("Len() = %d after update, want 2", c.Len())
	}
	got, _ := c.Get("/a")
	if string(got) != "v2" {
		t.Errorf("Get(/a) = %q, want %q", got, "v2")
	}

	// /a was refreshed by the update, so /b goes first.
	c.Put("/c", []byte("c"))
	if _, ok := c.Get("/b"); ok {
		t.Error("expected /b to be evicted after /a was updated")
	}
	if s := c.Stats(); s.Updates != 1 || s.Inserts != 3 {
		t.Errorf("stats = %+v, want 1 update and 3 inserts", s)
	}
	c.checkInvariants(t)
}

func TestKeys_RecencyOrder(t *testing.T) {
	c := mustNew(t, 4)
	c.Put("/a", nil)
	c.Put("/b", nil)
	c.Put("/c", nil)
	c.Get("/a")

	got := fmt.Sprint(c.Keys(0))
	want := "[/a /c /b]"
	if got != want {
		t.Errorf("Keys(0) = %s, want %s", got, want)
	}
	if got := fmt.Sprint(c.Keys(2)); got != "[/a /c]" {
		t.Errorf("Keys(2) = %s, want [/a /c]", got)
	}
	if got := len(c.Keys(10)); got != 3 {
		t.Errorf("len(Keys(10)) = %d, want 3", got)
	}
}

// With a single bucket every key collides, which exercises chain traversal
// and removal from the middle and end of a chain.
func TestCollisions_SingleBucket(t *testing.T) {
	c := mustNew(t, 1)

	c.Put("/a", []byte("a"))
	c.Put("/b", []byte("b"))
	if _, ok := c.Get("/a"); ok {
		t.Error("expected /a to be evicted at capacity 1")
	}
	got, ok := c.Get("/b")
	if !ok || string(got) != "b" {
		t.Errorf("Get(/b) = %q, %v", got, ok)
	}
	c.checkInvariants(t)
}

func TestCollisions_LongChains(t *testing.T) {
	c := mustNew(t, 8)

	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("/chain/%d", i)
		c.Put(key, []byte(key))
		c.checkInvariants(t)

		got, ok := c.Get(key)
		if !ok || string(got) != key {
			t.Fatalf("Get(%q) = %q, %v right after Put", key, got, ok)
		}
	}
	if c.Len() != 8 {
		t.Errorf("Len() = %d, want 8", c.Len())
	}
	for i := 192; i < 200; i++ {
		if _, ok := c.Get(fmt.Sprintf("/chain/%d", i)); !ok {
			t.Errorf("expected /chain/%d to remain", i)
		}
	}
}

func TestSizeNeverExceedsCapacity(t *testing.T) {
	c := mustNew(t, 5)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		c.Put(fmt.Sprintf("/k%d", rng.Intn(20)), []byte("v"))
		if c.Len() > c.Cap() {
			t.Fatalf("Len() = %d exceeds capacity %d", c.Len(), c.Cap())
		}
	}
	c.checkInvariants(t)
}

func TestBucketIndex_NonNegative(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		capacity int
	}{
		{name: "empty key", key: "", capacity: 7},
		{name: "short key", key: "/", capacity: 3},
		{name: "overflowing key", key: string(make([]byte, 4096)) + "\xff\xff\xff\xff", capacity: 13},
		{name: "high bytes", key: "\xff\xfe\xfd\xfc\xfb\xfa\xf9\xf8\xf7\xf6", capacity: 1000},
		{name: "long url", key: "/very/long/path/that/overflows/a/32/bit/hash/many/times/over?q=1", capacity: 97},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bucketIndex(tt.key, tt.capacity)
			if got < 0 || got >= tt.capacity {
				t.Errorf("bucketIndex() = %d, want in [0, %d)", got, tt.capacity)
			}
		})
	}
}

func TestBucketIndex_OrderDependent(t *testing.T) {
	if bucketIndex("ab", 1<<20) == bucketIndex("ba", 1<<20) {
		t.Error("expected permuted keys to hash differently")
	}
}

type evictRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (r *evictRecorder) OnEvict(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
}

func TestObserver_OnEvict(t *testing.T) {
	rec := &evictRecorder{}
	c, err := New(1, WithObserver(rec))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	c.Put("/a", nil)
	c.Put("/a", nil)
	c.Put("/b", nil)

	if fmt.Sprint(rec.keys) != "[/a]" {
		t.Errorf("evicted keys = %v, want [/a]", rec.keys)
	}
}

func TestPurge(t *testing.T) {
	c := mustNew(t, 3)
	c.Put("/a", nil)
	c.Put("/b", nil)

	c.Purge()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Purge, want 0", c.Len())
	}
	if _, ok := c.Get("/a"); ok {
		t.Error("expected /a to be gone after Purge")
	}
	if n := c.buckets.allocated(); n != 0 {
		t.Errorf("%d bucket pages kept after Purge, want 0", n)
	}
	c.Put("/c", nil)
	c.checkInvariants(t)
}

func TestStats_HitRatio(t *testing.T) {
	if r := (Stats{}).HitRatio(); r != 0 {
		t.Errorf("HitRatio() on empty stats = %f, want 0", r)
	}
	if r := (Stats{Hits: 3, Misses: 1}).HitRatio(); r != 0.75 {
		t.Errorf("HitRatio() = %f, want 0.75", r)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := mustNew(t, 16)

	const goroutines = 16
	const ops = 2000

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < ops; i++ {
				key := fmt.Sprintf("/k%d", rng.Intn(64))
				if rng.Intn(2) == 0 {
					c.Put(key, []byte(key))
				} else if v, ok := c.Get(key); ok && string(v) != key {
					t.Errorf("Get(%q) = %q", key, v)
					return
				}
				if n := c.Len(); n < 0 || n > c.Cap() {
					t.Errorf("Len() = %d outside [0, %d]", n, c.Cap())
					return
				}
			}
		}(int64(g))
	}
	wg.Wait()

	c.checkInvariants(t)
}

func BenchmarkGetHit(b *testing.B) {
	c, _ := New(1024)
	for i := 0; i < 1024; i++ {
		c.Put(fmt.Sprintf("/k%d", i), []byte("body"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("/k512")
	}
}

func BenchmarkPutEvict(b *testing.B) {
	c, _ := New(1024)
	keys := make([]string, 4096)
	for i := range keys {
		keys[i] = fmt.Sprintf("/k%d", i)
	}
	value := []byte("body")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Put(keys[i%len(keys)], value)
	}
}
