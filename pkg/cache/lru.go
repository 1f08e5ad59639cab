package cache

import (
	"errors"
	"math"
	"sync"
)

// MaxCapacity is the largest capacity New accepts. Entries are addressed by
// int32 index.
const MaxCapacity = math.MaxInt32

// ErrInvalidCapacity is returned by New when capacity is not in
// [1, MaxCapacity].
var ErrInvalidCapacity = errors.New("cache capacity must be between 1 and 2147483647")

// nilIndex terminates bucket chains and the recency list.
const nilIndex int32 = -1

// entry is one cached response. bucketNext belongs to the bucket chain only;
// prev and next belong to the recency list only.
type entry struct {
	key   string
	value []byte

	bucketNext int32

	prev int32
	next int32
}

// Observer receives cache events. Implementations must not call back into the
// cache that notified them.
type Observer interface {
	// OnEvict is called after key was evicted to make room for a new entry.
	OnEvict(key string)
}

// Option configures an LRU.
type Option func(*LRU)

// WithObserver registers an Observer for eviction events.
func WithObserver(o Observer) Option {
	return func(c *LRU) {
		c.observer = o
	}
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Inserts   uint64 `json:"inserts"`
	Updates   uint64 `json:"updates"`
	Evictions uint64 `json:"evictions"`
}

// HitRatio returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// LRU is a fixed-capacity least-recently-used cache keyed by string.
// It is safe for concurrent use.
type LRU struct {
	mu sync.Mutex

	capacity int
	buckets  bucketTable
	entries  []entry

	// recency list ends
	head int32
	tail int32

	observer Observer

	hits      uint64
	misses    uint64
	inserts   uint64
	updates   uint64
	evictions uint64
}

// New creates an LRU holding at most capacity entries. The bucket table has
// one bucket per slot. Memory is taken as entries are inserted, not up front.
func New(capacity int, opts ...Option) (*LRU, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, ErrInvalidCapacity
	}

	c := &LRU{
		capacity: capacity,
		buckets:  newBucketTable(capacity),
		head:     nilIndex,
		tail:     nilIndex,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Get returns the value cached for key and marks it most recently used.
// The returned slice is shared with the cache and must not be modified.
func (c *LRU) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.find(key, bucketIndex(key, c.capacity))
	if idx == nilIndex {
		c.misses++
		return nil, false
	}

	c.moveToFront(idx)
	c.hits++
	return c.entries[idx].value, true
}

// Put stores a copy of value under key and marks it most recently used.
// When the cache is full and key is new, the least recently used entry is
// evicted first.
func (c *LRU) Put(key string, value []byte) {
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()

	b := bucketIndex(key, c.capacity)
	if idx := c.find(key, b); idx != nilIndex {
		c.entries[idx].value = stored
		c.moveToFront(idx)
		c.updates++
		c.mu.Unlock()
		return
	}

	var (
		idx      int32
		evicted  string
		didEvict bool
	)
	if len(c.entries) == c.capacity {
		idx = c.tail
		evicted = c.entries[idx].key
		didEvict = true

		c.unlinkRecency(idx)
		c.unlinkBucket(idx, bucketIndex(evicted, c.capacity))
		c.evictions++
	} else {
		c.entries = append(c.entries, entry{})
		idx = int32(len(c.entries) - 1)
	}

	c.entries[idx] = entry{
		key:        key,
		value:      stored,
		bucketNext: c.buckets.head(b),
		prev:       nilIndex,
		next:       nilIndex,
	}
	c.buckets.setHead(b, idx)
	c.pushFront(idx)
	c.inserts++

	observer := c.observer
	c.mu.Unlock()

	if didEvict && observer != nil {
		observer.OnEvict(evicted)
	}
}

// Len returns the number of live entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cap returns the configured capacity.
func (c *LRU) Cap() int {
	return c.capacity
}

// Keys returns up to limit live keys ordered from most to least recently
// used. A limit of zero or less returns every key.
func (c *LRU) Keys(limit int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit <= 0 || limit > len(c.entries) {
		limit = len(c.entries)
	}
	keys := make([]string, 0, limit)
	for idx := c.head; idx != nilIndex && len(keys) < limit; idx = c.entries[idx].next {
		keys = append(keys, c.entries[idx].key)
	}
	return keys
}

// Stats returns a snapshot of the cache counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:      len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Inserts:   c.inserts,
		Updates:   c.updates,
		Evictions: c.evictions,
	}
}

// Purge drops every entry. Counters are kept.
func (c *LRU) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buckets.reset()
	c.entries = nil
	c.head = nilIndex
	c.tail = nilIndex
}

// find walks bucket b looking for key. Caller holds mu.
func (c *LRU) find(key string, b int) int32 {
	for idx := c.buckets.head(b); idx != nilIndex; idx = c.entries[idx].bucketNext {
		if c.entries[idx].key == key {
			return idx
		}
	}
	return nilIndex
}

// unlinkBucket removes idx from chain b. Caller holds mu.
func (c *LRU) unlinkBucket(idx int32, b int) {
	if c.buckets.head(b) == idx {
		c.buckets.setHead(b, c.entries[idx].bucketNext)
		c.entries[idx].bucketNext = nilIndex
		return
	}
	for prev := c.buckets.head(b); prev != nilIndex; prev = c.entries[prev].bucketNext {
		if c.entries[prev].bucketNext == idx {
			c.entries[prev].bucketNext = c.entries[idx].bucketNext
			c.entries[idx].bucketNext = nilIndex
			return
		}
	}
}

// unlinkRecency removes idx from the recency list. Caller holds mu.
func (c *LRU) unlinkRecency(idx int32) {
	e := &c.entries[idx]
	if e.prev != nilIndex {
		c.entries[e.prev].next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nilIndex {
		c.entries[e.next].prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nilIndex
	e.next = nilIndex
}

// pushFront links idx as the most recently used entry. Caller holds mu.
func (c *LRU) pushFront(idx int32) {
	e := &c.entries[idx]
	e.prev = nilIndex
	e.next = c.head
	if c.head != nilIndex {
		c.entries[c.head].prev = idx
	}
	c.head = idx
	if c.tail == nilIndex {
		c.tail = idx
	}
}

// moveToFront marks idx most recently used. Caller holds mu.
func (c *LRU) moveToFront(idx int32) {
	if c.head == idx {
		return
	}
	c.unlinkRecency(idx)
	c.pushFront(idx)
}
