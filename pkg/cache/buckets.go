package cache

const (
	pageBits = 12
	pageSize = 1 << pageBits
	pageMask = pageSize - 1
)

// bucketTable holds the chain head of every bucket. Pages of pageSize heads
// are allocated on first write, so an empty table costs one slice header per
// page regardless of how many buckets it addresses.
type bucketTable struct {
	pages [][]int32
}

func newBucketTable(n int) bucketTable {
	return bucketTable{pages: make([][]int32, (n+pageMask)>>pageBits)}
}

// head returns the first entry of bucket b, or nilIndex.
func (t *bucketTable) head(b int) int32 {
	p := t.pages[b>>pageBits]
	if p == nil {
		return nilIndex
	}
	return p[b&pageMask]
}

func (t *bucketTable) setHead(b int, idx int32) {
	p := t.pages[b>>pageBits]
	if p == nil {
		if idx == nilIndex {
			return
		}
		p = make([]int32, pageSize)
		for i := range p {
			p[i] = nilIndex
		}
		t.pages[b>>pageBits] = p
	}
	p[b&pageMask] = idx
}

// allocated returns the number of pages in use.
func (t *bucketTable) allocated() int {
	n := 0
	for _, p := range t.pages {
		if p != nil {
			n++
		}
	}
	return n
}

// reset releases every page.
func (t *bucketTable) reset() {
	clear(t.pages)
}
