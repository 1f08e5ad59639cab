// Package cache provides the fixed-capacity LRU store shared by every proxy
// worker.
//
// # Layout
//
// Entries live in one owned slice and are addressed by index. Two independent
// relations are kept over those indices:
//
//   - bucket chains: buckets[h] is the first entry whose key hashes to h, and
//     entry.bucketNext links to the next entry of the same chain
//   - recency order: entry.prev and entry.next form a doubly linked list over
//     all live entries, head = most recently used, tail = least recently used
//
// The entry slice grows with append until it reaches capacity, and bucket
// heads are stored in pages allocated on first use, so a large, mostly empty
// cache stays small. A slot freed by eviction is reused by the entry that
// caused the eviction, so the slice never grows past the configured capacity.
//
// # Concurrency
//
// Every Get and Put takes the same mutex for its whole duration. Callers never
// observe a partially applied update; a Get racing a Put on the same key sees
// either the old or the new value.
//
// # Usage
//
//	c, err := cache.New(128)
//	if err != nil {
//	    return err
//	}
//	c.Put("/index.html", response)
//	if body, ok := c.Get("/index.html"); ok {
//	    conn.Write(body)
//	}
package cache
