package journal

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/cacheproxy/pkg/proxy"
)

// writeTimeout bounds a single insert.
const writeTimeout = 5 * time.Second

// Writer is the storage a Recorder writes to. *Store satisfies it.
type Writer interface {
	Insert(ctx context.Context, e Entry) (int64, error)
}

// Recorder writes connection records asynchronously. It implements
// proxy.Observer.
type Recorder struct {
	w       Writer
	entries chan Entry
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewRecorder starts a Recorder with room for buffer queued records.
func NewRecorder(w Writer, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 1000
	}

	r := &Recorder{
		w:       w,
		entries: make(chan Entry, buffer),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "journal.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("journal recorder initialized", "buffer", buffer)
	return r
}

// ObserveConnection queues rec without blocking. Records arriving while the
// buffer is full, or after Close, are dropped.
func (r *Recorder) ObserveConnection(rec proxy.Record) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return
	}

	select {
	case r.entries <- FromRecord(rec):
	default:
		if n := r.dropped.Add(1); n == 1 || n%1000 == 0 {
			r.logger.Warn("journal buffer full, dropping record",
				"conn_id", rec.ID,
				"dropped_total", n,
			)
		}
	}
}

// Written returns the number of records stored.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Dropped returns the number of records dropped because the buffer was full
// or the recorder was closed.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Failed returns the number of records the store rejected.
func (r *Recorder) Failed() uint64 { return r.failed.Load() }

// Close stops accepting records, writes everything already queued and
// returns once the writer goroutine has exited.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.done)
		r.mu.Unlock()

		r.wg.Wait()
		r.logger.Info("journal recorder closed",
			"written", r.Written(),
			"dropped", r.Dropped(),
		)
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case e := <-r.entries:
			r.write(e)

		case <-r.done:
			for {
				select {
				case e := <-r.entries:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if _, err := r.w.Insert(ctx, e); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to write journal entry",
			"conn_id", e.ConnID,
			"error", err,
		)
		return
	}
	r.written.Add(1)
}
