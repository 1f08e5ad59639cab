package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = errors.New("worker pool queue is full")

	// ErrClosed is returned by Submit once Shutdown has been called.
	ErrClosed = errors.New("worker pool is shut down")

	// ErrInvalidSize is returned by New for a non-positive worker count or
	// queue capacity.
	ErrInvalidSize = errors.New("worker pool size must be positive")

	// ErrNilTask is returned by Submit for a nil task.
	ErrNilTask = errors.New("worker pool task is nil")
)

// Task is a unit of work. Whatever the task owns is its responsibility to
// release before Run returns.
type Task interface {
	Run()
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func()

// Run calls f.
func (f TaskFunc) Run() { f() }

// Discarder is implemented by tasks that hold resources which must be
// released when the pool drops them without running.
type Discarder interface {
	Discard()
}

// ShutdownMode selects what happens to queued tasks at shutdown.
type ShutdownMode int

const (
	// DropPending discards tasks that were queued but not yet taken by a
	// worker when shutdown was requested.
	DropPending ShutdownMode = iota

	// DrainPending lets workers run every queued task before exiting.
	DrainPending
)

// String returns the config spelling of m.
func (m ShutdownMode) String() string {
	switch m {
	case DropPending:
		return "drop"
	case DrainPending:
		return "drain"
	default:
		return fmt.Sprintf("ShutdownMode(%d)", int(m))
	}
}

// ParseShutdownMode parses "drop" or "drain".
func ParseShutdownMode(s string) (ShutdownMode, error) {
	switch s {
	case "drop", "":
		return DropPending, nil
	case "drain":
		return DrainPending, nil
	default:
		return DropPending, fmt.Errorf("unknown shutdown mode %q", s)
	}
}

// Option configures a Pool.
type Option func(*Pool)

// WithShutdownMode sets the shutdown behaviour. Default: DropPending.
func WithShutdownMode(mode ShutdownMode) Option {
	return func(p *Pool) {
		p.mode = mode
	}
}

// WithLogger sets the logger used for panics and lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Stats is a snapshot of pool state and counters.
type Stats struct {
	Workers       int    `json:"workers"`
	QueueCapacity int    `json:"queue_capacity"`
	Queued        int    `json:"queued"`
	Active        int    `json:"active"`
	Submitted     uint64 `json:"submitted"`
	Rejected      uint64 `json:"rejected"`
	Completed     uint64 `json:"completed"`
	Discarded     uint64 `json:"discarded"`
	Panics        uint64 `json:"panics"`
}

// Pool is a fixed set of worker goroutines draining a bounded FIFO queue.
type Pool struct {
	mu     sync.Mutex
	notify *sync.Cond

	// ring buffer; count == len(queue) means full
	queue []Task
	head  int
	tail  int
	count int

	shutdown bool
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup

	workers int
	mode    ShutdownMode
	logger  *slog.Logger

	active    int
	submitted uint64
	rejected  uint64
	completed uint64
	discarded uint64
	panics    uint64
}

// New starts workers goroutines sharing a queue of queueCapacity slots.
func New(workers, queueCapacity int, opts ...Option) (*Pool, error) {
	if workers <= 0 || queueCapacity <= 0 {
		return nil, fmt.Errorf("%w: workers=%d queue=%d", ErrInvalidSize, workers, queueCapacity)
	}

	p := &Pool{
		queue:   make([]Task, queueCapacity),
		done:    make(chan struct{}),
		workers: workers,
		mode:    DropPending,
		logger:  slog.Default().With("component", "pool"),
	}
	p.notify = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}

	p.logger.Debug("worker pool started",
		"workers", workers,
		"queue_capacity", queueCapacity,
		"shutdown_mode", p.mode.String(),
	)

	return p, nil
}

// Submit enqueues task without blocking. It fails with ErrQueueFull when the
// queue is full and with ErrClosed after Shutdown. On error the caller keeps
// ownership of task.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown {
		return ErrClosed
	}
	if p.count == len(p.queue) {
		p.rejected++
		return ErrQueueFull
	}

	p.queue[p.tail] = task
	p.tail = (p.tail + 1) % len(p.queue)
	p.count++
	p.submitted++

	p.notify.Signal()
	return nil
}

// Shutdown stops the pool and blocks until every worker has exited. Tasks
// already running finish normally. In DropPending mode queued tasks are
// discarded; those implementing Discarder are told so. Calling Shutdown more
// than once is safe.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.shutdown = true
		close(p.done)
		p.notify.Broadcast()
		p.mu.Unlock()

		p.wg.Wait()

		p.mu.Lock()
		dropped := make([]Task, 0, p.count)
		for p.count > 0 {
			dropped = append(dropped, p.pop())
		}
		p.discarded += uint64(len(dropped))
		p.mu.Unlock()

		for _, task := range dropped {
			if d, ok := task.(Discarder); ok {
				d.Discard()
			}
		}

		p.logger.Info("worker pool stopped",
			"mode", p.mode.String(),
			"discarded", len(dropped),
		)
	})
}

// Done is closed when shutdown has been requested.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// Stats returns a snapshot of the pool.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Workers:       p.workers,
		QueueCapacity: len(p.queue),
		Queued:        p.count,
		Active:        p.active,
		Submitted:     p.submitted,
		Rejected:      p.rejected,
		Completed:     p.completed,
		Discarded:     p.discarded,
		Panics:        p.panics,
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for p.count == 0 && !p.shutdown {
			p.notify.Wait()
		}
		if p.shutdown && (p.mode == DropPending || p.count == 0) {
			p.mu.Unlock()
			return
		}

		task := p.pop()
		p.active++
		p.mu.Unlock()

		p.run(id, task)

		p.mu.Lock()
		p.active--
		p.completed++
		p.mu.Unlock()
	}
}

// pop removes the head of the queue. Caller holds mu and has checked count.
func (p *Pool) pop() Task {
	task := p.queue[p.head]
	p.queue[p.head] = nil
	p.head = (p.head + 1) % len(p.queue)
	p.count--
	return task
}

// run executes task, recovering a panic so the worker survives it.
func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.mu.Lock()
			p.panics++
			p.mu.Unlock()
			p.logger.Error("task panicked",
				"worker", id,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	task.Run()
}
