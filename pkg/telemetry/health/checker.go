package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Status values reported by checks and probes.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultTimeout bounds a single check when New is given zero.
const DefaultTimeout = 5 * time.Second

// ErrCheckTimeout is reported when a check does not return in time.
var ErrCheckTimeout = errors.New("health check timeout")

// CheckFunc reports nil when the component it checks is healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// Report is the body of a probe response.
type Report struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Checker holds named readiness checks.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

// New creates a Checker whose checks each get timeout to complete.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		checks:  make(map[string]CheckFunc),
		timeout: timeout,
	}
}

// Register adds check under name, replacing any check of the same name.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Names returns the registered check names in sorted order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Liveness reports that the process is up.
func (c *Checker) Liveness() Report {
	return Report{Status: StatusOK, Timestamp: time.Now()}
}

// Readiness runs every check concurrently and aggregates the results.
func (c *Checker) Readiness(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.run(ctx, check)

			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := StatusReady
	for _, res := range results {
		if res.Status != StatusOK {
			status = StatusDegraded
			break
		}
	}

	return Report{Status: status, Checks: results, Timestamp: time.Now()}
}

func (c *Checker) run(ctx context.Context, check CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	errCh := make(chan error, 1)
	go func() {
		errCh <- check(ctx)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	res := CheckResult{Status: StatusOK, Duration: time.Since(start)}
	if err != nil {
		res.Status = StatusUnhealthy
		res.Message = err.Error()
	}
	return res
}

// Accepting fails once done is closed. Pass the worker pool's Done channel.
func Accepting(done <-chan struct{}) CheckFunc {
	return func(context.Context) error {
		select {
		case <-done:
			return errors.New("worker pool is shut down")
		default:
			return nil
		}
	}
}

// Pinger is satisfied by *sql.DB and the journal store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Ping checks that p answers.
func Ping(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.PingContext(ctx)
	}
}
