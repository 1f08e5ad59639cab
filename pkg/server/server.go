package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/cacheproxy/pkg/pool"
	"mercator-hq/cacheproxy/pkg/proxy"
)

// ErrServerRunning is returned by Serve when it is already serving.
var ErrServerRunning = errors.New("server is already running")

const maxAcceptDelay = time.Second

// Submitter queues tasks without blocking. *pool.Pool satisfies it.
type Submitter interface {
	Submit(task pool.Task) error
}

// Stats counts what the acceptor did with incoming connections.
type Stats struct {
	Accepted uint64 `json:"accepted"`
	Rejected uint64 `json:"rejected"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server accepts client connections and submits them to a worker pool.
type Server struct {
	handler *proxy.Handler
	pool    Submitter
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	running  bool
	closing  atomic.Bool

	accepted atomic.Uint64
	rejected atomic.Uint64
}

// New creates a Server that serves connections with handler on the workers
// of p.
func New(handler *proxy.Handler, p Submitter, opts ...Option) *Server {
	s := &Server{
		handler: handler,
		pool:    p,
		logger:  slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve accepts connections on ln until ctx is cancelled, Close is called or
// the pool stops taking tasks. It closes ln before returning. A clean stop
// returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerRunning
	}
	s.running = true
	s.listener = ln
	s.closing.Store(false)
	s.mu.Unlock()

	defer func() {
		s.Close()
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-stop:
		}
	}()

	s.logger.Info("accepting connections", "address", ln.Addr().String())

	taskCtx := context.WithoutCancel(ctx)
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("listener closed: %w", err)
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			s.logger.Warn("accept failed", "error", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0
		s.accepted.Add(1)

		if err := s.pool.Submit(s.handler.Task(taskCtx, conn)); err != nil {
			s.rejected.Add(1)
			s.logger.Warn("connection rejected",
				"remote_addr", conn.RemoteAddr().String(),
				"error", err,
			)
			conn.Close()

			if errors.Is(err, pool.ErrClosed) {
				s.logger.Info("worker pool closed, no longer accepting")
				return nil
			}
		}
	}
}

// Close stops accepting. Connections already handed to the pool are not
// affected. It is safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil || s.closing.Swap(true) {
		return nil
	}
	return s.listener.Close()
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning reports whether Serve is active.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stats returns the acceptor's counters.
func (s *Server) Stats() Stats {
	return Stats{
		Accepted: s.accepted.Load(),
		Rejected: s.rejected.Load(),
	}
}
