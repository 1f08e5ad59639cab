// Package server runs the proxy's listening socket and its admin HTTP
// endpoint.
//
// # Acceptor
//
// Server accepts TCP connections and hands each one to the worker pool as a
// proxy task. Submission never blocks:
//
//   - when the queue is full the connection is closed at once and the
//     acceptor keeps accepting;
//   - once the pool has been shut down the acceptor stops.
//
// Tasks are given a context detached from the acceptor's cancellation, so
// stopping the acceptor does not abort connections that are already being
// served. What happens to queued connections is decided by the pool's
// shutdown mode.
//
//	ln, err := net.Listen("tcp", ":8080")
//	...
//	srv := server.New(handler, workers)
//	go srv.Serve(ctx, ln)
//	...
//	srv.Close()
//	workers.Shutdown()
//
// # Admin endpoint
//
// Admin serves, on a separate address:
//
//   - GET /metrics - Prometheus exposition (path configurable)
//   - GET /health  - liveness
//   - GET /ready   - readiness (pool accepting, journal reachable)
//   - GET /stats   - JSON snapshot of cache, pool and acceptor counters
//   - GET /version - build information
package server
