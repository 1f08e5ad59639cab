// Package proxy implements the per-connection state machine of the caching
// proxy.
//
// A Handler reads one request from a client connection, parses it, and
// answers from the cache when the URL is present. On a miss it resolves the
// Host header, connects to the upstream on the configured port, forwards the
// raw request bytes, reads the response, stores it under the URL and relays
// it to the client. The client connection is closed exactly once on every
// path and no HTTP error response is ever written.
//
// Handlers are meant to run as pool tasks:
//
//	h, _ := proxy.NewHandler(lru, proxy.DefaultConfig())
//	err := workers.Submit(h.Task(ctx, conn))
//
// Every finished connection is reported to the configured Observers as a
// Record.
package proxy
