// Package health implements the liveness and readiness probes served on the
// admin endpoint.
//
// Liveness only reports that the process answers. Readiness runs every
// registered check concurrently, each bounded by the checker's timeout, and
// reports "degraded" if any of them fails:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("pool", health.Accepting(p.Done()))
//	checker.Register("journal", health.Ping(store))
//
//	mux.Handle("/health", checker.LivenessHandler())
//	mux.Handle("/ready", checker.ReadinessHandler())
package health
