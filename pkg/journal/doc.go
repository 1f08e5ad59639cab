// Package journal persists connection outcomes to SQLite.
//
// The journal records what happened to each client connection (URL, host,
// outcome, byte counts, duration, error) and never stores response bodies.
// Writes go through a Recorder, which queues records in a bounded buffer and
// writes them from one goroutine so workers never wait on the database. When
// the buffer is full new records are dropped and counted.
//
//	store, err := journal.Open(cfg.Journal.Path, cfg.Journal.BusyTimeout)
//	rec := journal.NewRecorder(store, cfg.Journal.Buffer)
//	defer rec.Close()
//	handler, _ := proxy.NewHandler(lru, pcfg, proxy.WithObserver(rec))
package journal
