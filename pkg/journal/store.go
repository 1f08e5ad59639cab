package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/cacheproxy/pkg/proxy"
)

// Entry is one journal row.
type Entry struct {
	ID         int64
	ConnID     string
	RemoteAddr string
	Method     string
	URL        string
	Host       string
	Outcome    string
	CacheHit   bool
	BytesIn    int
	BytesOut   int
	StartedAt  time.Time
	Duration   time.Duration
	Error      string
}

// FromRecord converts a connection record to an Entry.
func FromRecord(rec proxy.Record) Entry {
	return Entry{
		ConnID:     rec.ID,
		RemoteAddr: rec.RemoteAddr,
		Method:     rec.Method,
		URL:        rec.URL,
		Host:       rec.Host,
		Outcome:    string(rec.Outcome),
		CacheHit:   rec.CacheHit,
		BytesIn:    rec.BytesIn,
		BytesOut:   rec.BytesOut,
		StartedAt:  rec.Start,
		Duration:   rec.Duration,
		Error:      rec.ErrText(),
	}
}

// Store is a SQLite-backed journal.
type Store struct {
	db        *sql.DB
	path      string
	closeOnce sync.Once

	insertStmt *sql.Stmt
	recentStmt *sql.Stmt
}

// Open opens or creates the journal database at path, creating its
// directory if needed.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS connections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conn_id TEXT NOT NULL,
		remote_addr TEXT NOT NULL,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		host TEXT NOT NULL,
		outcome TEXT NOT NULL,
		cache_hit INTEGER NOT NULL,
		bytes_in INTEGER NOT NULL,
		bytes_out INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		error TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_connections_started_at ON connections(started_at);
	CREATE INDEX IF NOT EXISTS idx_connections_outcome ON connections(outcome);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *Store) prepareStatements() error {
	var err error

	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO connections (conn_id, remote_addr, method, url, host, outcome,
			cache_hit, bytes_in, bytes_out, started_at, duration_ns, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.recentStmt, err = s.db.Prepare(`
		SELECT id, conn_id, remote_addr, method, url, host, outcome,
			cache_hit, bytes_in, bytes_out, started_at, duration_ns, error
		FROM connections
		ORDER BY id DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare recent statement: %w", err)
	}

	return nil
}

// Insert writes e and returns its row ID.
func (s *Store) Insert(ctx context.Context, e Entry) (int64, error) {
	var started int64
	if !e.StartedAt.IsZero() {
		started = e.StartedAt.UnixNano()
	}

	res, err := s.insertStmt.ExecContext(ctx,
		e.ConnID, e.RemoteAddr, e.Method, e.URL, e.Host, e.Outcome,
		e.CacheHit, e.BytesIn, e.BytesOut, started, int64(e.Duration), e.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.recentStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			started  int64
			duration int64
		)
		if err := rows.Scan(&e.ID, &e.ConnID, &e.RemoteAddr, &e.Method, &e.URL, &e.Host, &e.Outcome,
			&e.CacheHit, &e.BytesIn, &e.BytesOut, &started, &duration, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		if started != 0 {
			e.StartedAt = time.Unix(0, started)
		}
		e.Duration = time.Duration(duration)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByOutcome returns the number of entries per outcome.
func (s *Store) CountByOutcome(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM connections GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count journal entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			outcome string
			n       int64
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// PingContext checks that the database is reachable.
func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.insertStmt != nil {
			s.insertStmt.Close()
		}
		if s.recentStmt != nil {
			s.recentStmt.Close()
		}
		err = s.db.Close()
	})
	return err
}
