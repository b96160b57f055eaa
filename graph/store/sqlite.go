package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// It stores checkpoint history in a single-file database. Designed for:
//   - Development and testing with zero setup
//   - Single-process agents requiring durable conversations
//   - Prototyping before migrating to a server-backed store
//
// SQLiteStore uses WAL mode for concurrent reads and a single writer
// connection for safety.
//
// Schema:
//   - checkpoints: one row per (thread_id, seq) pair
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type SQLiteStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed store.
//
// The path parameter specifies the database file location:
//   - "./dev.db" - file in current directory
//   - "/tmp/agent.db" - absolute path
//   - ":memory:" - in-memory database (data lost on close)
//
// The store automatically:
//   - Creates the database file if it doesn't exist
//   - Creates the checkpoints table
//   - Enables WAL mode for concurrent reads
//   - Sets a busy timeout so concurrent writers wait instead of failing
//
// Example:
//
//	st, err := store.NewSQLiteStore[State]("./dev.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	st := &SQLiteStore[S]{
		db:   db,
		path: path,
	}

	if err := st.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return st, nil
}

// createTables creates the required database schema if it doesn't exist.
func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS checkpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			state TEXT NOT NULL,
			meta TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL,
			UNIQUE(thread_id, seq)
		)
	`
	if _, err := s.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create checkpoints table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_checkpoints_thread ON checkpoints(thread_id, seq)"); err != nil {
		return fmt.Errorf("failed to create idx_checkpoints_thread: %w", err)
	}

	return nil
}

// Put persists a checkpoint row for the given thread.
//
// Returns ErrConflict if the (thread_id, seq) pair already exists.
func (s *SQLiteStore[S]) Put(ctx context.Context, threadID string, seq int, state S, meta Metadata) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	metaJSON, err := marshalMeta(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	query := `
		INSERT INTO checkpoints (thread_id, seq, state, meta, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query, threadID, seq, stateJSON, metaJSON, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("thread %s seq %d: %w", threadID, seq, ErrConflict)
		}
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Latest retrieves the checkpoint with the highest sequence number.
//
// Returns ErrNotFound if the thread has no checkpoints.
func (s *SQLiteStore[S]) Latest(ctx context.Context, threadID string) (Checkpoint[S], error) {
	var zero Checkpoint[S]
	if err := s.checkOpen(); err != nil {
		return zero, err
	}

	query := `
		SELECT seq, state, meta, created_at
		FROM checkpoints
		WHERE thread_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`
	cp, err := scanCheckpoint[S](s.db.QueryRowContext(ctx, query, threadID), threadID)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load latest checkpoint: %w", err)
	}
	return cp, nil
}

// History returns the thread's checkpoints ordered by sequence number.
func (s *SQLiteStore[S]) History(ctx context.Context, threadID string, order Order, limit int) ([]Checkpoint[S], error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	dir := "ASC"
	if order == Descending {
		dir = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT seq, state, meta, created_at
		FROM checkpoints
		WHERE thread_id = ?
		ORDER BY seq %s
	`, dir)
	args := []interface{}{threadID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	out := []Checkpoint[S]{}
	for rows.Next() {
		cp, err := scanCheckpoint[S](rows, threadID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
//
// After Close, all operations return an error. Calling Close multiple
// times is safe.
func (s *SQLiteStore[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore[S]) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// DB exposes the underlying connection pool so tools that query
// application tables can share it.
func (s *SQLiteStore[S]) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore[S]) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCheckpoint[S any](row rowScanner, threadID string) (Checkpoint[S], error) {
	var (
		cp         Checkpoint[S]
		stateJSON  []byte
		metaJSON   []byte
		createdRaw []byte
	)
	if err := row.Scan(&cp.Seq, &stateJSON, &metaJSON, &createdRaw); err != nil {
		return cp, err
	}
	cp.ThreadID = threadID
	cp.CreatedAt = parseTimestamp(string(createdRaw))
	if err := json.Unmarshal(stateJSON, &cp.State); err != nil {
		return cp, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &cp.Meta); err != nil {
			return cp, fmt.Errorf("failed to unmarshal meta: %w", err)
		}
	}
	if len(cp.Meta) == 0 {
		cp.Meta = nil
	}
	return cp, nil
}

func marshalMeta(meta Metadata) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(meta)
}

// parseTimestamp handles the text formats the SQLite and MySQL drivers
// hand back for timestamp columns.
func parseTimestamp(raw string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// isUniqueViolation reports whether err is a unique-constraint failure.
// Both modernc.org/sqlite and go-sql-driver/mysql surface the constraint
// name in the error text; matching on it avoids driver-specific error
// types in this package.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate entry")
}
