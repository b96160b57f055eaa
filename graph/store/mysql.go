package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store[S].
//
// It stores checkpoint history in a relational database. Designed for:
//   - Production agents requiring durable conversations
//   - Distributed deployments with multiple workers
//   - Long-running threads that survive process restarts
//   - Audit trails and compliance requirements
//
// MySQLStore uses connection pooling for reliability.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type MySQLStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed store.
//
// The DSN (Data Source Name) format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
//
// Example DSNs:
//
//	user:password@tcp(localhost:3306)/agents
//	user:password@tcp(127.0.0.1:3306)/agents?parseTime=true
//
// Security Warning:
//
//	NEVER hardcode credentials in your source code. Use environment variables:
//	    dsn := os.Getenv("MYSQL_DSN")
//	    if dsn == "" {
//	        log.Fatal("MYSQL_DSN environment variable not set")
//	    }
//	    st, err := store.NewMySQLStore[State](dsn)
//
// The store automatically:
//   - Creates the checkpoints table if it doesn't exist
//   - Configures connection pooling
//   - Verifies connectivity with an initial ping
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	st := &MySQLStore[S]{db: db}

	if err := st.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return st, nil
}

// createTables creates the required database schema if it doesn't exist.
func (m *MySQLStore[S]) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS checkpoints (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			thread_id VARCHAR(255) NOT NULL,
			seq INT NOT NULL,
			state JSON NOT NULL,
			meta JSON NOT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_thread (thread_id),
			INDEX idx_thread_seq (thread_id, seq),
			UNIQUE KEY unique_thread_seq (thread_id, seq)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create checkpoints table: %w", err)
	}
	return nil
}

// Put persists a checkpoint row for the given thread.
//
// Returns ErrConflict if the (thread_id, seq) pair already exists.
// Thread-safe for concurrent writes.
func (m *MySQLStore[S]) Put(ctx context.Context, threadID string, seq int, state S, meta Metadata) error {
	if err := m.checkOpen(); err != nil {
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
	createdAt := time.Now().UTC().Format("2006-01-02 15:04:05.999999")
	_, err = m.db.ExecContext(ctx, query, threadID, seq, stateJSON, metaJSON, createdAt)
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
func (m *MySQLStore[S]) Latest(ctx context.Context, threadID string) (Checkpoint[S], error) {
	var zero Checkpoint[S]
	if err := m.checkOpen(); err != nil {
		return zero, err
	}

	query := `
		SELECT seq, state, meta, created_at
		FROM checkpoints
		WHERE thread_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`
	cp, err := scanCheckpoint[S](m.db.QueryRowContext(ctx, query, threadID), threadID)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load latest checkpoint: %w", err)
	}
	return cp, nil
}

// History returns the thread's checkpoints ordered by sequence number.
func (m *MySQLStore[S]) History(ctx context.Context, threadID string, order Order, limit int) ([]Checkpoint[S], error) {
	if err := m.checkOpen(); err != nil {
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

	rows, err := m.db.QueryContext(ctx, query, args...)
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

// Close closes the database connection pool.
//
// After Close, all operations return an error. Calling Close multiple
// times is safe (subsequent calls are no-ops).
func (m *MySQLStore[S]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}

// Ping verifies the database connection is alive.
//
// Useful for health checks and connection validation.
func (m *MySQLStore[S]) Ping(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.db.PingContext(ctx)
}

// DB exposes the underlying connection pool so tools that query
// application tables can share it.
func (m *MySQLStore[S]) DB() *sql.DB {
	return m.db
}

func (m *MySQLStore[S]) checkOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}
