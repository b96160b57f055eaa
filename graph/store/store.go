package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a thread has no checkpoints.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a checkpoint with the same thread ID and
// sequence number already exists. Sequence numbers are write-once; a
// conflict usually means two runs are racing on the same thread.
var ErrConflict = errors.New("checkpoint sequence conflict")

// Order controls the direction of History results.
type Order int

const (
	// Ascending returns checkpoints oldest first (sequence 1, 2, 3 ...).
	Ascending Order = iota
	// Descending returns checkpoints newest first.
	Descending
)

// Metadata carries structured annotations alongside a checkpoint,
// such as the node that produced the state. Keys and values are
// persisted as JSON.
type Metadata map[string]string

// Checkpoint is a durable snapshot of conversation state after a single
// node execution. Checkpoints for a thread form an append-only, totally
// ordered history keyed by sequence number.
//
// Type parameter S is the state type being persisted.
type Checkpoint[S any] struct {
	ThreadID  string    `json:"thread_id"`
	Seq       int       `json:"seq"`
	State     S         `json:"state"`
	Meta      Metadata  `json:"meta,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides durable, thread-keyed persistence for workflow state.
//
// Each conversation thread accumulates an ordered list of checkpoints,
// one per executed node. Stores enable:
//   - Resumption: load the latest checkpoint and continue the conversation
//   - Audit: walk the full history of a thread in either direction
//
// Implementations must be safe for concurrent use. S must be
// JSON-serializable.
type Store[S any] interface {
	// Put persists a checkpoint for the given thread and sequence number.
	// Sequence numbers start at 1 and are write-once per thread: writing
	// a (threadID, seq) pair that already exists returns ErrConflict.
	Put(ctx context.Context, threadID string, seq int, state S, meta Metadata) error

	// Latest retrieves the checkpoint with the highest sequence number
	// for the given thread. Returns ErrNotFound if the thread has no
	// checkpoints.
	Latest(ctx context.Context, threadID string) (Checkpoint[S], error)

	// History returns the thread's checkpoints ordered by sequence
	// number. A limit of zero or less returns the full history.
	// Returns an empty slice (not ErrNotFound) for unknown threads.
	History(ctx context.Context, threadID string, order Order, limit int) ([]Checkpoint[S], error)
}
