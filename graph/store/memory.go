package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory implementation of Store[S].
//
// It keeps checkpoint history in maps keyed by thread ID. Designed for:
//   - Testing and development
//   - Single-process agents
//   - Short-lived conversations where persistence isn't required
//
// MemStore is thread-safe and supports concurrent access.
//
// Limitations:
//   - Data is lost when the process terminates
//   - Not suitable for distributed systems
//   - Memory usage grows with conversation history
//
// For production use with persistence, use SQLiteStore or MySQLStore.
//
// Type parameter S is the state type to persist.
type MemStore[S any] struct {
	mu      sync.RWMutex
	threads map[string][]Checkpoint[S] // threadID -> checkpoints ordered by seq
}

// NewMemStore creates a new in-memory store.
//
// Example:
//
//	st := store.NewMemStore[State]()
//	cp, err := st.Latest(ctx, threadID)
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		threads: make(map[string][]Checkpoint[S]),
	}
}

// Put persists a checkpoint for the given thread.
//
// The state is deep-copied through JSON so later mutations by the caller
// cannot alter stored history. Returns ErrConflict if the sequence number
// is already taken for this thread.
func (m *MemStore[S]) Put(_ context.Context, threadID string, seq int, state S, meta Metadata) error {
	copied, err := cloneState(state)
	if err != nil {
		return fmt.Errorf("failed to copy state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cp := range m.threads[threadID] {
		if cp.Seq == seq {
			return fmt.Errorf("thread %s seq %d: %w", threadID, seq, ErrConflict)
		}
	}

	m.threads[threadID] = append(m.threads[threadID], Checkpoint[S]{
		ThreadID:  threadID,
		Seq:       seq,
		State:     copied,
		Meta:      cloneMeta(meta),
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Latest retrieves the checkpoint with the highest sequence number.
//
// This handles out-of-order Put calls correctly.
func (m *MemStore[S]) Latest(_ context.Context, threadID string) (Checkpoint[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cps := m.threads[threadID]
	if len(cps) == 0 {
		var zero Checkpoint[S]
		return zero, ErrNotFound
	}

	latest := cps[0]
	for _, cp := range cps[1:] {
		if cp.Seq > latest.Seq {
			latest = cp
		}
	}
	return latest, nil
}

// History returns the thread's checkpoints ordered by sequence number.
func (m *MemStore[S]) History(_ context.Context, threadID string, order Order, limit int) ([]Checkpoint[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cps := m.threads[threadID]
	out := make([]Checkpoint[S], len(cps))
	copy(out, cps)

	sortCheckpoints(out, order)

	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// sortCheckpoints orders checkpoints by sequence number in place.
func sortCheckpoints[S any](cps []Checkpoint[S], order Order) {
	sort.Slice(cps, func(i, j int) bool {
		if order == Descending {
			return cps[i].Seq > cps[j].Seq
		}
		return cps[i].Seq < cps[j].Seq
	})
}

// cloneState round-trips state through JSON to break aliasing with the
// caller's value.
func cloneState[S any](state S) (S, error) {
	var out S
	data, err := json.Marshal(state)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

func cloneMeta(meta Metadata) Metadata {
	if meta == nil {
		return nil
	}
	out := make(Metadata, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
