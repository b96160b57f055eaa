package store

import (
	"context"
	"sync"
	"testing"
)

func TestMemStore_DeepCopiesState(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore[testState]()

	state := testState{Messages: []string{"original"}}
	if err := st.Put(ctx, "thread-1", 1, state, nil); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Mutating the caller's value must not alter stored history.
	state.Messages[0] = "mutated"
	state.Messages = append(state.Messages, "extra")

	cp, err := st.Latest(ctx, "thread-1")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if len(cp.State.Messages) != 1 || cp.State.Messages[0] != "original" {
		t.Errorf("stored Messages = %v, want [original]", cp.State.Messages)
	}
}

func TestMemStore_DeepCopiesMeta(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore[testState]()

	meta := Metadata{"node": "planner"}
	if err := st.Put(ctx, "thread-1", 1, testState{}, meta); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	meta["node"] = "executor"

	cp, err := st.Latest(ctx, "thread-1")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if cp.Meta["node"] != "planner" {
		t.Errorf("Meta[node] = %q, want planner", cp.Meta["node"])
	}
}

func TestMemStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore[testState]()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(seq int) {
			defer wg.Done()
			_ = st.Put(ctx, "thread-1", seq, testState{Count: seq}, nil)
			_, _ = st.Latest(ctx, "thread-1")
			_, _ = st.History(ctx, "thread-1", Ascending, 0)
		}(i + 1)
	}
	wg.Wait()

	cps, err := st.History(ctx, "thread-1", Ascending, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(cps) != 10 {
		t.Errorf("got %d checkpoints, want 10", len(cps))
	}
}
