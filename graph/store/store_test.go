package store

import (
	"context"
	"errors"
	"testing"
)

type testState struct {
	Messages []string `json:"messages"`
	Count    int      `json:"count"`
}

// runStoreTests exercises the Store contract against a backend.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store[testState]) {
	t.Helper()
	ctx := context.Background()

	t.Run("put and latest roundtrip", func(t *testing.T) {
		st := newStore(t)

		state := testState{Messages: []string{"hello"}, Count: 1}
		if err := st.Put(ctx, "thread-1", 1, state, Metadata{"node": "planner"}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		cp, err := st.Latest(ctx, "thread-1")
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if cp.ThreadID != "thread-1" {
			t.Errorf("ThreadID = %q, want thread-1", cp.ThreadID)
		}
		if cp.Seq != 1 {
			t.Errorf("Seq = %d, want 1", cp.Seq)
		}
		if len(cp.State.Messages) != 1 || cp.State.Messages[0] != "hello" {
			t.Errorf("State.Messages = %v, want [hello]", cp.State.Messages)
		}
		if cp.Meta["node"] != "planner" {
			t.Errorf("Meta[node] = %q, want planner", cp.Meta["node"])
		}
		if cp.CreatedAt.IsZero() {
			t.Error("CreatedAt is zero")
		}
	})

	t.Run("latest returns highest seq", func(t *testing.T) {
		st := newStore(t)

		for seq := 1; seq <= 3; seq++ {
			if err := st.Put(ctx, "thread-1", seq, testState{Count: seq}, nil); err != nil {
				t.Fatalf("Put seq %d failed: %v", seq, err)
			}
		}

		cp, err := st.Latest(ctx, "thread-1")
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if cp.Seq != 3 || cp.State.Count != 3 {
			t.Errorf("got seq=%d count=%d, want seq=3 count=3", cp.Seq, cp.State.Count)
		}
	})

	t.Run("latest unknown thread returns ErrNotFound", func(t *testing.T) {
		st := newStore(t)

		_, err := st.Latest(ctx, "no-such-thread")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Latest error = %v, want ErrNotFound", err)
		}
	})

	t.Run("duplicate seq returns ErrConflict", func(t *testing.T) {
		st := newStore(t)

		if err := st.Put(ctx, "thread-1", 1, testState{Count: 1}, nil); err != nil {
			t.Fatalf("first Put failed: %v", err)
		}
		err := st.Put(ctx, "thread-1", 1, testState{Count: 2}, nil)
		if !errors.Is(err, ErrConflict) {
			t.Errorf("second Put error = %v, want ErrConflict", err)
		}

		// The original checkpoint must be untouched.
		cp, err := st.Latest(ctx, "thread-1")
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if cp.State.Count != 1 {
			t.Errorf("Count = %d, want 1", cp.State.Count)
		}
	})

	t.Run("history ascending", func(t *testing.T) {
		st := newStore(t)

		// Out-of-order writes must still come back ordered.
		for _, seq := range []int{2, 1, 3} {
			if err := st.Put(ctx, "thread-1", seq, testState{Count: seq}, nil); err != nil {
				t.Fatalf("Put seq %d failed: %v", seq, err)
			}
		}

		cps, err := st.History(ctx, "thread-1", Ascending, 0)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(cps) != 3 {
			t.Fatalf("got %d checkpoints, want 3", len(cps))
		}
		for i, cp := range cps {
			if cp.Seq != i+1 {
				t.Errorf("checkpoint %d has seq %d, want %d", i, cp.Seq, i+1)
			}
		}
	})

	t.Run("history descending with limit", func(t *testing.T) {
		st := newStore(t)

		for seq := 1; seq <= 5; seq++ {
			if err := st.Put(ctx, "thread-1", seq, testState{Count: seq}, nil); err != nil {
				t.Fatalf("Put seq %d failed: %v", seq, err)
			}
		}

		cps, err := st.History(ctx, "thread-1", Descending, 2)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(cps) != 2 {
			t.Fatalf("got %d checkpoints, want 2", len(cps))
		}
		if cps[0].Seq != 5 || cps[1].Seq != 4 {
			t.Errorf("got seqs %d,%d, want 5,4", cps[0].Seq, cps[1].Seq)
		}
	})

	t.Run("history unknown thread is empty", func(t *testing.T) {
		st := newStore(t)

		cps, err := st.History(ctx, "no-such-thread", Ascending, 0)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(cps) != 0 {
			t.Errorf("got %d checkpoints, want 0", len(cps))
		}
	})

	t.Run("threads are isolated", func(t *testing.T) {
		st := newStore(t)

		if err := st.Put(ctx, "thread-a", 1, testState{Count: 1}, nil); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := st.Put(ctx, "thread-b", 1, testState{Count: 100}, nil); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		cp, err := st.Latest(ctx, "thread-a")
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if cp.State.Count != 1 {
			t.Errorf("thread-a Count = %d, want 1", cp.State.Count)
		}

		cps, err := st.History(ctx, "thread-b", Ascending, 0)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(cps) != 1 || cps[0].State.Count != 100 {
			t.Errorf("thread-b history = %+v, want one checkpoint with Count 100", cps)
		}
	})
}

func TestMemStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store[testState] {
		return NewMemStore[testState]()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store[testState] {
		st, err := NewSQLiteStore[testState](":memory:")
		if err != nil {
			t.Fatalf("NewSQLiteStore failed: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}
