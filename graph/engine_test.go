package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agentgraph/agentgraph/graph/emit"
	"github.com/agentgraph/agentgraph/graph/store"
)

// captureEmitter records events for assertions.
type captureEmitter struct {
	mu     sync.Mutex
	events []emit.Event
}

func (c *captureEmitter) Emit(event emit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureEmitter) byMsg(msg string) []emit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []emit.Event
	for _, e := range c.events {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}

// failingStore injects Put failures into an otherwise working MemStore.
type failingStore struct {
	*store.MemStore[buildState]
	putErr error
}

func (f *failingStore) Put(ctx context.Context, threadID string, seq int, state buildState, meta store.Metadata) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemStore.Put(ctx, threadID, seq, state, meta)
}

// linearGraph builds START -> first -> second -> END where each node
// appends its name to the log.
func linearGraph(t *testing.T) *Compiled[buildState] {
	t.Helper()
	appendName := func(name string) NodeFunc[buildState] {
		return func(ctx context.Context, state buildState, rc RunContext[buildState]) (buildState, error) {
			return buildState{Log: []string{name}}, nil
		}
	}

	b := NewBuilder[buildState](buildReducer)
	_ = b.AddNode("first", appendName("first"))
	_ = b.AddNode("second", appendName("second"))
	_ = b.AddEdge(START, "first")
	_ = b.AddEdge("first", "second")
	_ = b.AddEdge("second", END)

	g, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return g
}

func TestInvoke_LinearRun(t *testing.T) {
	g := linearGraph(t)
	st := store.NewMemStore[buildState]()
	emitter := &captureEmitter{}

	final, err := g.Invoke(context.Background(), RunContext[buildState]{
		ThreadID: "t-1",
		UserID:   "u-1",
		Store:    st,
		Emitter:  emitter,
	}, buildState{Log: []string{"user"}})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	want := []string{"user", "first", "second"}
	if len(final.Log) != len(want) {
		t.Fatalf("Log = %v, want %v", final.Log, want)
	}
	for i := range want {
		if final.Log[i] != want[i] {
			t.Errorf("Log[%d] = %q, want %q", i, final.Log[i], want[i])
		}
	}

	// One checkpoint per node, sequence positions 1 and 2.
	cps, err := st.History(context.Background(), "t-1", store.Ascending, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(cps) != 2 {
		t.Fatalf("got %d checkpoints, want 2", len(cps))
	}
	if cps[0].Meta["node"] != "first" || cps[1].Meta["node"] != "second" {
		t.Errorf("checkpoint nodes = %q, %q", cps[0].Meta["node"], cps[1].Meta["node"])
	}
	if cps[0].Meta["user_id"] != "u-1" {
		t.Errorf("checkpoint user_id = %q, want u-1", cps[0].Meta["user_id"])
	}

	if got := emitter.byMsg("node_end"); len(got) != 2 {
		t.Errorf("got %d node_end events, want 2", len(got))
	}
	if got := emitter.byMsg("run_end"); len(got) != 1 {
		t.Errorf("got %d run_end events, want 1", len(got))
	}
}

func TestInvoke_ConditionalLoop(t *testing.T) {
	b := NewBuilder[buildState](buildReducer)
	_ = b.AddNode("count", func(ctx context.Context, state buildState, rc RunContext[buildState]) (buildState, error) {
		return buildState{N: state.N + 1}, nil
	})
	_ = b.AddEdge(START, "count")
	_ = b.AddConditionalEdge("count", func(s buildState) string {
		if s.N < 3 {
			return "again"
		}
		return "done"
	}, map[string]string{
		"again": "count",
		"done":  END,
	})

	g, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	final, err := g.Invoke(context.Background(), RunContext[buildState]{ThreadID: "t-1"}, buildState{})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if final.N != 3 {
		t.Errorf("N = %d, want 3", final.N)
	}
}

func TestInvoke_UnmappedOutcomeIsRoutingError(t *testing.T) {
	b := NewBuilder[buildState](buildReducer)
	_ = b.AddNode("a", func(ctx context.Context, state buildState, rc RunContext[buildState]) (buildState, error) {
		return buildState{}, nil
	})
	_ = b.AddEdge(START, "a")
	_ = b.AddConditionalEdge("a", func(s buildState) string { return "surprise" }, map[string]string{
		"expected": END,
	})

	g, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	_, err = g.Invoke(context.Background(), RunContext[buildState]{ThreadID: "t-1"}, buildState{})
	var routeErr *RoutingError
	if !errors.As(err, &routeErr) {
		t.Fatalf("error = %v, want *RoutingError", err)
	}
	if routeErr.Outcome != "surprise" {
		t.Errorf("Outcome = %q, want surprise", routeErr.Outcome)
	}
}

func TestInvoke_MaxHopsExhausted(t *testing.T) {
	b := NewBuilder[buildState](buildReducer)
	_ = b.AddNode("spin", func(ctx context.Context, state buildState, rc RunContext[buildState]) (buildState, error) {
		return buildState{}, nil
	})
	_ = b.AddEdge(START, "spin")
	_ = b.AddConditionalEdge("spin", func(s buildState) string { return "again" }, map[string]string{
		"again": "spin",
		"done":  END,
	})

	g, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	_, err = g.Invoke(context.Background(), RunContext[buildState]{ThreadID: "t-1", MaxHops: 5}, buildState{})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %v, want *ExhaustedError", err)
	}
	if exhausted.Hops != 5 {
		t.Errorf("Hops = %d, want 5", exhausted.Hops)
	}
	if !strings.HasPrefix(err.Error(), "plan exhausted") {
		t.Errorf("error message = %q, want plan exhausted prefix", err.Error())
	}
}

func TestInvoke_NodeErrorPropagatesUnchanged(t *testing.T) {
	nodeErr := fmt.Errorf("model blew up")

	b := NewBuilder[buildState](buildReducer)
	_ = b.AddNode("boom", func(ctx context.Context, state buildState, rc RunContext[buildState]) (buildState, error) {
		return buildState{}, nodeErr
	})
	_ = b.AddEdge(START, "boom")
	_ = b.AddEdge("boom", END)

	g, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	st := store.NewMemStore[buildState]()
	_, err = g.Invoke(context.Background(), RunContext[buildState]{ThreadID: "t-1", Store: st}, buildState{})
	if !errors.Is(err, nodeErr) {
		t.Fatalf("error = %v, want the node's error", err)
	}

	// The failed node must not have checkpointed.
	cps, _ := st.History(context.Background(), "t-1", store.Ascending, 0)
	if len(cps) != 0 {
		t.Errorf("got %d checkpoints, want 0", len(cps))
	}
}

func TestInvoke_DeadlineIsTimeoutError(t *testing.T) {
	b := NewBuilder[buildState](buildReducer)
	_ = b.AddNode("slow", func(ctx context.Context, state buildState, rc RunContext[buildState]) (buildState, error) {
		select {
		case <-time.After(time.Second):
			return buildState{Log: []string{"slow"}}, nil
		case <-ctx.Done():
			return buildState{}, ctx.Err()
		}
	})
	_ = b.AddEdge(START, "slow")
	_ = b.AddEdge("slow", END)

	g, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	st := store.NewMemStore[buildState]()
	_, err = g.Invoke(ctx, RunContext[buildState]{ThreadID: "t-1", Store: st}, buildState{})

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want *TimeoutError", err)
	}
	if timeoutErr.Node != "slow" {
		t.Errorf("Node = %q, want slow", timeoutErr.Node)
	}

	// No partial checkpoint for the aborted node.
	cps, _ := st.History(context.Background(), "t-1", store.Ascending, 0)
	if len(cps) != 0 {
		t.Errorf("got %d checkpoints, want 0", len(cps))
	}
}

func TestInvoke_SequenceContinuesAcrossRuns(t *testing.T) {
	g := linearGraph(t)
	st := store.NewMemStore[buildState]()
	rc := RunContext[buildState]{ThreadID: "t-1", Store: st}

	if _, err := g.Invoke(context.Background(), rc, buildState{Log: []string{"one"}}); err != nil {
		t.Fatalf("first Invoke failed: %v", err)
	}
	if _, err := g.Invoke(context.Background(), rc, buildState{Log: []string{"two"}}); err != nil {
		t.Fatalf("second Invoke failed: %v", err)
	}

	cps, err := st.History(context.Background(), "t-1", store.Ascending, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(cps) != 4 {
		t.Fatalf("got %d checkpoints, want 4", len(cps))
	}
	for i, cp := range cps {
		if cp.Seq != i+1 {
			t.Errorf("checkpoint %d seq = %d, want %d", i, cp.Seq, i+1)
		}
	}
}

func TestInvoke_PersistenceFailure(t *testing.T) {
	g := linearGraph(t)
	putErr := fmt.Errorf("disk full")

	t.Run("fatal by default", func(t *testing.T) {
		st := &failingStore{MemStore: store.NewMemStore[buildState](), putErr: putErr}
		_, err := g.Invoke(context.Background(), RunContext[buildState]{ThreadID: "t-1", Store: st}, buildState{})

		var persistErr *PersistenceError
		if !errors.As(err, &persistErr) {
			t.Fatalf("error = %v, want *PersistenceError", err)
		}
		if !errors.Is(err, putErr) {
			t.Errorf("error does not wrap the store failure")
		}
	})

	t.Run("tolerated when configured", func(t *testing.T) {
		st := &failingStore{MemStore: store.NewMemStore[buildState](), putErr: putErr}
		emitter := &captureEmitter{}
		final, err := g.Invoke(context.Background(), RunContext[buildState]{
			ThreadID:               "t-1",
			Store:                  st,
			Emitter:                emitter,
			TolerateCheckpointLoss: true,
		}, buildState{})
		if err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
		if len(final.Log) != 2 {
			t.Errorf("Log = %v, want two node entries", final.Log)
		}
		if got := emitter.byMsg("checkpoint_lost"); len(got) != 2 {
			t.Errorf("got %d checkpoint_lost events, want 2", len(got))
		}
	})
}

type panickyEmitter struct{}

func (panickyEmitter) Emit(emit.Event) { panic("observer bug") }

func TestInvoke_ToleratesPanickingEmitter(t *testing.T) {
	g := linearGraph(t)

	final, err := g.Invoke(context.Background(), RunContext[buildState]{
		ThreadID: "t-1",
		Emitter:  panickyEmitter{},
	}, buildState{})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if len(final.Log) != 2 {
		t.Errorf("Log = %v, want two node entries", final.Log)
	}
}

func TestInvoke_ConcurrentRunsAreIsolated(t *testing.T) {
	g := linearGraph(t)
	st := store.NewMemStore[buildState]()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			threadID := fmt.Sprintf("t-%d", n)
			final, err := g.Invoke(context.Background(), RunContext[buildState]{ThreadID: threadID, Store: st}, buildState{Log: []string{threadID}})
			if err != nil {
				t.Errorf("Invoke %s failed: %v", threadID, err)
				return
			}
			if final.Log[0] != threadID {
				t.Errorf("thread %s saw foreign state: %v", threadID, final.Log)
			}
		}(i)
	}
	wg.Wait()
}
