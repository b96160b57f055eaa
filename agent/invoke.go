package agent

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/agentgraph/agentgraph/graph"
	"github.com/agentgraph/agentgraph/graph/emit"
	"github.com/agentgraph/agentgraph/graph/model"
	"github.com/agentgraph/agentgraph/graph/store"
)

// StoreOpener acquires a checkpoint store handle scoped to one run or
// one history query. The returned release func is called on every exit
// path, including errors, so connection lifecycles stay deterministic.
type StoreOpener func(ctx context.Context) (store.Store[State], func() error, error)

// MemStoreOpener returns an opener over a single shared in-memory
// store. Checkpoints survive across runs within the process.
func MemStoreOpener() StoreOpener {
	st := store.NewMemStore[State]()
	return func(ctx context.Context) (store.Store[State], func() error, error) {
		return st, func() error { return nil }, nil
	}
}

// SQLiteStoreOpener returns an opener that opens the database file per
// acquisition and closes it on release.
func SQLiteStoreOpener(path string) StoreOpener {
	return func(ctx context.Context) (store.Store[State], func() error, error) {
		st, err := store.NewSQLiteStore[State](path)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	}
}

// MySQLStoreOpener returns an opener that connects per acquisition and
// closes the pool on release.
func MySQLStoreOpener(dsn string) StoreOpener {
	return func(ctx context.Context) (store.Store[State], func() error, error) {
		st, err := store.NewMySQLStore[State](dsn)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	}
}

// Result is the outcome of an asynchronous run.
type Result struct {
	// ThreadID is the conversation thread the run executed under,
	// including a generated one when the caller passed none.
	ThreadID string

	// State is the final conversation state. Zero when Err is set.
	State State

	// Err is the run failure, if any.
	Err error
}

// Invoker is the invocation façade: it owns the compiled workflow and
// wires a message, a thread identity, and observability hooks into one
// engine run.
//
// Build an Invoker once and share it; it is safe for concurrent use.
type Invoker struct {
	cfg   Config
	graph *graph.Compiled[State]
}

// NewInvoker validates the configuration and compiles the workflow.
func NewInvoker(cfg Config) (*Invoker, error) {
	if cfg.Model == nil {
		return nil, &graph.ConfigError{Message: "agent: model is required"}
	}
	cfg.applyDefaults()

	g, err := NewGraph(cfg.Model)
	if err != nil {
		return nil, err
	}
	return &Invoker{cfg: cfg, graph: g}, nil
}

// Run executes one conversational turn synchronously.
//
// A new UUID thread id is generated when threadID is empty. For an
// existing thread the latest checkpoint is loaded and the new user
// message is appended to the restored conversation, so a crashed or
// completed run resumes rather than starting over.
func (inv *Invoker) Run(ctx context.Context, message, userID, threadID string) (State, error) {
	result := inv.run(ctx, message, userID, threadID)
	return result.State, result.Err
}

// RunAsync executes one conversational turn on its own goroutine and
// delivers the outcome on the returned channel. Semantics are identical
// to Run; the channel is buffered so the result is never lost to a slow
// reader.
func (inv *Invoker) RunAsync(ctx context.Context, message, userID, threadID string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		out <- inv.run(ctx, message, userID, threadID)
	}()
	return out
}

func (inv *Invoker) run(ctx context.Context, message, userID, threadID string) Result {
	if threadID == "" {
		threadID = uuid.NewString()
	}
	result := Result{ThreadID: threadID}

	var (
		st      store.Store[State]
		release func() error
	)
	if inv.cfg.Store != nil {
		var err error
		st, release, err = inv.cfg.Store(ctx)
		if err != nil {
			result.Err = &graph.PersistenceError{Op: "open", Cause: err}
			return result
		}
		defer func() { _ = release() }()
	}

	initial := State{
		Messages: []model.Message{{Role: model.RoleUser, Content: message}},
		UserID:   userID,
	}
	if st != nil {
		cp, err := st.Latest(ctx, threadID)
		switch {
		case err == nil:
			restored := cp.State
			restored.Messages = append(restored.Messages, model.Message{Role: model.RoleUser, Content: message})
			if restored.UserID == "" {
				restored.UserID = userID
			}
			initial = restored
		case errors.Is(err, store.ErrNotFound):
			// New thread.
		default:
			result.Err = &graph.PersistenceError{Op: "latest", Cause: err}
			return result
		}
	}

	rc := graph.RunContext[State]{
		ThreadID:               threadID,
		UserID:                 userID,
		Tools:                  inv.cfg.Registry.Resolve(inv.cfg.Deps),
		Store:                  st,
		Emitter:                inv.emitter(),
		Metrics:                inv.cfg.Metrics,
		MaxHops:                inv.cfg.MaxHops,
		TolerateCheckpointLoss: inv.cfg.TolerateCheckpointLoss,
	}

	result.State, result.Err = inv.graph.Invoke(ctx, rc, initial)
	return result
}

// History returns a thread's checkpoints oldest-first. A limit of zero
// or less returns the full history. Unknown threads yield an empty
// slice.
func (inv *Invoker) History(ctx context.Context, threadID string, limit int) ([]store.Checkpoint[State], error) {
	st, release, err := inv.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = release() }()

	cps, err := st.History(ctx, threadID, store.Ascending, limit)
	if err != nil {
		return nil, &graph.PersistenceError{Op: "history", Cause: err}
	}
	return cps, nil
}

// Latest returns a thread's most recent checkpoint, or
// store.ErrNotFound when the thread has none.
func (inv *Invoker) Latest(ctx context.Context, threadID string) (store.Checkpoint[State], error) {
	var zero store.Checkpoint[State]

	st, release, err := inv.openStore(ctx)
	if err != nil {
		return zero, err
	}
	defer func() { _ = release() }()

	cp, err := st.Latest(ctx, threadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, err
		}
		return zero, &graph.PersistenceError{Op: "latest", Cause: err}
	}
	return cp, nil
}

func (inv *Invoker) openStore(ctx context.Context) (store.Store[State], func() error, error) {
	if inv.cfg.Store == nil {
		return nil, nil, &graph.ConfigError{Message: "agent: no checkpoint store configured"}
	}
	st, release, err := inv.cfg.Store(ctx)
	if err != nil {
		return nil, nil, &graph.PersistenceError{Op: "open", Cause: err}
	}
	return st, release, nil
}

func (inv *Invoker) emitter() emit.Emitter {
	switch len(inv.cfg.Emitters) {
	case 0:
		return nil
	case 1:
		return inv.cfg.Emitters[0]
	default:
		return emit.Multi(inv.cfg.Emitters)
	}
}
