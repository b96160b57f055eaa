package graph

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/agentgraph/agentgraph/graph/emit"
	"github.com/agentgraph/agentgraph/graph/store"
)

// DefaultMaxHops bounds node executions per run when RunContext.MaxHops
// is unset. The bound keeps a model that endlessly requests tool calls
// from burning unbounded latency and cost.
const DefaultMaxHops = 25

// Compiled is a validated, execution-ready workflow graph.
//
// Compiled graphs are immutable and safe for concurrent reuse: build
// and compile once per workflow type, then Invoke from many goroutines
// with independent RunContexts.
//
// Type parameter S is the state type shared across the workflow.
type Compiled[S any] struct {
	reducer Reducer[S]
	nodes   map[string]NodeFunc[S]
	edges   map[string]string
	conds   map[string]conditionalEdge[S]
	entry   string
}

// newCompiled snapshots a validated builder.
func newCompiled[S any](b *Builder[S]) *Compiled[S] {
	nodes := make(map[string]NodeFunc[S], len(b.nodes))
	for k, v := range b.nodes {
		nodes[k] = v
	}
	edges := make(map[string]string, len(b.edges))
	for k, v := range b.edges {
		edges[k] = v
	}
	conds := make(map[string]conditionalEdge[S], len(b.conds))
	for k, v := range b.conds {
		conds[k] = v
	}
	return &Compiled[S]{
		reducer: b.reducer,
		nodes:   nodes,
		edges:   edges,
		conds:   conds,
		entry:   b.entry,
	}
}

// Entry returns the first node executed after START.
func (g *Compiled[S]) Entry() string {
	return g.entry
}

// Invoke runs the graph from its entry node until END.
//
// Per hop it:
//  1. Executes the current node with (ctx, state, rc).
//  2. Merges the returned delta into state via the reducer.
//  3. Persists a checkpoint (thread, seq, state, meta) if rc.Store is set.
//  4. Emits a node_end event.
//  5. Routes via the node's edge; an unmapped router outcome is a
//     *RoutingError.
//
// The hop bound (rc.MaxHops, default DefaultMaxHops) terminates runaway
// tool-calling loops with an *ExhaustedError. An expired caller
// deadline aborts the in-flight node and surfaces as a *TimeoutError;
// no checkpoint is written for the aborted node. A node error
// propagates to the caller unchanged.
//
// Checkpoint sequence numbers continue from the thread's latest
// checkpoint, so resumed conversations extend their history instead of
// colliding with it.
func (g *Compiled[S]) Invoke(ctx context.Context, rc RunContext[S], initial S) (S, error) {
	var zero S

	maxHops := rc.MaxHops
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}

	seq, err := g.baseSeq(ctx, rc)
	if err != nil {
		return zero, err
	}

	if rc.Metrics != nil {
		rc.Metrics.RunStarted()
	}
	safeEmit(rc.Emitter, emit.Event{ThreadID: rc.ThreadID, Msg: "run_start", Meta: map[string]interface{}{
		"entry": g.entry,
	}})

	state := initial
	current := g.entry

	for hop := 1; ; hop++ {
		if hop > maxHops {
			return g.finish(rc, zero, &ExhaustedError{Hops: maxHops})
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return g.finish(rc, zero, &TimeoutError{Node: current, Cause: ctxErr})
		}

		fn, ok := g.nodes[current]
		if !ok {
			// Compile validation makes this unreachable; guard anyway.
			return g.finish(rc, zero, &RoutingError{Node: current, Outcome: ""})
		}

		started := time.Now()
		delta, nodeErr := fn(ctx, state, rc)
		elapsed := time.Since(started)

		if nodeErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return g.finish(rc, zero, &TimeoutError{Node: current, Cause: ctxErr})
			}
			if rc.Metrics != nil {
				rc.Metrics.ObserveNode(current, elapsed, "error")
			}
			safeEmit(rc.Emitter, emit.Event{ThreadID: rc.ThreadID, Seq: seq, Node: current, Msg: "node_error", Meta: map[string]interface{}{
				"error": nodeErr.Error(),
			}})
			return g.finish(rc, zero, nodeErr)
		}

		state = g.reducer(state, delta)

		// A deadline that fired during the node aborts the run before
		// the node's checkpoint is written.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return g.finish(rc, zero, &TimeoutError{Node: current, Cause: ctxErr})
		}

		seq++
		if rc.Store != nil {
			if err := rc.Store.Put(ctx, rc.ThreadID, seq, state, g.checkpointMeta(rc, current)); err != nil {
				if !rc.TolerateCheckpointLoss {
					return g.finish(rc, zero, &PersistenceError{Op: "put", Cause: err})
				}
				safeEmit(rc.Emitter, emit.Event{ThreadID: rc.ThreadID, Seq: seq, Node: current, Msg: "checkpoint_lost", Meta: map[string]interface{}{
					"error": err.Error(),
				}})
			}
		}

		if rc.Metrics != nil {
			rc.Metrics.ObserveNode(current, elapsed, "success")
		}
		safeEmit(rc.Emitter, emit.Event{ThreadID: rc.ThreadID, Seq: seq, Node: current, Msg: "node_end", Meta: map[string]interface{}{
			"duration_ms": elapsed.Milliseconds(),
		}})

		next, routeErr := g.route(current, state, rc)
		if routeErr != nil {
			return g.finish(rc, zero, routeErr)
		}
		if next == END {
			if rc.Metrics != nil {
				rc.Metrics.RunCompleted(hop)
			}
			safeEmit(rc.Emitter, emit.Event{ThreadID: rc.ThreadID, Seq: seq, Msg: "run_end", Meta: map[string]interface{}{
				"hops": hop,
			}})
			return state, nil
		}
		current = next
	}
}

// baseSeq resolves the sequence position to continue from for this
// thread: the latest checkpoint's position, or zero for a new thread.
func (g *Compiled[S]) baseSeq(ctx context.Context, rc RunContext[S]) (int, error) {
	if rc.Store == nil {
		return 0, nil
	}
	cp, err := rc.Store.Latest(ctx, rc.ThreadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, &PersistenceError{Op: "latest", Cause: err}
	}
	return cp.Seq, nil
}

// route resolves the successor of a node against the post-update state.
func (g *Compiled[S]) route(current string, state S, rc RunContext[S]) (string, error) {
	if to, ok := g.edges[current]; ok {
		return to, nil
	}

	ce := g.conds[current]
	outcome := ce.router(state)
	to, ok := ce.outcomes[outcome]
	if !ok {
		return "", &RoutingError{Node: current, Outcome: outcome}
	}
	safeEmit(rc.Emitter, emit.Event{ThreadID: rc.ThreadID, Node: current, Msg: "route", Meta: map[string]interface{}{
		"outcome": outcome,
		"next":    to,
	}})
	return to, nil
}

// checkpointMeta builds the metadata attached to a node's checkpoint.
func (g *Compiled[S]) checkpointMeta(rc RunContext[S], node string) store.Metadata {
	meta := store.Metadata{"node": node}
	if rc.UserID != "" {
		meta["user_id"] = rc.UserID
	}
	for k, v := range rc.Meta {
		meta[k] = v
	}
	return meta
}

// finish records a failed run in metrics and emits a terminal event
// before the error is returned. Successful runs bypass it.
func (g *Compiled[S]) finish(rc RunContext[S], zero S, err error) (S, error) {
	if rc.Metrics != nil {
		rc.Metrics.RunFailed(errorKind(err))
	}
	safeEmit(rc.Emitter, emit.Event{ThreadID: rc.ThreadID, Msg: "run_error", Meta: map[string]interface{}{
		"error": err.Error(),
		"kind":  errorKind(err),
	}})
	return zero, err
}

// errorKind maps a run failure to a stable label for metrics.
func errorKind(err error) string {
	var (
		configErr      *ConfigError
		routingErr     *RoutingError
		exhaustedErr   *ExhaustedError
		timeoutErr     *TimeoutError
		persistenceErr *PersistenceError
	)
	switch {
	case errors.As(err, &configErr):
		return "config"
	case errors.As(err, &routingErr):
		return "routing"
	case errors.As(err, &exhaustedErr):
		return "exhausted"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &persistenceErr):
		return "persistence"
	default:
		return "node"
	}
}

// safeEmit delivers an event, swallowing a panicking emitter so
// observability failures never abort a run.
func safeEmit(emitter emit.Emitter, event emit.Event) {
	if emitter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("emitter panic (ignored): %v", r)
		}
	}()
	emitter.Emit(event)
}
