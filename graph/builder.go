package graph

import "context"

const (
	// START is the pseudo-node marking the workflow entry point.
	// An edge from START designates the first real node to execute.
	START = "__start__"

	// END is the pseudo-node marking workflow termination. Any edge or
	// conditional outcome may target END.
	END = "__end__"
)

// Reducer merges a node's partial state update into the current state.
//
// Reducers own the per-field merge policy: append-only fields (message
// history) are concatenated, scalar fields are replaced when set.
// Reducers must be deterministic and side-effect free.
//
// Type parameter S is the state type shared across the workflow.
type Reducer[S any] func(prev, delta S) S

// NodeFunc is a state-transition function registered in a graph.
//
// It receives the current state and the run context and returns a
// partial state update to be merged via the reducer. A returned error
// propagates to the caller unchanged as a run failure; the engine does
// not retry nodes.
type NodeFunc[S any] func(ctx context.Context, state S, rc RunContext[S]) (S, error)

// Router evaluates post-update state and returns an outcome key.
// The key selects a successor from the outcome map of a conditional
// edge. Routers should be pure functions of state.
type Router[S any] func(state S) string

// conditionalEdge pairs a router with its outcome-to-node map.
type conditionalEdge[S any] struct {
	router   Router[S]
	outcomes map[string]string
}

// Builder accumulates a graph definition: named nodes, unconditional
// edges, and conditional edges. Call Compile to validate the topology
// and obtain an immutable Compiled graph.
//
// Builders are not safe for concurrent use; Compiled graphs are.
//
// Example:
//
//	b := graph.NewBuilder[State](reduce)
//	b.AddNode("planner", planNode)
//	b.AddNode("executor", execNode)
//	b.AddEdge(graph.START, "planner")
//	b.AddEdge("planner", "executor")
//	b.AddConditionalEdge("executor", route, map[string]string{
//	    "continue": "planner",
//	    "done":     graph.END,
//	})
//	g, err := b.Compile()
type Builder[S any] struct {
	reducer Reducer[S]
	nodes   map[string]NodeFunc[S]
	edges   map[string]string
	conds   map[string]conditionalEdge[S]
	entry   string
	err     error
}

// NewBuilder creates a graph builder with the given reducer.
func NewBuilder[S any](reducer Reducer[S]) *Builder[S] {
	return &Builder[S]{
		reducer: reducer,
		nodes:   make(map[string]NodeFunc[S]),
		edges:   make(map[string]string),
		conds:   make(map[string]conditionalEdge[S]),
	}
}

// AddNode registers a named state-transition function.
//
// Returns a ConfigError if the name is empty or reserved, the function
// is nil, or the name is already taken.
func (b *Builder[S]) AddNode(name string, fn NodeFunc[S]) error {
	if name == "" {
		return b.fail("node name cannot be empty")
	}
	if name == START || name == END {
		return b.fail("node name " + name + " is reserved")
	}
	if fn == nil {
		return b.fail("node " + name + ": function cannot be nil")
	}
	if _, exists := b.nodes[name]; exists {
		return b.fail("duplicate node name: " + name)
	}
	b.nodes[name] = fn
	return nil
}

// AddEdge declares an unconditional transition from one node to
// another. An edge from START sets the workflow entry point; an edge to
// END terminates the run.
//
// Returns a ConfigError if either endpoint is empty or the source
// already has an outgoing edge (each node gets exactly one edge kind).
func (b *Builder[S]) AddEdge(from, to string) error {
	if from == "" || to == "" {
		return b.fail("edge endpoints cannot be empty")
	}
	if from == END {
		return b.fail("cannot add edge from " + END)
	}
	if to == START {
		return b.fail("cannot add edge to " + START)
	}

	if from == START {
		if b.entry != "" {
			return b.fail("entry point already set to " + b.entry)
		}
		b.entry = to
		return nil
	}

	if b.hasOutgoing(from) {
		return b.fail("node " + from + " already has an outgoing edge")
	}
	b.edges[from] = to
	return nil
}

// AddConditionalEdge declares a routed transition: at run time the
// router evaluates the post-update state and its outcome key selects
// the successor from the outcome map. Outcomes may map to END.
//
// Returns a ConfigError if the router or map is missing, or the source
// already has an outgoing edge.
func (b *Builder[S]) AddConditionalEdge(from string, router Router[S], outcomes map[string]string) error {
	if from == "" {
		return b.fail("conditional edge source cannot be empty")
	}
	if from == START || from == END {
		return b.fail("cannot add conditional edge from " + from)
	}
	if router == nil {
		return b.fail("node " + from + ": router cannot be nil")
	}
	if len(outcomes) == 0 {
		return b.fail("node " + from + ": outcome map cannot be empty")
	}

	if b.hasOutgoing(from) {
		return b.fail("node " + from + " already has an outgoing edge")
	}

	copied := make(map[string]string, len(outcomes))
	for k, v := range outcomes {
		copied[k] = v
	}
	b.conds[from] = conditionalEdge[S]{router: router, outcomes: copied}
	return nil
}

// Compile validates the accumulated definition and returns an immutable
// executable graph.
//
// Validation rules:
//   - the reducer and entry point must be set
//   - every edge endpoint must be a declared node (or START/END)
//   - every conditional outcome must map to a declared node or END
//   - every declared node must have exactly one outgoing edge kind
//   - every declared node must be reachable from START
//
// Any violation returns a ConfigError. Deferred errors from earlier
// Add calls also surface here, so call sites may ignore Add results and
// check only Compile.
func (b *Builder[S]) Compile() (*Compiled[S], error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.reducer == nil {
		return nil, &ConfigError{Message: "reducer is required"}
	}
	if b.entry == "" {
		return nil, &ConfigError{Message: "entry point not set (add an edge from START)"}
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, &ConfigError{Message: "entry point references undeclared node: " + b.entry}
	}

	for from, to := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			return nil, &ConfigError{Message: "edge from undeclared node: " + from}
		}
		if to != END {
			if _, ok := b.nodes[to]; !ok {
				return nil, &ConfigError{Message: "edge from " + from + " to undeclared node: " + to}
			}
		}
	}
	for from, ce := range b.conds {
		if _, ok := b.nodes[from]; !ok {
			return nil, &ConfigError{Message: "conditional edge from undeclared node: " + from}
		}
		for outcome, to := range ce.outcomes {
			if to == END {
				continue
			}
			if _, ok := b.nodes[to]; !ok {
				return nil, &ConfigError{Message: "node " + from + ": outcome " + outcome + " maps to undeclared node: " + to}
			}
		}
	}

	for name := range b.nodes {
		if !b.hasOutgoing(name) {
			return nil, &ConfigError{Message: "node " + name + " has no outgoing edge"}
		}
	}

	if unreached := b.unreachable(); unreached != "" {
		return nil, &ConfigError{Message: "node " + unreached + " is not reachable from " + START}
	}

	return newCompiled(b), nil
}

// hasOutgoing reports whether a node already has an edge of either kind.
func (b *Builder[S]) hasOutgoing(name string) bool {
	if _, ok := b.edges[name]; ok {
		return true
	}
	_, ok := b.conds[name]
	return ok
}

// unreachable returns the name of a node not reachable from the entry
// point, or "" if all nodes are reachable.
func (b *Builder[S]) unreachable() string {
	seen := map[string]bool{b.entry: true}
	frontier := []string{b.entry}
	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]

		var successors []string
		if to, ok := b.edges[node]; ok {
			successors = append(successors, to)
		}
		if ce, ok := b.conds[node]; ok {
			for _, to := range ce.outcomes {
				successors = append(successors, to)
			}
		}
		for _, to := range successors {
			if to == END || seen[to] {
				continue
			}
			seen[to] = true
			frontier = append(frontier, to)
		}
	}

	for name := range b.nodes {
		if !seen[name] {
			return name
		}
	}
	return ""
}

// fail records the first builder error and returns it. Compile reports
// the recorded error so fluent construction stays usable.
func (b *Builder[S]) fail(msg string) error {
	err := &ConfigError{Message: msg}
	if b.err == nil {
		b.err = err
	}
	return err
}
