package graph

import (
	"github.com/agentgraph/agentgraph/graph/emit"
	"github.com/agentgraph/agentgraph/graph/model"
	"github.com/agentgraph/agentgraph/graph/store"
	"github.com/agentgraph/agentgraph/graph/tool"
)

// RunContext carries per-run dependencies into node functions.
//
// Everything a node needs beyond state arrives here explicitly: the
// thread identity, the capability set resolved once at run start, the
// checkpoint store, and observability hooks. There is no global
// registry; two concurrent runs see only their own RunContext.
//
// Type parameter S is the state type shared across the workflow.
type RunContext[S any] struct {
	// ThreadID identifies the conversation; checkpoints are keyed by it.
	ThreadID string

	// UserID identifies the requesting principal. Set once at run start.
	UserID string

	// Tools is the capability set resolved for this run. Fixed for the
	// duration of the run; nodes must not assume availability changes
	// mid-conversation.
	Tools []tool.Tool

	// Store persists a checkpoint after every node completion.
	// Nil disables checkpointing.
	Store store.Store[S]

	// Emitter receives an event per executed node. Nil disables
	// emission. Panicking emitters are recovered and ignored.
	Emitter emit.Emitter

	// Metrics records run, node, and tool counters. Nil disables
	// metric collection.
	Metrics *Metrics

	// Meta is attached to every checkpoint written during the run.
	Meta map[string]string

	// MaxHops bounds node executions per run. Zero or negative uses
	// DefaultMaxHops.
	MaxHops int

	// TolerateCheckpointLoss downgrades checkpoint write failures from
	// fatal run errors to emitted warnings. Off by default.
	TolerateCheckpointLoss bool
}

// ToolSpecs returns the machine-readable specs of the run's capability
// set, in resolution order, for binding to a model call.
func (rc RunContext[S]) ToolSpecs() []model.ToolSpec {
	if len(rc.Tools) == 0 {
		return nil
	}
	specs := make([]model.ToolSpec, 0, len(rc.Tools))
	for _, t := range rc.Tools {
		specs = append(specs, t.Spec())
	}
	return specs
}

// FindTool returns the run's capability with the given name, or nil.
func (rc RunContext[S]) FindTool(name string) tool.Tool {
	for _, t := range rc.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}
