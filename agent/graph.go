package agent

import (
	"github.com/agentgraph/agentgraph/graph"
	"github.com/agentgraph/agentgraph/graph/model"
)

// Node names of the agent workflow.
const (
	nodePlanner      = "planner"
	nodeExecutor     = "executor"
	nodeToolExecutor = "tool_executor"
)

// Routing outcome keys.
const (
	outcomeExecutor = "executor"
	outcomeTools    = "tool_executor"
	outcomeEnd      = "end"
)

// NewGraph compiles the agent workflow:
//
//	START -> planner -> (conditional) -> executor | END
//	executor -> (conditional) -> tool_executor | END
//	tool_executor -> executor
//
// The tool executor is always part of the graph; availability of
// capabilities is a run-time concern. A run resolved with zero tools
// binds no specs to the executor's model call, so its response can
// never carry tool calls and the node is simply never visited.
func NewGraph(chatModel model.ChatModel) (*graph.Compiled[State], error) {
	b := graph.NewBuilder[State](Reduce)

	if err := b.AddNode(nodePlanner, plannerNode(chatModel)); err != nil {
		return nil, err
	}
	if err := b.AddNode(nodeExecutor, executorNode(chatModel)); err != nil {
		return nil, err
	}
	if err := b.AddNode(nodeToolExecutor, toolExecutorNode()); err != nil {
		return nil, err
	}

	if err := b.AddEdge(graph.START, nodePlanner); err != nil {
		return nil, err
	}
	if err := b.AddConditionalEdge(nodePlanner, routeAfterPlanner, map[string]string{
		outcomeExecutor: nodeExecutor,
		outcomeEnd:      graph.END,
	}); err != nil {
		return nil, err
	}
	if err := b.AddConditionalEdge(nodeExecutor, routeAfterExecutor, map[string]string{
		outcomeTools: nodeToolExecutor,
		outcomeEnd:   graph.END,
	}); err != nil {
		return nil, err
	}
	if err := b.AddEdge(nodeToolExecutor, nodeExecutor); err != nil {
		return nil, err
	}

	return b.Compile()
}

// routeAfterPlanner always proceeds to execution. A later refinement
// could end simple conversations here without an executor round trip.
func routeAfterPlanner(State) string {
	return outcomeExecutor
}

// routeAfterExecutor sends the run to the tool executor when the last
// assistant message requested tool calls, otherwise ends it.
func routeAfterExecutor(s State) string {
	if len(s.LastMessage().ToolCalls) > 0 {
		return outcomeTools
	}
	return outcomeEnd
}
