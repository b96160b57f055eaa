// Package agent assembles the planner/executor workflow for
// multi-step conversational runs and provides the invocation façade
// around it.
package agent

import "github.com/agentgraph/agentgraph/graph/model"

// State is the conversation state flowing through the agent graph.
//
// Merge policy (implemented by Reduce):
//   - Messages: append-only; a node's messages are added to, never
//     replace, the existing sequence
//   - Plan: replaced by whichever node last sets it
//   - UserID: set once at run start, immutable afterwards
//
// State is JSON-serializable for checkpointing. One in-flight run owns
// its State exclusively; concurrent runs for different threads never
// share an instance.
type State struct {
	Messages []model.Message `json:"messages"`
	Plan     string          `json:"plan,omitempty"`
	UserID   string          `json:"user_id,omitempty"`
}

// Reduce merges a node's partial update into the current state.
func Reduce(prev, delta State) State {
	prev.Messages = append(prev.Messages, delta.Messages...)
	if delta.Plan != "" {
		prev.Plan = delta.Plan
	}
	if prev.UserID == "" {
		prev.UserID = delta.UserID
	}
	return prev
}

// LastMessage returns the most recent message, or a zero Message for
// empty histories.
func (s State) LastMessage() model.Message {
	if len(s.Messages) == 0 {
		return model.Message{}
	}
	return s.Messages[len(s.Messages)-1]
}
