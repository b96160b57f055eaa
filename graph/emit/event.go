// Package emit provides observability events and pluggable emitters for
// workflow execution.
package emit

// Event represents an observability event emitted during a workflow run.
//
// Events provide insight into run behavior:
//   - Node execution start/complete
//   - Model and tool invocations
//   - Checkpoint writes
//   - Errors and terminal conditions
//
// Events are delivered to an Emitter which can log them, convert them to
// OpenTelemetry spans, or fan them out to multiple backends.
type Event struct {
	// ThreadID identifies the conversation thread this event belongs to.
	ThreadID string `json:"thread_id"`

	// Seq is the checkpoint sequence position at emission time (1-indexed).
	// Zero for run-level events (run start, run complete, run error).
	Seq int `json:"seq"`

	// Node identifies which graph node emitted this event.
	// Empty for run-level events.
	Node string `json:"node"`

	// Msg is a short machine-friendly description, e.g. "node_end",
	// "model_call", "tool_call", "checkpoint_saved".
	Msg string `json:"msg"`

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "duration_ms": execution duration in milliseconds
	//   - "error": error details
	//   - "tool": tool name for tool invocation events
	//   - "outcome": routing outcome after a conditional edge
	Meta map[string]interface{} `json:"meta,omitempty"`
}
