// Package graph provides a compiled-workflow execution engine for
// multi-step conversational agents.
package graph

import "fmt"

// ConfigError indicates an invalid graph definition. It is raised at
// build or compile time, never at run time, and is never retried.
type ConfigError struct {
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "graph config: " + e.Message
}

// RoutingError indicates a router produced an outcome with no mapped
// successor. This is fatal at run time and points at a configuration
// bug rather than bad input.
type RoutingError struct {
	// Node is the node whose conditional edge failed to route.
	Node string

	// Outcome is the unmapped outcome key the router returned.
	Outcome string
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing: node %s produced unmapped outcome %q", e.Node, e.Outcome)
}

// ExhaustedError indicates the run hit its hop bound before reaching a
// terminal node. This bounds latency and cost when a model keeps
// requesting tool calls without converging.
type ExhaustedError struct {
	// Hops is the bound that was exceeded.
	Hops int
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("plan exhausted after %d hops", e.Hops)
}

// TimeoutError indicates the caller's context deadline expired mid-run.
// It is surfaced distinctly so callers can tell "too slow" apart from
// "failed".
type TimeoutError struct {
	// Node is the node that was in flight when the deadline hit.
	Node string

	// Cause is the underlying context error.
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	msg := "run deadline exceeded"
	if e.Node != "" {
		msg += " at node " + e.Node
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying context error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// PersistenceError indicates a checkpoint write or read failed. Fatal
// for the run unless the caller explicitly tolerates checkpoint loss.
type PersistenceError struct {
	// Op names the failed store operation ("put", "latest", "history").
	Op string

	// Cause is the underlying store error.
	Cause error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	msg := "persistence: " + e.Op + " failed"
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying store error.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
