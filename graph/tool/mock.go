package tool

import (
	"context"
	"sync"

	"github.com/agentgraph/agentgraph/graph/model"
)

// MockTool is a test implementation of Tool.
//
// Use MockTool in tests to verify agent behavior without executing
// actual tool logic. It provides:
//   - Configurable name and schema
//   - Configurable response sequences
//   - Call history tracking
//   - Error injection
//   - Thread-safe operation
//
// Example usage:
//
//	mock := &MockTool{
//	    ToolName: "search_web",
//	    Responses: []map[string]interface{}{
//	        {"results": []string{"result1", "result2"}},
//	    },
//	}
//	output, err := mock.Call(ctx, map[string]interface{}{"query": "test"})
//	// Returns {"results": ["result1", "result2"]}
type MockTool struct {
	// ToolName is the identifier returned by Name() and Spec().
	ToolName string

	// Description is included in Spec().
	Description string

	// Schema is the argument schema included in Spec(). May be nil.
	Schema map[string]interface{}

	// Responses contains the sequence of outputs to return. Each call
	// returns the next response in order; once consumed, the last
	// response repeats.
	Responses []map[string]interface{}

	// Err, if set, is returned by Call() instead of a response.
	Err error

	// Calls tracks the history of all Call() invocations.
	Calls []MockToolCall

	mu        sync.Mutex
	callIndex int
}

// MockToolCall records a single invocation of Call().
type MockToolCall struct {
	Input map[string]interface{}
}

// Name implements the Tool interface.
func (m *MockTool) Name() string {
	return m.ToolName
}

// Spec implements the Tool interface.
func (m *MockTool) Spec() model.ToolSpec {
	return model.ToolSpec{
		Name:        m.ToolName,
		Description: m.Description,
		Schema:      m.Schema,
	}
}

// Call implements the Tool interface.
//
// The invocation is recorded even when an error is injected, so tests
// can assert that a failing tool was still attempted.
func (m *MockTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockToolCall{Input: input})

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return map[string]interface{}{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.callIndex++
	return m.Responses[idx], nil
}

// CallCount returns the number of recorded invocations.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears recorded calls and restarts the response sequence.
func (m *MockTool) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}
