// Package tool provides executable capabilities that agents can invoke,
// and a registry that resolves a deterministic capability set from the
// resources a deployment actually has.
package tool

import (
	"context"

	"github.com/agentgraph/agentgraph/graph/model"
)

// Tool defines the interface for executable capabilities an LLM can invoke.
//
// Tools let the model interact with external systems:
//   - Database lookups
//   - API calls
//   - Calculations
//
// Implementations should:
//   - Validate input parameters
//   - Respect context cancellation and timeouts
//   - Return structured output as map[string]interface{}
//   - Return errors rather than panic; the tool executor converts a
//     failure into a structured error result visible to the model
//
// Example implementation:
//
//	type WeatherTool struct{}
//
//	func (w *WeatherTool) Name() string { return "get_weather" }
//
//	func (w *WeatherTool) Spec() model.ToolSpec {
//	    return model.ToolSpec{
//	        Name:        "get_weather",
//	        Description: "Get current weather for a location",
//	        Schema: map[string]interface{}{
//	            "type": "object",
//	            "properties": map[string]interface{}{
//	                "location": map[string]interface{}{"type": "string"},
//	            },
//	            "required": []string{"location"},
//	        },
//	    }
//	}
//
//	func (w *WeatherTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
//	    location, ok := input["location"].(string)
//	    if !ok {
//	        return nil, errors.New("location parameter required")
//	    }
//	    return map[string]interface{}{"temperature": 72.5, "location": location}, nil
//	}
type Tool interface {
	// Name returns the unique identifier for this tool.
	//
	// The name must match Spec().Name; it is the key the model uses in
	// tool-call requests. Names should be lowercase with underscores.
	Name() string

	// Spec returns the machine-readable description bound to model
	// calls: name, natural-language description, and JSON-schema-shaped
	// argument schema.
	Spec() model.ToolSpec

	// Call executes the tool with the provided input.
	//
	// Input is the decoded JSON arguments from the model's tool-call
	// request (may be nil for parameterless tools). Implementations
	// should check ctx.Err() before expensive operations and return
	// descriptive errors for invalid inputs.
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}
