// Package model defines the language-model boundary: conversation messages,
// tool specifications, and the tagged response union returned by providers.
package model

import "context"

// ChatModel is the interface implemented by LLM chat providers.
//
// Implementations should:
//   - Handle provider-specific authentication
//   - Convert the standard Message format to the provider wire format and back
//   - Respect context cancellation and deadlines
//   - Keep any internal retry within the caller's deadline
//
// Example usage:
//
//	m := openai.NewChatModel(apiKey, "gpt-4o-mini")
//	resp, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleUser, Content: "What is the capital of France?"},
//	}, nil)
type ChatModel interface {
	// Chat sends the conversation to the model and returns its response.
	//
	// The response is either a PlainResponse (text only) or a
	// ToolCallingResponse carrying one or more tool call requests.
	// Callers route on the concrete type; there is no attribute probing.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (Response, error)
}

// Message represents a single message in an LLM conversation.
//
// Messages follow the common chat format shared by the major providers.
// An assistant message may carry tool call requests; a tool message carries
// the matching results.
type Message struct {
	// Role identifies the message sender. Use the Role* constants.
	Role string `json:"role"`

	// Content contains the message text.
	// May be empty for messages that only carry tool calls or results.
	Content string `json:"content"`

	// ToolCalls holds capability invocations requested by the assistant.
	// Only set on assistant messages.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolResults holds the outcomes matching earlier ToolCalls.
	// Only set on tool messages.
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// Standard role constants for LLM conversations.
const (
	// RoleSystem indicates a system message that sets context or instructions.
	RoleSystem = "system"

	// RoleUser indicates a message from the human user.
	RoleUser = "user"

	// RoleAssistant indicates a response from the LLM.
	RoleAssistant = "assistant"

	// RoleTool indicates a message carrying tool execution results.
	RoleTool = "tool"
)

// ToolSpec describes a tool that an LLM can call.
//
// The Schema field follows JSON Schema and describes the expected input.
type ToolSpec struct {
	// Name uniquely identifies the tool (alphanumeric + underscores).
	Name string `json:"name"`

	// Description explains what the tool does.
	// The LLM uses this to decide when to call the tool.
	Description string `json:"description"`

	// Schema defines the tool's input parameters as a JSON Schema object.
	// Optional for tools with no parameters.
	Schema map[string]interface{} `json:"schema,omitempty"`
}

// ToolCall is a request from the LLM to invoke a specific capability.
//
// Every call carries a unique ID; the matching ToolResult echoes it so that
// requests and outcomes pair up exactly.
type ToolCall struct {
	// ID uniquely identifies this call within the conversation.
	ID string `json:"id"`

	// Name identifies which tool to call. Must match a ToolSpec.Name.
	Name string `json:"name"`

	// Input contains the call arguments, shaped per the tool's Schema.
	// May be nil for parameterless tools.
	Input map[string]interface{} `json:"input,omitempty"`
}

// ToolResult is the outcome of one tool call.
//
// A failed call is still a result: Err carries the error text and Content is
// nil. Tool failures never propagate as Go errors past the execution node.
type ToolResult struct {
	// CallID echoes the ToolCall.ID this result answers.
	CallID string `json:"call_id"`

	// Name is the tool that produced this result.
	Name string `json:"name"`

	// Content is the structured success payload. Nil when Err is set.
	Content map[string]interface{} `json:"content,omitempty"`

	// Err holds the failure description when the call did not succeed.
	Err string `json:"error,omitempty"`
}

// Failed reports whether this result carries an error payload.
func (r ToolResult) Failed() bool {
	return r.Err != ""
}

// Response is the tagged union of model outputs.
//
// Exactly two concrete types implement it:
//   - PlainResponse: text only, the conversation turn is complete
//   - ToolCallingResponse: the model requests one or more tool invocations
//
// Routing logic uses a type switch, which the compiler can check for
// exhaustiveness far better than probing for a tool_calls attribute.
type Response interface {
	// Text returns the textual portion of the response, which may be empty.
	Text() string

	response()
}

// PlainResponse is a model response carrying only text.
type PlainResponse struct {
	// Content is the generated text.
	Content string
}

// Text implements Response.
func (p PlainResponse) Text() string { return p.Content }

func (PlainResponse) response() {}

// ToolCallingResponse is a model response requesting tool invocations.
//
// Calls is never empty; a response with zero calls must be a PlainResponse.
type ToolCallingResponse struct {
	// Content is optional accompanying text.
	Content string

	// Calls are the requested tool invocations, in provider order.
	Calls []ToolCall
}

// Text implements Response.
func (t ToolCallingResponse) Text() string { return t.Content }

func (ToolCallingResponse) response() {}

// NewResponse builds the appropriate Response variant from raw provider
// output: a ToolCallingResponse when calls are present, a PlainResponse
// otherwise. Provider adapters use this to guarantee the union invariant.
func NewResponse(text string, calls []ToolCall) Response {
	if len(calls) > 0 {
		return ToolCallingResponse{Content: text, Calls: calls}
	}
	return PlainResponse{Content: text}
}

// AssistantMessage converts a model response into the assistant message that
// is appended to the conversation.
func AssistantMessage(resp Response) Message {
	msg := Message{Role: RoleAssistant, Content: resp.Text()}
	if tc, ok := resp.(ToolCallingResponse); ok {
		msg.ToolCalls = tc.Calls
	}
	return msg
}
