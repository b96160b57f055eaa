// Package google adapts Google's Gemini API to the model.ChatModel interface.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/agentgraph/agentgraph/graph/model"
)

// ChatModel implements model.ChatModel for Google's Gemini API.
//
// Provides access to Gemini models with:
//   - Tool/function calling support
//   - Context cancellation
//   - Safety filter error surfacing
//
// Example usage:
//
//	m := google.NewChatModel(os.Getenv("GOOGLE_API_KEY"), "gemini-1.5-flash")
//	resp, err := m.Chat(ctx, messages, nil)
type ChatModel struct {
	modelName string
	client    generateClient
}

// generateClient defines the API operation used by ChatModel.
// This indirection allows mocking in tests.
type generateClient interface {
	generateContent(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.Response, error)
}

// NewChatModel creates a new Google Gemini ChatModel.
//
// An empty modelName selects "gemini-1.5-flash".
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	return &ChatModel{
		modelName: modelName,
		client:    &sdkClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements the model.ChatModel interface.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.Response, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	resp, err := m.client.generateContent(ctx, messages, tools)
	if err != nil {
		var safetyErr *SafetyFilterError
		if errors.As(err, &safetyErr) {
			return nil, err
		}
		return nil, &model.Error{Provider: "google", Message: "content generation failed", Cause: err}
	}
	return resp, nil
}

// sdkClient wraps the official generative-ai-go client.
// The client is created per call and closed on exit; the SDK connection
// is cheap relative to a generation request.
type sdkClient struct {
	apiKey    string
	modelName string
}

func (c *sdkClient) generateContent(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.Response, error) {
	if c.apiKey == "" {
		return nil, errors.New("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}
	defer func() { _ = client.Close() }()

	genModel := client.GenerativeModel(c.modelName)

	if len(tools) > 0 {
		genModel.Tools = convertTools(tools)
	}

	resp, err := genModel.GenerateContent(ctx, convertMessages(messages)...)
	if err != nil {
		return nil, fmt.Errorf("google API error: %w", err)
	}

	return convertResponse(resp)
}

// convertMessages converts standard messages to Gemini content parts.
//
// Gemini combines the turn into text parts; tool results are rendered as
// labeled text since the single-shot GenerateContent call has no separate
// tool-result channel.
func convertMessages(messages []model.Message) []genai.Part {
	var parts []genai.Part

	for _, msg := range messages {
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
		for _, result := range msg.ToolResults {
			parts = append(parts, genai.Text(fmt.Sprintf("tool %s result: %s", result.Name, renderResult(result))))
		}
	}

	return parts
}

func renderResult(result model.ToolResult) string {
	if result.Failed() {
		return fmt.Sprintf(`{"error":%q}`, result.Err)
	}
	return fmt.Sprintf("%v", result.Content)
}

// convertTools converts tool specs to Gemini function declarations.
func convertTools(tools []model.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))

	for i, t := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertSchema(t.Schema),
		}
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertSchema converts a JSON schema map to the genai schema form.
// Handles the flat object-with-properties shape tools declare.
func convertSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}

	result := &genai.Schema{Type: genai.TypeObject}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		properties := make(map[string]*genai.Schema)
		for key, val := range props {
			propMap, ok := val.(map[string]interface{})
			if !ok {
				continue
			}
			propSchema := &genai.Schema{}
			if typeStr, ok := propMap["type"].(string); ok {
				propSchema.Type = convertTypeString(typeStr)
			}
			if desc, ok := propMap["description"].(string); ok {
				propSchema.Description = desc
			}
			properties[key] = propSchema
		}
		result.Properties = properties
	}

	switch required := schema["required"].(type) {
	case []string:
		result.Required = required
	case []interface{}:
		for _, v := range required {
			if s, ok := v.(string); ok {
				result.Required = append(result.Required, s)
			}
		}
	}

	return result
}

// convertTypeString converts a JSON Schema type string to a genai.Type.
func convertTypeString(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

// convertResponse converts a Gemini response to the response union.
func convertResponse(resp *genai.GenerateContentResponse) (model.Response, error) {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return nil, &SafetyFilterError{
				reason:   resp.PromptFeedback.BlockReason.String(),
				category: "prompt",
			}
		}
		return model.PlainResponse{}, nil
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return model.PlainResponse{}, nil
	}

	var text string
	var calls []model.ToolCall

	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if text != "" {
				text += "\n"
			}
			text += string(p)

		case genai.FunctionCall:
			calls = append(calls, model.ToolCall{
				Name:  p.Name,
				Input: p.Args,
			})
		}
	}

	return model.NewResponse(text, calls), nil
}

// SafetyFilterError represents a Google safety filter block.
//
// Use errors.As to check for this error type:
//
//	var safetyErr *google.SafetyFilterError
//	if errors.As(err, &safetyErr) {
//	    log.Printf("content blocked: %s", safetyErr.Category())
//	}
type SafetyFilterError struct {
	reason   string
	category string
}

// Error implements the error interface.
func (e *SafetyFilterError) Error() string {
	return "content blocked by safety filter: " + e.category
}

// Category returns the safety category that triggered the block.
func (e *SafetyFilterError) Category() string {
	return e.category
}

// Reason returns why the content was blocked.
func (e *SafetyFilterError) Reason() string {
	return e.reason
}
