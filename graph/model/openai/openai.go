// Package openai adapts OpenAI's Chat Completions API to the model.ChatModel
// interface, including function/tool calling support.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/agentgraph/agentgraph/graph/model"
)

// ChatModel implements model.ChatModel for OpenAI's API.
//
// Provides access to OpenAI models with:
//   - Retry logic for transient errors, bounded by the caller's context
//   - Rate limit backoff
//   - Tool/function calling support
//   - Context cancellation
//
// Example usage:
//
//	m := openai.NewChatModel(os.Getenv("OPENAI_API_KEY"), "gpt-4o-mini")
//	resp, err := m.Chat(ctx, messages, nil)
type ChatModel struct {
	modelName  string
	client     completionClient
	maxRetries int
	retryDelay time.Duration
}

// completionClient defines the API operation used by ChatModel.
// This indirection allows mocking in tests.
type completionClient interface {
	createChatCompletion(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.Response, error)
}

// NewChatModel creates a new OpenAI ChatModel.
//
// Parameters:
//   - apiKey: OpenAI API key
//   - modelName: model to use (e.g. "gpt-4o", "gpt-4o-mini"). Empty uses default.
//
// The returned ChatModel retries transient errors up to 3 times with a one
// second base delay and linear backoff for rate limits.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &ChatModel{
		modelName:  modelName,
		client:     &sdkClient{client: &client, modelName: modelName},
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Chat implements the model.ChatModel interface.
//
// Sends the conversation to OpenAI and returns the response, retrying
// transient failures. Retries never outlive the caller's context.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.Response, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		out, err := m.client.createChatCompletion(ctx, messages, tools)
		if err == nil {
			return out, nil
		}

		lastErr = err

		if !isTransientError(err) {
			return nil, &model.Error{Provider: "openai", Message: "chat completion failed", Cause: err}
		}

		if attempt >= m.maxRetries {
			break
		}

		// Linear backoff; rate limits get progressively longer waits.
		delay := m.retryDelay
		if isRateLimitError(err) {
			delay = m.retryDelay * time.Duration(attempt+1)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, &model.Error{
		Provider: "openai",
		Message:  fmt.Sprintf("chat completion failed after %d retries", m.maxRetries),
		Cause:    lastErr,
	}
}

// isTransientError determines if an error should trigger a retry.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if isRateLimitError(err) {
		return true
	}

	msgLower := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"network",
		"connection",
		"temporary",
		"503",
		"502",
		"500",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(msgLower, pattern) {
			return true
		}
	}

	return false
}

// isRateLimitError checks if error indicates a rate limit (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return strings.Contains(err.Error(), "429")
}

// sdkClient wraps the official openai-go client.
type sdkClient struct {
	client    *openai.Client
	modelName string
}

func (c *sdkClient) createChatCompletion(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.modelName,
		Messages: convertMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("OpenAI returned no choices")
	}

	return convertResponse(resp.Choices[0].Message), nil
}

// convertMessages converts the standard message format to OpenAI chat params.
//
// Tool results are attached as tool messages keyed by call ID, which OpenAI
// requires to immediately follow the assistant message that requested them.
func convertMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))

		case model.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))

		case model.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
			for i, call := range msg.ToolCalls {
				args, _ := json.Marshal(call.Input)
				calls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   call.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: string(args),
					},
				}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					ToolCalls: calls,
				},
			})

		case model.RoleTool:
			for _, result := range msg.ToolResults {
				out = append(out, openai.ToolMessage(encodeResult(result), result.CallID))
			}
		}
	}

	return out
}

// encodeResult serializes a tool result payload for the wire.
// Failures become a structured {"error": ...} object.
func encodeResult(result model.ToolResult) string {
	payload := result.Content
	if result.Failed() {
		payload = map[string]interface{}{"error": result.Err}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"error":"unserializable tool result: %v"}`, err)
	}
	return string(data)
}

// convertTools converts tool specs to OpenAI function definitions.
func convertTools(tools []model.ToolSpec) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.Schema,
			},
		}
	}
	return out
}

// convertResponse converts an OpenAI completion message to the response union.
func convertResponse(msg openai.ChatCompletionMessage) model.Response {
	calls := make([]model.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		input := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
				input = map[string]interface{}{"_raw": tc.Function.Arguments}
			}
		}
		calls = append(calls, model.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}

	return model.NewResponse(msg.Content, calls)
}
