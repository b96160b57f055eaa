// Package anthropic adapts Anthropic's Messages API to the model.ChatModel
// interface, including tool use support.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/agentgraph/agentgraph/graph/model"
)

// defaultMaxTokens bounds response length when the caller does not configure one.
const defaultMaxTokens = 4096

// ChatModel implements model.ChatModel for Anthropic's Claude API.
//
// Handles the Anthropic-specific message shape:
//   - System prompts are a separate request parameter, not a message
//   - Tool results travel in user messages as tool_result blocks
//
// Example usage:
//
//	m := anthropic.NewChatModel(os.Getenv("ANTHROPIC_API_KEY"), "")
//	resp, err := m.Chat(ctx, messages, nil)
type ChatModel struct {
	modelName string
	maxTokens int64
	client    messageClient
}

// messageClient defines the API operation used by ChatModel.
// This indirection allows mocking in tests.
type messageClient interface {
	createMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

// NewChatModel creates a new Anthropic ChatModel.
//
// An empty modelName selects a current Sonnet-class default.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = string(anthropic.ModelClaudeSonnet4_0)
	}

	var clientOpts []option.RequestOption
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &ChatModel{
		modelName: modelName,
		maxTokens: defaultMaxTokens,
		client:    &sdkClient{client: &client},
	}
}

// Chat implements the model.ChatModel interface.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.Response, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	systemPrompt, conversation := extractSystemPrompt(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		Messages:  convertMessages(conversation),
		MaxTokens: m.maxTokens,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := m.client.createMessage(ctx, params)
	if err != nil {
		return nil, &model.Error{Provider: "anthropic", Message: "message create failed", Cause: err}
	}

	return convertResponse(resp), nil
}

// extractSystemPrompt separates system messages from the conversation.
// Anthropic's API expects system prompts as a separate parameter.
func extractSystemPrompt(messages []model.Message) (string, []model.Message) {
	var systemPrompt string
	var conversation []model.Message

	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
		} else {
			conversation = append(conversation, msg)
		}
	}

	return systemPrompt, conversation
}

// convertMessages converts standard messages to Anthropic message params.
//
// Tool results become tool_result blocks inside a user message, which is the
// shape the Messages API requires.
func convertMessages(messages []model.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleUser:
			if msg.Content != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			}

		case model.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, call.Input, call.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}

		case model.RoleTool:
			var blocks []anthropic.ContentBlockParamUnion
			for _, result := range msg.ToolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(
					result.CallID, encodeResult(result), result.Failed()))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		}
	}

	return out
}

// encodeResult serializes a tool result payload for the wire.
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

// convertTools converts tool specs to Anthropic tool params.
func convertTools(tools []model.ToolSpec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))

	for i, t := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if t.Schema != nil {
			if properties, ok := t.Schema["properties"]; ok {
				inputSchema.Properties = properties
			}
			inputSchema.Required = requiredFields(t.Schema)
		}

		tool := anthropic.ToolUnionParamOfTool(inputSchema, t.Name)
		if tool.OfTool != nil {
			tool.OfTool.Description = anthropic.String(t.Description)
		}
		out[i] = tool
	}

	return out
}

// requiredFields extracts the required-field list from a JSON schema map.
func requiredFields(schema map[string]interface{}) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []interface{}:
		fields := make([]string, 0, len(required))
		for _, r := range required {
			if s, ok := r.(string); ok {
				fields = append(fields, s)
			}
		}
		return fields
	default:
		return nil
	}
}

// convertResponse converts an Anthropic message to the response union.
func convertResponse(resp *anthropic.Message) model.Response {
	var text string
	var calls []model.ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			textBlock := block.AsText()
			if textBlock.Text != "" {
				if text != "" {
					text += "\n"
				}
				text += textBlock.Text
			}
		case "tool_use":
			toolBlock := block.AsToolUse()
			input := map[string]interface{}{}
			if len(toolBlock.Input) > 0 {
				if err := json.Unmarshal(toolBlock.Input, &input); err != nil {
					input = map[string]interface{}{"_raw": string(toolBlock.Input)}
				}
			}
			calls = append(calls, model.ToolCall{
				ID:    toolBlock.ID,
				Name:  toolBlock.Name,
				Input: input,
			})
		}
	}

	return model.NewResponse(text, calls)
}

// sdkClient wraps the official anthropic-sdk-go client.
type sdkClient struct {
	client *anthropic.Client
}

func (c *sdkClient) createMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return c.client.Messages.New(ctx, params)
}
