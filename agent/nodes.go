package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentgraph/agentgraph/graph"
	"github.com/agentgraph/agentgraph/graph/emit"
	"github.com/agentgraph/agentgraph/graph/model"
)

const plannerSystemPrompt = `You are an AI planning assistant. Analyze the user's request and create a concise execution plan.

Your plan should:
1. Identify the key tasks needed to fulfill the request
2. Determine which tools (if any) are needed
3. Outline the steps in a clear, logical order

Keep the plan brief and actionable. If the request is simple (like a greeting or question),
indicate that no complex execution is needed.

Available tools: database lookups (users, items), HTTP requests (GET, POST)
`

const executorSystemPromptFmt = `You are a helpful AI assistant. You have access to tools for database lookups and HTTP requests.

Current execution plan: %s

Follow the plan to help the user. Be concise and helpful. If you need to use tools, use them.
If the request is simple, just respond naturally without overthinking.
`

const defaultPlan = "No specific plan - respond naturally"

// plannerNode analyzes the conversation and produces an execution plan.
// The model is invoked without tools. The plan steers the executor via
// its system prompt; it is not appended to the conversation, so the
// visible history stays user/assistant turns plus tool traffic.
func plannerNode(chatModel model.ChatModel) graph.NodeFunc[State] {
	return func(ctx context.Context, state State, rc graph.RunContext[State]) (State, error) {
		messages := withSystemPrompt(plannerSystemPrompt, state.Messages)

		resp, err := chatModel.Chat(ctx, messages, nil)
		if err != nil {
			return State{}, err
		}

		return State{Plan: resp.Text()}, nil
	}
}

// executorNode carries out the plan with the run's capability set bound
// to the model call. The response may request tool calls; routing after
// this node decides whether the tool executor runs.
func executorNode(chatModel model.ChatModel) graph.NodeFunc[State] {
	return func(ctx context.Context, state State, rc graph.RunContext[State]) (State, error) {
		plan := state.Plan
		if plan == "" {
			plan = defaultPlan
		}
		messages := withSystemPrompt(fmt.Sprintf(executorSystemPromptFmt, plan), state.Messages)

		resp, err := chatModel.Chat(ctx, messages, rc.ToolSpecs())
		if err != nil {
			return State{}, err
		}

		return State{
			Messages: []model.Message{model.AssistantMessage(resp)},
		}, nil
	}
}

// toolExecutorNode dispatches every tool call requested by the last
// assistant message. Calls run concurrently; all results are collected
// before the node returns, exactly one result per call ID, in request
// order. A capability failure becomes a structured error result visible
// to the model, never a run failure.
func toolExecutorNode() graph.NodeFunc[State] {
	return func(ctx context.Context, state State, rc graph.RunContext[State]) (State, error) {
		calls := state.LastMessage().ToolCalls
		if len(calls) == 0 {
			// Routing only reaches this node when calls exist; an empty
			// visit still appends nothing and returns to the executor.
			return State{}, nil
		}

		results := make([]model.ToolResult, len(calls))
		var wg sync.WaitGroup
		for idx, call := range calls {
			wg.Add(1)
			go func(idx int, call model.ToolCall) {
				defer wg.Done()
				results[idx] = dispatch(ctx, rc, call)
			}(idx, call)
		}
		wg.Wait()

		return State{
			Messages: []model.Message{{
				Role:        model.RoleTool,
				ToolResults: results,
			}},
		}, nil
	}
}

// dispatch invokes a single capability and converts any failure into an
// error-carrying result.
func dispatch(ctx context.Context, rc graph.RunContext[State], call model.ToolCall) model.ToolResult {
	result := model.ToolResult{
		CallID: call.ID,
		Name:   call.Name,
	}

	t := rc.FindTool(call.Name)
	if t == nil {
		result.Err = "unknown tool: " + call.Name
		observeToolCall(rc, call.Name, "error")
		return result
	}

	out, err := safeCall(ctx, t.Call, call.Input)
	if err != nil {
		result.Err = err.Error()
		observeToolCall(rc, call.Name, "error")
		return result
	}

	result.Content = out
	observeToolCall(rc, call.Name, "success")
	return result
}

// safeCall runs a tool, converting a panic into an error so a buggy
// capability degrades the conversation instead of killing the run.
func safeCall(ctx context.Context, fn func(context.Context, map[string]interface{}) (map[string]interface{}, error), input map[string]interface{}) (out map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return fn(ctx, input)
}

func observeToolCall(rc graph.RunContext[State], name, status string) {
	if rc.Metrics != nil {
		rc.Metrics.ObserveToolCall(name, status)
	}
	if rc.Emitter != nil {
		func() {
			defer func() { _ = recover() }()
			rc.Emitter.Emit(emit.Event{
				ThreadID: rc.ThreadID,
				Node:     nodeToolExecutor,
				Msg:      "tool_call",
				Meta: map[string]interface{}{
					"tool":    name,
					"outcome": status,
				},
			})
		}()
	}
}

// withSystemPrompt prepends a system message to the conversation.
func withSystemPrompt(prompt string, messages []model.Message) []model.Message {
	out := make([]model.Message, 0, len(messages)+1)
	out = append(out, model.Message{Role: model.RoleSystem, Content: prompt})
	out = append(out, messages...)
	return out
}
