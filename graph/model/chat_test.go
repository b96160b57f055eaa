package model

import (
	"encoding/json"
	"testing"
)

// TestNewResponse verifies the response union construction rules.
func TestNewResponse(t *testing.T) {
	t.Run("text only produces PlainResponse", func(t *testing.T) {
		resp := NewResponse("hello", nil)

		plain, ok := resp.(PlainResponse)
		if !ok {
			t.Fatalf("expected PlainResponse, got %T", resp)
		}
		if plain.Content != "hello" {
			t.Errorf("expected Content = 'hello', got %q", plain.Content)
		}
	})

	t.Run("empty calls slice produces PlainResponse", func(t *testing.T) {
		resp := NewResponse("hello", []ToolCall{})

		if _, ok := resp.(PlainResponse); !ok {
			t.Fatalf("expected PlainResponse for zero calls, got %T", resp)
		}
	})

	t.Run("calls produce ToolCallingResponse", func(t *testing.T) {
		calls := []ToolCall{{ID: "c1", Name: "lookup"}}
		resp := NewResponse("working on it", calls)

		tc, ok := resp.(ToolCallingResponse)
		if !ok {
			t.Fatalf("expected ToolCallingResponse, got %T", resp)
		}
		if len(tc.Calls) != 1 || tc.Calls[0].ID != "c1" {
			t.Errorf("unexpected calls: %+v", tc.Calls)
		}
		if tc.Text() != "working on it" {
			t.Errorf("expected text preserved, got %q", tc.Text())
		}
	})
}

// TestAssistantMessage verifies conversion from response union to message.
func TestAssistantMessage(t *testing.T) {
	t.Run("plain response", func(t *testing.T) {
		msg := AssistantMessage(PlainResponse{Content: "done"})

		if msg.Role != RoleAssistant {
			t.Errorf("expected assistant role, got %q", msg.Role)
		}
		if msg.Content != "done" {
			t.Errorf("expected content 'done', got %q", msg.Content)
		}
		if len(msg.ToolCalls) != 0 {
			t.Errorf("plain response must not carry tool calls, got %d", len(msg.ToolCalls))
		}
	})

	t.Run("tool calling response", func(t *testing.T) {
		resp := ToolCallingResponse{
			Content: "checking",
			Calls:   []ToolCall{{ID: "c1", Name: "http_request"}, {ID: "c2", Name: "lookup_user_by_email"}},
		}

		msg := AssistantMessage(resp)

		if msg.Role != RoleAssistant {
			t.Errorf("expected assistant role, got %q", msg.Role)
		}
		if len(msg.ToolCalls) != 2 {
			t.Fatalf("expected 2 tool calls, got %d", len(msg.ToolCalls))
		}
		if msg.ToolCalls[1].Name != "lookup_user_by_email" {
			t.Errorf("unexpected call order: %+v", msg.ToolCalls)
		}
	})
}

// TestToolResult_Failed verifies the error payload convention.
func TestToolResult_Failed(t *testing.T) {
	ok := ToolResult{CallID: "c1", Content: map[string]interface{}{"status": "ok"}}
	if ok.Failed() {
		t.Error("result with content should not be failed")
	}

	failed := ToolResult{CallID: "c2", Err: "connection refused"}
	if !failed.Failed() {
		t.Error("result with Err should be failed")
	}
}

// TestMessage_JSONRoundTrip verifies state snapshots serialize losslessly.
func TestMessage_JSONRoundTrip(t *testing.T) {
	original := Message{
		Role:    RoleAssistant,
		Content: "let me check",
		ToolCalls: []ToolCall{
			{ID: "call-1", Name: "lookup_item_by_id", Input: map[string]interface{}{"item_id": "abc"}},
		},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Role != original.Role || decoded.Content != original.Content {
		t.Errorf("round trip changed message: %+v", decoded)
	}
	if len(decoded.ToolCalls) != 1 || decoded.ToolCalls[0].ID != "call-1" {
		t.Errorf("round trip lost tool calls: %+v", decoded.ToolCalls)
	}
	if decoded.ToolCalls[0].Input["item_id"] != "abc" {
		t.Errorf("round trip lost call input: %+v", decoded.ToolCalls[0].Input)
	}
}
