package agent

import (
	"testing"

	"github.com/agentgraph/agentgraph/graph/model"
)

func TestReduce(t *testing.T) {
	t.Run("appends messages", func(t *testing.T) {
		prev := State{Messages: []model.Message{
			{Role: model.RoleUser, Content: "hello"},
		}}
		delta := State{Messages: []model.Message{
			{Role: model.RoleAssistant, Content: "hi there"},
		}}

		merged := Reduce(prev, delta)
		if len(merged.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(merged.Messages))
		}
		if merged.Messages[0].Content != "hello" || merged.Messages[1].Content != "hi there" {
			t.Errorf("messages out of order: %+v", merged.Messages)
		}
	})

	t.Run("replaces plan only when delta sets one", func(t *testing.T) {
		prev := State{Plan: "original plan"}

		merged := Reduce(prev, State{Plan: "revised plan"})
		if merged.Plan != "revised plan" {
			t.Errorf("expected plan replacement, got %q", merged.Plan)
		}

		merged = Reduce(merged, State{})
		if merged.Plan != "revised plan" {
			t.Errorf("empty delta should keep plan, got %q", merged.Plan)
		}
	})

	t.Run("user id is set once", func(t *testing.T) {
		merged := Reduce(State{}, State{UserID: "u-1"})
		if merged.UserID != "u-1" {
			t.Fatalf("expected u-1, got %q", merged.UserID)
		}

		merged = Reduce(merged, State{UserID: "u-2"})
		if merged.UserID != "u-1" {
			t.Errorf("user id must be immutable once set, got %q", merged.UserID)
		}
	})
}

func TestLastMessage(t *testing.T) {
	if got := (State{}).LastMessage(); got.Role != "" || got.Content != "" {
		t.Errorf("empty state should yield zero message, got %+v", got)
	}

	s := State{Messages: []model.Message{
		{Role: model.RoleUser, Content: "first"},
		{Role: model.RoleAssistant, Content: "second"},
	}}
	if got := s.LastMessage(); got.Content != "second" {
		t.Errorf("expected last message, got %+v", got)
	}
}
