package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageDeepCopy(t *testing.T) {
	t.Run("text_message_deep_copy", func(t *testing.T) {
		original := NewTextMessage(RoleUser, "how many hospitalized in AK on 3/7/2021?")

		copied := original.DeepCopy()
		assert.Equal(t, original, copied)

		original.Content = "Modified Original"
		assert.Equal(t, "how many hospitalized in AK on 3/7/2021?", copied.Content)
	})

	t.Run("assistant_message_with_tool_calls", func(t *testing.T) {
		original := Message{
			Role: RoleAssistant,
			ToolCalls: []ToolCall{
				{
					ID:   "call_123",
					Type: ToolTypeFunction,
					Function: ToolCallFunction{
						Name:      "get_hospitalized_for_state_on_date",
						Arguments: `{"state_abbr":"AK","specific_date":"3/7/2021"}`,
					},
				},
			},
		}

		copied := original.DeepCopy()
		require.Len(t, copied.ToolCalls, 1)

		original.ToolCalls[0].ID = "modified"
		assert.Equal(t, "call_123", copied.ToolCalls[0].ID)
	})
}

func TestMessageToolCallHelpers(t *testing.T) {
	m := NewTextMessage(RoleAssistant, "")
	assert.False(t, m.HasToolCalls())

	m.AddToolCall(ToolCall{ID: "a", Type: ToolTypeFunction, Function: ToolCallFunction{Name: "one"}})
	m.AddToolCall(ToolCall{ID: "b", Type: ToolTypeFunction, Function: ToolCallFunction{Name: "two"}})

	assert.True(t, m.HasToolCalls())
	require.Len(t, m.ToolCalls, 2)
	assert.Equal(t, "two", m.ToolCalls[1].Function.Name)
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		message Message
		wantErr bool
	}{
		{name: "user", message: NewTextMessage(RoleUser, "hi")},
		{name: "system", message: NewTextMessage(RoleSystem, "be brief")},
		{name: "tool result", message: NewToolResultMessage("call_1", "fn", "{}")},
		{name: "tool result without id", message: Message{Role: RoleTool, Content: "{}"}, wantErr: true},
		{name: "unknown role", message: Message{Role: "robot"}, wantErr: true},
		{
			name:    "user with tool calls",
			message: Message{Role: RoleUser, ToolCalls: []ToolCall{{ID: "x", Function: ToolCallFunction{Name: "fn"}}}},
			wantErr: true,
		},
		{
			name:    "assistant tool call without id",
			message: Message{Role: RoleAssistant, ToolCalls: []ToolCall{{Function: ToolCallFunction{Name: "fn"}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.message.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateConversation(t *testing.T) {
	assistant := Message{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{
			{ID: "call_1", Type: ToolTypeFunction, Function: ToolCallFunction{Name: "a"}},
			{ID: "call_2", Type: ToolTypeFunction, Function: ToolCallFunction{Name: "b"}},
		},
	}

	t.Run("paired", func(t *testing.T) {
		err := ValidateConversation([]Message{
			NewTextMessage(RoleUser, "q"),
			assistant,
			NewToolResultMessage("call_1", "a", "1"),
			NewToolResultMessage("call_2", "b", "2"),
		})
		assert.NoError(t, err)
	})

	t.Run("unanswered call", func(t *testing.T) {
		err := ValidateConversation([]Message{
			NewTextMessage(RoleUser, "q"),
			assistant,
			NewToolResultMessage("call_1", "a", "1"),
		})
		assert.Error(t, err)
	})

	t.Run("tool result before assistant", func(t *testing.T) {
		err := ValidateConversation([]Message{
			NewTextMessage(RoleUser, "q"),
			NewToolResultMessage("call_1", "a", "1"),
			assistant,
		})
		assert.Error(t, err)
	})
}
