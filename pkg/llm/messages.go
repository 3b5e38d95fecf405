// Message types and functionality
package llm

import (
	"fmt"
)

// Message represents a single chat message in a conversation.
// Assistant messages may carry tool calls; tool messages carry the
// result of one of them, correlated through ToolCallID.
type Message struct {
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	Name       string      `json:"name,omitempty"`
}

// MessageRole defines the role of a message sender
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// NewTextMessage creates a new Message with text content
func NewTextMessage(role MessageRole, text string) Message {
	return Message{
		Role:    role,
		Content: text,
	}
}

// NewToolResultMessage creates a tool-role message answering the tool call callID
func NewToolResultMessage(callID, name, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: callID,
		Name:       name,
	}
}

// HasToolCalls checks if the message contains any tool calls
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// AddToolCall adds a tool call to the message
func (m *Message) AddToolCall(toolCall ToolCall) {
	m.ToolCalls = append(m.ToolCalls, toolCall)
}

// Validate checks the structural constraints of the message for its role
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser:
		if len(m.ToolCalls) > 0 {
			return fmt.Errorf("%s message cannot carry tool calls", m.Role)
		}
	case RoleAssistant:
		for i, tc := range m.ToolCalls {
			if tc.ID == "" {
				return fmt.Errorf("tool call %d has no id", i)
			}
			if tc.Function.Name == "" {
				return fmt.Errorf("tool call %d has no function name", i)
			}
		}
	case RoleTool:
		if m.ToolCallID == "" {
			return fmt.Errorf("tool message has no tool_call_id")
		}
	default:
		return fmt.Errorf("unknown role %q", m.Role)
	}
	return nil
}

// DeepCopy creates a deep copy of the message, including its tool calls
func (m Message) DeepCopy() Message {
	copy := Message{
		Role:       m.Role,
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}

	if len(m.ToolCalls) > 0 {
		copy.ToolCalls = make([]ToolCall, 0, len(m.ToolCalls))
		copy.ToolCalls = append(copy.ToolCalls, m.ToolCalls...)
	}

	return copy
}

// ValidateConversation checks that every tool message answers a tool call
// issued by an earlier assistant message, and that every tool call of an
// assistant message is answered before the next non-tool message.
func ValidateConversation(messages []Message) error {
	pending := map[string]bool{}
	for i, m := range messages {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
		switch m.Role {
		case RoleTool:
			if !pending[m.ToolCallID] {
				return fmt.Errorf("message %d: tool result %q has no matching tool call", i, m.ToolCallID)
			}
			delete(pending, m.ToolCallID)
		default:
			if len(pending) > 0 {
				return fmt.Errorf("message %d: %d tool call(s) left unanswered", i, len(pending))
			}
			for _, tc := range m.ToolCalls {
				pending[tc.ID] = true
			}
		}
	}
	if len(pending) > 0 {
		return fmt.Errorf("%d tool call(s) left unanswered", len(pending))
	}
	return nil
}
