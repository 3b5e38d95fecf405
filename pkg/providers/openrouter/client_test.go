package openrouter

import (
	"errors"
	"testing"

	"github.com/revrost/go-openrouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inercia/statesqa/pkg/llm"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(llm.ClientConfig{Provider: "openrouter", APIKey: "or-key", Model: llm.DefaultOpenRouterModel})
	require.NoError(t, err)
	return client
}

func stateSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"state_abbr": map[string]interface{}{"type": "string"},
		},
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(llm.ClientConfig{Model: "x"})
	assert.True(t, llm.IsErrorCode(err, llm.ErrorCodeMissingAPIKey))
}

func TestConvertRequest(t *testing.T) {
	t.Parallel()
	client := newTestClient(t)

	call, err := llm.NewToolCall("call_1", "fn", map[string]string{"state_abbr": "AK"})
	require.NoError(t, err)

	temp := float32(0.2)
	got, err := client.convertRequest(llm.ChatRequest{
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleUser, "q"),
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{call}},
			llm.NewToolResultMessage("call_1", "fn", "42"),
		},
		Tools:       []llm.Tool{llm.NewFunctionTool("fn", "desc", stateSchema())},
		Temperature: &temp,
	})
	require.NoError(t, err)

	assert.Equal(t, llm.DefaultOpenRouterModel, got.Model)
	assert.InDelta(t, 0.2, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 3)
	require.Len(t, got.Messages[1].ToolCalls, 1)
	assert.Equal(t, "call_1", got.Messages[1].ToolCalls[0].ID)
	assert.Equal(t, "call_1", got.Messages[2].ToolCallID)
	assert.Equal(t, "42", got.Messages[2].Content.Text)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "fn", got.Tools[0].Function.Name)
}

func TestConvertRequestRejectsBadTools(t *testing.T) {
	t.Parallel()
	client := newTestClient(t)

	tests := []struct {
		name string
		tool llm.Tool
	}{
		{"no description", llm.NewFunctionTool("fn", "", stateSchema())},
		{"bad name", llm.NewFunctionTool("1fn", "desc", stateSchema())},
		{"non object params", llm.NewFunctionTool("fn", "desc", map[string]interface{}{"type": "string"})},
		{"wrong type", llm.Tool{Type: "retrieval", Function: llm.ToolFunction{Name: "fn", Description: "d"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.convertRequest(llm.ChatRequest{
				Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "q")},
				Tools:    []llm.Tool{tt.tool},
			})
			require.Error(t, err)
			assert.True(t, llm.IsErrorCode(err, "invalid_tool_definition"))
		})
	}
}

func TestConvertResponse(t *testing.T) {
	t.Parallel()
	client := newTestClient(t)

	got := client.convertResponse(openrouter.ChatCompletionResponse{
		ID:    "resp-1",
		Model: "m",
		Choices: []openrouter.ChatCompletionChoice{{
			FinishReason: openrouter.FinishReason("tool_calls"),
			Message: openrouter.ChatCompletionMessage{
				Role: "assistant",
				ToolCalls: []openrouter.ToolCall{{
					ID:       "call_9",
					Type:     openrouter.ToolType("function"),
					Function: openrouter.FunctionCall{Name: "fn", Arguments: "{}"},
				}},
			},
		}},
		Usage: &openrouter.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
	})

	assert.Equal(t, 7, got.Usage.TotalTokens)
	assert.NotEmpty(t, got.GetToolCalls())
	require.Len(t, got.GetToolCalls(), 1)
	assert.Equal(t, "call_9", got.GetToolCalls()[0].ID)
}

func TestConvertOpenRouterError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, convertOpenRouterError(nil))

	got := convertOpenRouterError(&openrouter.APIError{HTTPStatusCode: 429, Message: "slow down"})
	assert.Equal(t, llm.ErrorCodeRateLimit, got.Code)

	got = convertOpenRouterError(errors.New("dial tcp: connection refused"))
	assert.Equal(t, "connection_error", got.Code)

	got = convertOpenRouterError(errors.New("weird"))
	assert.Equal(t, "openrouter_error", got.Code)
}

func TestIsValidFunctionName(t *testing.T) {
	t.Parallel()

	assert.True(t, isValidFunctionName("get_hospitalized_for_state_on_date"))
	assert.True(t, isValidFunctionName("_x1"))
	assert.False(t, isValidFunctionName(""))
	assert.False(t, isValidFunctionName("9lives"))
	assert.False(t, isValidFunctionName("has-dash"))
}
