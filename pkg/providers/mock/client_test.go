package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inercia/statesqa/pkg/llm"
)

var lookupTools = []llm.Tool{
	llm.NewFunctionTool("get_hospitalized_for_state_on_date", "", nil),
	llm.NewFunctionTool("get_positive_cases_for_state_on_date", "", nil),
}

func TestScriptedStepsInOrder(t *testing.T) {
	client, err := NewClient("mock-model", "mock")
	require.NoError(t, err)

	client.WithSimpleResponse("first").
		AddError(errors.New("second fails")).
		WithSimpleResponse("third")
	require.Equal(t, 3, client.Pending())

	ctx := context.Background()
	resp, err := client.ChatCompletion(ctx, llm.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Choices[0].Message.Content)

	_, err = client.ChatCompletion(ctx, llm.ChatRequest{})
	assert.EqualError(t, err, "second fails")

	resp, err = client.ChatCompletion(ctx, llm.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "third", resp.Choices[0].Message.Content)

	assert.Len(t, client.GetCallLog(), 3)
	assert.Equal(t, 0, client.Pending())
}

func TestUnscriptedToolCalls(t *testing.T) {
	client, err := NewClient("mock-model", "mock")
	require.NoError(t, err)

	resp, err := client.ChatCompletion(context.Background(), llm.ChatRequest{
		Messages:   []llm.Message{llm.NewTextMessage(llm.RoleUser, "how many hospitalized people and positive cases in AK on 3/7/2021?")},
		Tools:      lookupTools,
		ToolChoice: llm.ToolChoiceAuto,
	})
	require.NoError(t, err)

	calls := resp.GetToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "get_hospitalized_for_state_on_date", calls[0].Function.Name)
	assert.Equal(t, "get_positive_cases_for_state_on_date", calls[1].Function.Name)
	assert.NotEqual(t, calls[0].ID, calls[1].ID)

	args, err := calls[0].Function.ArgumentsMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"state_abbr": "AK", "specific_date": "3/7/2021"}, args)
}

func TestUnscriptedWithoutToolsAnswersDirectly(t *testing.T) {
	client, err := NewClient("mock-model", "mock")
	require.NoError(t, err)

	resp, err := client.ChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hello there")},
		Tools:    lookupTools,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.GetToolCalls())
	assert.Contains(t, resp.Choices[0].Message.Content, "hello there")
}

func TestSummarizesToolResults(t *testing.T) {
	client, err := NewClient("mock-model", "mock")
	require.NoError(t, err)

	resp, err := client.ChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleUser, "q"),
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "1"}, {ID: "2"}}},
			llm.NewToolResultMessage("1", "a", `{"hospitalized":1234}`),
			llm.NewToolResultMessage("2", "b", `{"positive_cases":5678}`),
		},
	})
	require.NoError(t, err)

	content := resp.Choices[0].Message.Content
	assert.Contains(t, content, `a returned {"hospitalized":1234}`)
	assert.Contains(t, content, `b returned {"positive_cases":5678}`)
}

func TestWithToolCallMarshalsArguments(t *testing.T) {
	client, err := NewClient("mock-model", "mock")
	require.NoError(t, err)

	client.WithToolCall("get_positive_cases_for_state_on_date", map[string]interface{}{"state_abbr": "NY"})
	resp, err := client.ChatCompletion(context.Background(), llm.ChatRequest{})
	require.NoError(t, err)

	calls := resp.GetToolCalls()
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"state_abbr":"NY"}`, calls[0].Function.Arguments)
}

func TestResetAndRemote(t *testing.T) {
	client, err := NewClient("mock-model", "mock")
	require.NoError(t, err)

	client.WithSimpleResponse("x")
	_, _ = client.ChatCompletion(context.Background(), llm.ChatRequest{Model: "m"})
	require.NotNil(t, client.GetLastCall())

	client.Reset()
	assert.Nil(t, client.GetLastCall())
	assert.Equal(t, 0, client.Pending())

	remote := client.GetRemote()
	assert.Equal(t, "mock", remote.Name)
	require.NotNil(t, remote.Status)
	assert.True(t, *remote.Status.Healthy)
}
