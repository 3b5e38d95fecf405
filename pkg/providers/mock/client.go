package mock

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inercia/statesqa/pkg/llm"
)

var (
	dateRe  = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	stateRe = regexp.MustCompile(`\b[A-Z]{2}\b`)
)

// triggers maps words found in a question to the tools they suggest
var triggers = map[string]string{
	"hospitalized": "get_hospitalized_for_state_on_date",
	"hospital":     "get_hospitalized_for_state_on_date",
	"positive":     "get_positive_cases_for_state_on_date",
	"cases":        "get_positive_cases_for_state_on_date",
}

// step is one scripted outcome: a response or an error
type step struct {
	response *llm.ChatResponse
	err      error
}

// Client implements the llm.Client interface for testing
type Client struct {
	mu                sync.Mutex
	modelInfo         llm.ModelInfo
	steps             []step
	callLog           []llm.ChatRequest
	latencySimulation time.Duration

	// Health check caching (even for mock)
	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient creates a new mock LLM client for testing
func NewClient(modelName, provider string) (*Client, error) {
	return &Client{
		modelInfo: llm.ModelInfo{
			Name:          modelName,
			Provider:      provider,
			MaxTokens:     4096,
			SupportsTools: true,
		},
	}, nil
}

// ChatCompletion returns the next scripted response or error. Once the
// script is exhausted it answers on its own: tool results are summarized,
// and questions mentioning a known metric produce tool calls.
func (m *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.callLog = append(m.callLog, req)
	var next *step
	if len(m.steps) > 0 {
		next = &m.steps[0]
		m.steps = m.steps[1:]
	}
	latency := m.latencySimulation
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if next != nil {
		if next.err != nil {
			return nil, next.err
		}
		resp := next.response.DeepCopy()
		return &resp, nil
	}

	if len(req.Messages) > 0 && req.Messages[len(req.Messages)-1].Role == llm.RoleTool {
		return m.handleToolResponse(req), nil
	}
	return m.generateResponse(req), nil
}

// handleToolResponse summarizes every tool result following the last assistant message
func (m *Client) handleToolResponse(req llm.ChatRequest) *llm.ChatResponse {
	var results []string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		msg := req.Messages[i]
		if msg.Role != llm.RoleTool {
			break
		}
		results = append([]string{fmt.Sprintf("%s returned %s", msg.Name, msg.Content)}, results...)
	}

	return m.textResponse(req.Model, "Based on the tool results: "+strings.Join(results, "; ")+".")
}

// generateResponse answers a question, calling tools when the question asks for a known metric
func (m *Client) generateResponse(req llm.ChatRequest) *llm.ChatResponse {
	var question string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			question = req.Messages[i].Content
			break
		}
	}

	if req.HasTools() && req.ToolChoice != llm.ToolChoiceNone {
		if calls := m.toolCallsFor(req.Tools, question); len(calls) > 0 {
			return &llm.ChatResponse{
				ID:    "mock-tool-" + uuid.NewString(),
				Model: req.Model,
				Choices: []llm.Choice{{
					Message:      llm.Message{Role: llm.RoleAssistant, ToolCalls: calls},
					FinishReason: llm.FinishReasonToolCalls,
				}},
				Usage: usageFor(question, ""),
			}
		}
	}

	return m.textResponse(req.Model, fmt.Sprintf("I understand you're asking about: %s.", question))
}

func (m *Client) toolCallsFor(tools []llm.Tool, question string) []llm.ToolCall {
	offered := make(map[string]bool, len(tools))
	for _, t := range tools {
		offered[t.Function.Name] = true
	}

	date := dateRe.FindString(question)
	state := stateRe.FindString(question)
	if date == "" || state == "" {
		return nil
	}

	lower := strings.ToLower(question)
	seen := map[string]bool{}
	var calls []llm.ToolCall
	for _, word := range []string{"hospitalized", "hospital", "positive", "cases"} {
		name := triggers[word]
		if !strings.Contains(lower, word) || seen[name] || !offered[name] {
			continue
		}
		seen[name] = true
		call, err := llm.NewToolCall("call_"+uuid.NewString(), name, map[string]string{
			"state_abbr":    state,
			"specific_date": date,
		})
		if err == nil {
			calls = append(calls, call)
		}
	}
	return calls
}

func (m *Client) textResponse(model, content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		ID:    "mock-resp-" + uuid.NewString(),
		Model: model,
		Choices: []llm.Choice{{
			Message:      llm.NewTextMessage(llm.RoleAssistant, content),
			FinishReason: llm.FinishReasonStop,
		}},
		Usage: usageFor("", content),
	}
}

func usageFor(prompt, completion string) llm.Usage {
	p := len(strings.Fields(prompt)) + 5
	c := len(strings.Fields(completion))
	return llm.Usage{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c}
}

// GetRemote returns information about the remote client
func (m *Client) GetRemote() llm.ClientRemoteInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastHealthCheck == nil {
		healthy := true // Mock client is always healthy
		now := time.Now()
		m.lastHealthStatus = &healthy
		m.lastHealthCheck = &now
	}

	return llm.ClientRemoteInfo{
		Name: "mock",
		Status: &llm.ClientRemoteInfoStatus{
			Healthy:     m.lastHealthStatus,
			LastChecked: m.lastHealthCheck,
		},
	}
}

// GetModelInfo returns the configured model info
func (m *Client) GetModelInfo() llm.ModelInfo {
	return m.modelInfo
}

// Close does nothing for mock client
func (m *Client) Close() error {
	return nil
}

// Test helper methods

// AddResponse queues a response to be returned by a subsequent call
func (m *Client) AddResponse(response llm.ChatResponse) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{response: &response})
	return m
}

// AddError queues an error to be returned by a subsequent call
func (m *Client) AddError(err error) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{err: err})
	return m
}

// Pending returns the number of scripted steps not consumed yet
func (m *Client) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}

// GetCallLog returns all requests made to this mock client
func (m *Client) GetCallLog() []llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.ChatRequest, len(m.callLog))
	copy(out, m.callLog)
	return out
}

// GetLastCall returns the most recent request made to this mock client
func (m *Client) GetLastCall() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.callLog) == 0 {
		return nil
	}
	last := m.callLog[len(m.callLog)-1]
	return &last
}

// Reset clears all scripted steps and call logs
func (m *Client) Reset() *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = nil
	m.callLog = nil
	return m
}

// Convenience methods for common test scenarios

// WithSimpleResponse adds a simple text response
func (m *Client) WithSimpleResponse(content string) *Client {
	return m.AddResponse(*m.textResponse(m.modelInfo.Name, content))
}

// WithToolCalls adds a response carrying the given tool calls
func (m *Client) WithToolCalls(calls ...llm.ToolCall) *Client {
	return m.AddResponse(llm.ChatResponse{
		ID:    "mock-tool-" + uuid.NewString(),
		Model: m.modelInfo.Name,
		Choices: []llm.Choice{{
			Message:      llm.Message{Role: llm.RoleAssistant, ToolCalls: calls},
			FinishReason: llm.FinishReasonToolCalls,
		}},
	})
}

// WithToolCall adds a response with a single tool call whose arguments are args marshaled as JSON
func (m *Client) WithToolCall(toolName string, args map[string]interface{}) *Client {
	call, err := llm.NewToolCall("call_"+uuid.NewString(), toolName, args)
	if err != nil {
		return m.AddError(err)
	}
	return m.WithToolCalls(call)
}

// WithError adds an error response
func (m *Client) WithError(code, message, errorType string) *Client {
	return m.AddError(&llm.Error{
		Code:    code,
		Message: message,
		Type:    errorType,
	})
}

// WithLatency configures simulated latency for requests
func (m *Client) WithLatency(duration time.Duration) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySimulation = duration
	return m
}

// WithModelCapabilities configures the model's capabilities
func (m *Client) WithModelCapabilities(maxTokens int, supportsTools bool) *Client {
	m.modelInfo.MaxTokens = maxTokens
	m.modelInfo.SupportsTools = supportsTools
	return m
}
