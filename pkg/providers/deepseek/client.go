package deepseek

import (
	"context"
	"strings"
	"time"

	"github.com/cohesion-org/deepseek-go"

	"github.com/inercia/statesqa/pkg/llm"
)

// Client talks to the DeepSeek chat API through deepseek-go
type Client struct {
	client   *deepseek.Client
	model    string
	provider string

	// cached result of the last /models call
	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient builds a client from config. An API key is required.
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, llm.NewMissingAPIKeyError("DeepSeek")
	}

	if config.Model == "" {
		return nil, llm.NewValidationError("model is required for DeepSeek client")
	}

	var opts []deepseek.Option

	if config.BaseURL != "" {
		if config.BaseURL == "http://" || config.BaseURL == "https://" {
			return nil, llm.NewValidationError("base URL cannot be just a protocol")
		}
		opts = append(opts, deepseek.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, deepseek.WithTimeout(config.Timeout))
	}

	var client *deepseek.Client
	if len(opts) > 0 {
		var err error
		client, err = deepseek.NewClientWithOptions(config.APIKey, opts...)
		if err != nil {
			return nil, &llm.Error{
				Code:    "client_creation_error",
				Message: "Failed to create DeepSeek client: " + err.Error(),
				Type:    "configuration_error",
			}
		}
	} else {
		client = deepseek.NewClient(config.APIKey)
	}

	return &Client{
		client:   client,
		model:    config.Model,
		provider: "deepseek",
	}, nil
}

func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	deepseekReq := c.convertRequest(req)

	resp, err := c.client.CreateChatCompletion(ctx, &deepseekReq)
	if err != nil {
		return nil, c.convertError(err)
	}

	return c.convertResponse(*resp), nil
}

// GetRemote reports the endpoint and its cached health
func (c *Client) GetRemote() llm.ClientRemoteInfo {
	info := llm.ClientRemoteInfo{
		Name: "deepseek",
	}

	now := time.Now()
	needsRefresh := c.lastHealthCheck == nil ||
		now.Sub(*c.lastHealthCheck) >= llm.DefaultHealthCheckInterval

	if needsRefresh {
		healthy := c.performHealthCheck()
		c.lastHealthStatus = &healthy
		c.lastHealthCheck = &now
	}

	info.Status = &llm.ClientRemoteInfoStatus{
		Healthy:     c.lastHealthStatus,
		LastChecked: c.lastHealthCheck,
	}

	return info
}

// performHealthCheck lists the models; any answer counts as healthy
func (c *Client) performHealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req := deepseek.ChatCompletionRequest{
		Model:     c.model,
		Messages:  []deepseek.ChatCompletionMessage{{Role: "user", Content: "test"}},
		MaxTokens: 1,
	}

	_, err := c.client.CreateChatCompletion(ctx, &req)
	return err == nil
}

func (c *Client) GetModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:          c.model,
		Provider:      c.provider,
		MaxTokens:     32768,
		SupportsTools: true,
	}
}

func (c *Client) Close() error {
	return nil
}

// convertRequest maps req onto a DeepSeek request. Tools are sent only when
// req offers them.
func (c *Client) convertRequest(req llm.ChatRequest) deepseek.ChatCompletionRequest {
	messages := make([]deepseek.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = deepseek.ChatCompletionMessage{
			Role:       c.convertRoleToDeepSeek(msg.Role),
			Content:    msg.Content,
			ToolCalls:  c.convertToolCallsToDeepSeek(msg.ToolCalls),
			ToolCallID: msg.ToolCallID,
		}
	}

	var tools []deepseek.Tool
	if len(req.Tools) > 0 {
		tools = make([]deepseek.Tool, len(req.Tools))
		for i, tool := range req.Tools {
			tools[i] = deepseek.Tool{
				Type: tool.Type,
				Function: deepseek.Function{
					Name:        tool.Function.Name,
					Description: tool.Function.Description,
					Parameters:  c.convertToolParameters(tool.Function.Parameters),
				},
			}
		}
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	// tool_choice is left to the API default, which is "auto" when tools are present
	deepseekReq := deepseek.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
	}

	if req.Temperature != nil {
		deepseekReq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		deepseekReq.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		deepseekReq.TopP = *req.TopP
	}

	return deepseekReq
}

func (c *Client) convertRoleToDeepSeek(role llm.MessageRole) string {
	switch role {
	case llm.RoleSystem:
		return "system"
	case llm.RoleAssistant:
		return "assistant"
	case llm.RoleTool:
		return "tool"
	default:
		return "user"
	}
}

func (c *Client) convertToolCallsToDeepSeek(toolCalls []llm.ToolCall) []deepseek.ToolCall {
	if len(toolCalls) == 0 {
		return nil
	}

	deepseekToolCalls := make([]deepseek.ToolCall, len(toolCalls))
	for i, tc := range toolCalls {
		deepseekToolCalls[i] = deepseek.ToolCall{
			Index: i,
			ID:    tc.ID,
			Type:  tc.Type,
			Function: deepseek.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}
	}
	return deepseekToolCalls
}

func (c *Client) convertResponse(resp deepseek.ChatCompletionResponse) *llm.ChatResponse {
	choices := make([]llm.Choice, len(resp.Choices))
	for i, choice := range resp.Choices {
		choices[i] = llm.Choice{
			Index: choice.Index,
			Message: llm.Message{
				Role:      c.convertRoleFromDeepSeek(choice.Message.Role),
				Content:   choice.Message.Content,
				ToolCalls: c.convertToolCallsFromDeepSeek(choice.Message.ToolCalls),
			},
			FinishReason: choice.FinishReason,
		}
	}

	return &llm.ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: choices,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

func (c *Client) convertRoleFromDeepSeek(role string) llm.MessageRole {
	switch role {
	case "system":
		return llm.RoleSystem
	case "user":
		return llm.RoleUser
	case "tool":
		return llm.RoleTool
	default:
		return llm.RoleAssistant
	}
}

func (c *Client) convertToolCallsFromDeepSeek(toolCalls []deepseek.ToolCall) []llm.ToolCall {
	if len(toolCalls) == 0 {
		return nil
	}

	ourToolCalls := make([]llm.ToolCall, len(toolCalls))
	for i, tc := range toolCalls {
		ourToolCalls[i] = llm.ToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: llm.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}
	}
	return ourToolCalls
}

// deepseek-go only exposes formatted messages, so errors are classified by text
func (c *Client) convertError(err error) *llm.Error {
	if err == nil {
		return nil
	}

	errorMsg := err.Error()
	lower := strings.ToLower(errorMsg)

	code := "api_error"
	errorType := "api_error"
	statusCode := 0

	switch {
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") || strings.Contains(lower, "authentication"):
		code = llm.ErrorCodeAuthentication
		errorType = llm.ErrorCodeAuthentication
		statusCode = 401
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests"):
		code = llm.ErrorCodeRateLimit
		errorType = llm.ErrorCodeRateLimit
		statusCode = 429
	case strings.Contains(lower, "model") && strings.Contains(lower, "not found"):
		code = "model_not_found"
		errorType = "model_error"
		statusCode = 404
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		code = "timeout_error"
		errorType = "network_error"
		statusCode = 408
	case strings.Contains(lower, "validation") || strings.Contains(lower, "invalid"):
		code = llm.ErrorCodeValidation
		errorType = llm.ErrorCodeValidation
		statusCode = 400
	}

	return &llm.Error{
		Code:       code,
		Message:    errorMsg,
		Type:       errorType,
		StatusCode: statusCode,
	}
}

func (c *Client) convertToolParameters(params interface{}) *deepseek.FunctionParameters {
	if params == nil {
		return nil
	}

	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return &deepseek.FunctionParameters{Type: "object"}
	}

	result := &deepseek.FunctionParameters{Type: "object"}
	if typeStr, ok := paramMap["type"].(string); ok {
		result.Type = typeStr
	}
	if propsMap, ok := paramMap["properties"].(map[string]interface{}); ok {
		result.Properties = propsMap
	}

	switch req := paramMap["required"].(type) {
	case []interface{}:
		required := make([]string, 0, len(req))
		for _, item := range req {
			if str, ok := item.(string); ok {
				required = append(required, str)
			}
		}
		result.Required = required
	case []string:
		result.Required = req
	}

	return result
}
