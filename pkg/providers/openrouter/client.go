package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/revrost/go-openrouter"

	"github.com/inercia/statesqa/pkg/llm"
)

// Client routes chat requests through OpenRouter
type Client struct {
	client   *openrouter.Client
	model    string
	provider string

	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient builds a client from config. The site URL and name extras are
// forwarded as OpenRouter attribution headers.
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, llm.NewMissingAPIKeyError("OpenRouter")
	}

	clientConfig := openrouter.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	// OpenRouter ranks apps by these headers
	clientConfig.HttpReferer = config.GetExtra(llm.ExtraSiteURL, "")
	clientConfig.XTitle = config.GetExtra(llm.ExtraAppName, "statesqa")

	return &Client{
		client:   openrouter.NewClientWithConfig(*clientConfig),
		model:    config.Model,
		provider: "openrouter",
	}, nil
}

// ChatCompletion validates the offered tools before sending the request
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	openrouterReq, err := c.convertRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, openrouterReq)
	if err != nil {
		return nil, convertOpenRouterError(err)
	}

	return c.convertResponse(resp), nil
}

func (c *Client) GetRemote() llm.ClientRemoteInfo {
	info := llm.ClientRemoteInfo{
		Name: "openrouter",
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

func (c *Client) performHealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.client.ListModels(ctx)
	return err == nil
}

func (c *Client) GetModelInfo() llm.ModelInfo {
	// Capabilities vary by underlying model
	return llm.ModelInfo{
		Name:          c.model,
		Provider:      c.provider,
		MaxTokens:     128000,
		SupportsTools: true,
	}
}

func (c *Client) Close() error {
	return nil
}

func (c *Client) convertRequest(req llm.ChatRequest) (openrouter.ChatCompletionRequest, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	openrouterReq := openrouter.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openrouter.ChatCompletionMessage, 0, len(req.Messages)),
	}

	if req.Temperature != nil {
		openrouterReq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		openrouterReq.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		openrouterReq.TopP = *req.TopP
	}

	for _, msg := range req.Messages {
		openrouterReq.Messages = append(openrouterReq.Messages, c.convertMessage(msg))
	}

	if len(req.Tools) > 0 {
		for i, tool := range req.Tools {
			if err := validateToolDefinition(tool); err != nil {
				return openrouterReq, &llm.Error{
					Code:    "invalid_tool_definition",
					Message: fmt.Sprintf("Tool %d validation failed: %v", i, err),
					Type:    llm.ErrorCodeValidation,
				}
			}
		}

		// tool_choice is left to the API default, which is "auto" when tools are present
		openrouterReq.Tools = make([]openrouter.Tool, 0, len(req.Tools))
		for _, tool := range req.Tools {
			openrouterReq.Tools = append(openrouterReq.Tools, openrouter.Tool{
				Type: openrouter.ToolType(tool.Type),
				Function: &openrouter.FunctionDefinition{
					Name:        tool.Function.Name,
					Description: tool.Function.Description,
					Parameters:  tool.Function.Parameters,
				},
			})
		}
	}

	return openrouterReq, nil
}

func (c *Client) convertMessage(msg llm.Message) openrouter.ChatCompletionMessage {
	openrouterMsg := openrouter.ChatCompletionMessage{
		Role:       string(msg.Role),
		Content:    openrouter.Content{Text: msg.Content},
		ToolCallID: msg.ToolCallID,
	}

	if len(msg.ToolCalls) > 0 {
		openrouterMsg.ToolCalls = make([]openrouter.ToolCall, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			openrouterMsg.ToolCalls = append(openrouterMsg.ToolCalls, openrouter.ToolCall{
				ID:   tc.ID,
				Type: openrouter.ToolType(tc.Type),
				Function: openrouter.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
	}

	return openrouterMsg
}

func (c *Client) convertResponse(resp openrouter.ChatCompletionResponse) *llm.ChatResponse {
	response := &llm.ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: make([]llm.Choice, 0, len(resp.Choices)),
	}

	if resp.Usage != nil {
		response.Usage = llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	for _, choice := range resp.Choices {
		ourChoice := llm.Choice{
			Index:        choice.Index,
			FinishReason: string(choice.FinishReason),
			Message: llm.Message{
				Role:    llm.MessageRole(choice.Message.Role),
				Content: choice.Message.Content.Text,
			},
		}

		for _, tc := range choice.Message.ToolCalls {
			ourChoice.Message.ToolCalls = append(ourChoice.Message.ToolCalls, llm.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				Function: llm.ToolCallFunction{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}

		response.Choices = append(response.Choices, ourChoice)
	}

	return response
}

// validateToolDefinition rejects tools OpenRouter would refuse upstream
func validateToolDefinition(tool llm.Tool) error {
	if tool.Type != llm.ToolTypeFunction {
		return fmt.Errorf("unsupported tool type: %q (only 'function' is supported)", tool.Type)
	}
	if tool.Function.Name == "" {
		return fmt.Errorf("function name is required")
	}
	if tool.Function.Description == "" {
		return fmt.Errorf("function description is required")
	}
	if !isValidFunctionName(tool.Function.Name) {
		return fmt.Errorf("invalid function name format: %s", tool.Function.Name)
	}

	if tool.Function.Parameters != nil {
		paramMap, ok := tool.Function.Parameters.(map[string]interface{})
		if !ok {
			return fmt.Errorf("parameters must be an object")
		}
		if typeStr, _ := paramMap["type"].(string); typeStr != "object" {
			return fmt.Errorf("parameters type must be 'object', got: %v", paramMap["type"])
		}
	}

	return nil
}

func isValidFunctionName(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if !isLetter && (i == 0 || !isDigit) {
			return false
		}
	}
	return true
}

func convertOpenRouterError(err error) *llm.Error {
	if err == nil {
		return nil
	}

	var apiErr *openrouter.APIError
	if errors.As(err, &apiErr) {
		converted := llm.NewProviderError(apiErr.HTTPStatusCode, apiErr.Message, "")
		if codeStr, ok := apiErr.Code.(string); ok && codeStr != "" {
			converted.Code = codeStr
		}
		return converted
	}

	var reqErr *openrouter.RequestError
	if errors.As(err, &reqErr) {
		return llm.NewProviderError(reqErr.HTTPStatusCode, reqErr.Error(), "network_error")
	}

	errMsg := err.Error()
	errMsgLower := strings.ToLower(errMsg)
	switch {
	case strings.Contains(errMsgLower, "connection refused") ||
		strings.Contains(errMsgLower, "no such host") ||
		strings.Contains(errMsgLower, "network is unreachable"):
		return &llm.Error{Code: "connection_error", Message: errMsg, Type: "network_error"}
	case strings.Contains(errMsgLower, "timeout") || strings.Contains(errMsgLower, "deadline exceeded"):
		return &llm.Error{Code: "timeout_error", Message: errMsg, Type: "network_error"}
	case strings.Contains(errMsgLower, "context canceled"):
		return &llm.Error{Code: "request_canceled", Message: errMsg, Type: "network_error"}
	}

	return &llm.Error{
		Code:    "openrouter_error",
		Message: errMsg,
		Type:    "api_error",
	}
}
