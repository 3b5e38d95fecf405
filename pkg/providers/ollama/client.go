package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inercia/statesqa/pkg/llm"
)

// modelCapabilities defines the capabilities for a model pattern
type modelCapabilities struct {
	pattern       *regexp.Regexp
	maxTokens     int
	supportsTools bool
}

// modelCapabilitiesList defines capabilities for different Ollama models.
// Models are matched in order, first match wins.
var modelCapabilitiesList = []modelCapabilities{
	{pattern: regexp.MustCompile(`llama3\.[1-3]`), maxTokens: 131072, supportsTools: true},
	{pattern: regexp.MustCompile(`qwen2\.5|qwen3`), maxTokens: 32768, supportsTools: true},
	{pattern: regexp.MustCompile(`gpt-oss`), maxTokens: 131072, supportsTools: true},
	{pattern: regexp.MustCompile(`mistral`), maxTokens: 32768, supportsTools: true},
	{pattern: regexp.MustCompile(`codellama`), maxTokens: 16384, supportsTools: false},
}

// Client implements the llm.Client interface for Ollama
type Client struct {
	model      string
	baseURL    string
	httpClient *http.Client

	// Health check caching
	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient creates a new Ollama client
func NewClient(config llm.ClientConfig) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = llm.DefaultOllamaBaseURL
	}

	model := config.Model
	if model == "" {
		model = llm.DefaultOllamaModel
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = llm.DefaultOllamaTimeout
	}

	return &Client{
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// ChatCompletion performs a chat completion request using Ollama's /api/chat endpoint
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	ollamaReq, err := c.convertToOllamaRequest(req)
	if err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, &llm.Error{
			Code:    "request_error",
			Message: fmt.Sprintf("Failed to serialize request: %v", err),
			Type:    "client_error",
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return nil, &llm.Error{
			Code:    "request_error",
			Message: fmt.Sprintf("Failed to create request: %v", err),
			Type:    "client_error",
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{
			Code:    "network_error",
			Message: fmt.Sprintf("Request failed: %v", err),
			Type:    "network_error",
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.Error{
			Code:    "response_error",
			Message: fmt.Sprintf("Failed to read response: %v", err),
			Type:    "client_error",
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.convertOllamaError(body, resp.StatusCode)
	}

	var ollamaResp OllamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, &llm.Error{
			Code:    "parse_error",
			Message: fmt.Sprintf("Failed to parse response: %v", err),
			Type:    "client_error",
		}
	}

	return c.convertFromOllamaResponse(ollamaResp), nil
}

// GetRemote returns information about the remote client
func (c *Client) GetRemote() llm.ClientRemoteInfo {
	info := llm.ClientRemoteInfo{
		Name: "ollama",
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

// performHealthCheck lists local models, which is cheap and needs no model load
func (c *Client) performHealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// GetModelInfo returns information about the model
func (c *Client) GetModelInfo() llm.ModelInfo {
	caps := modelCapabilities{
		maxTokens:     4096,
		supportsTools: false,
	}

	for _, modelCaps := range modelCapabilitiesList {
		if modelCaps.pattern.MatchString(c.model) {
			caps = modelCaps
			break
		}
	}

	return llm.ModelInfo{
		Name:          c.model,
		Provider:      "ollama",
		MaxTokens:     caps.maxTokens,
		SupportsTools: caps.supportsTools,
	}
}

// Close cleans up resources
func (c *Client) Close() error {
	return nil
}

// Ollama API structures
type OllamaRequest struct {
	Model    string          `json:"model"`
	Messages []OllamaMessage `json:"messages"`
	Tools    []OllamaTool    `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
	Options  *OllamaOptions  `json:"options,omitempty"`
}

type OllamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []OllamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type OllamaTool struct {
	Type     string             `json:"type"`
	Function OllamaToolFunction `json:"function"`
}

type OllamaToolFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// OllamaToolCall carries arguments as a JSON object rather than a string
type OllamaToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type OllamaOptions struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"` // Ollama's equivalent to max_tokens
}

type OllamaResponse struct {
	Model           string        `json:"model"`
	Message         OllamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason,omitempty"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// Ollama error structure
type OllamaError struct {
	Error string `json:"error"`
}

// Convert our format to Ollama format
func (c *Client) convertToOllamaRequest(req llm.ChatRequest) (OllamaRequest, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	ollamaReq := OllamaRequest{
		Model:    model,
		Messages: make([]OllamaMessage, 0, len(req.Messages)),
	}

	for _, msg := range req.Messages {
		om := OllamaMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if msg.Role == llm.RoleTool {
			om.ToolName = msg.Name
		}
		for _, tc := range msg.ToolCalls {
			args, err := tc.Function.ArgumentsMap()
			if err != nil {
				return ollamaReq, llm.NewValidationError(fmt.Sprintf("invalid arguments for tool call %s: %v", tc.ID, err))
			}
			var call OllamaToolCall
			call.Function.Name = tc.Function.Name
			call.Function.Arguments = args
			om.ToolCalls = append(om.ToolCalls, call)
		}
		ollamaReq.Messages = append(ollamaReq.Messages, om)
	}

	if req.HasTools() && req.ToolChoice != llm.ToolChoiceNone {
		for _, tool := range req.Tools {
			ollamaReq.Tools = append(ollamaReq.Tools, OllamaTool{
				Type: tool.Type,
				Function: OllamaToolFunction{
					Name:        tool.Function.Name,
					Description: tool.Function.Description,
					Parameters:  tool.Function.Parameters,
				},
			})
		}
	}

	if req.Temperature != nil || req.MaxTokens != nil || req.TopP != nil {
		ollamaReq.Options = &OllamaOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
		}
	}

	return ollamaReq, nil
}

// Convert Ollama response to our format. Ollama does not assign tool call ids,
// so fresh ones are generated to keep the call/result pairing intact.
func (c *Client) convertFromOllamaResponse(resp OllamaResponse) *llm.ChatResponse {
	message := llm.Message{
		Role:    llm.RoleAssistant,
		Content: resp.Message.Content,
	}

	for _, tc := range resp.Message.ToolCalls {
		args, _ := json.Marshal(tc.Function.Arguments)
		message.AddToolCall(llm.ToolCall{
			ID:   "call_" + uuid.NewString(),
			Type: llm.ToolTypeFunction,
			Function: llm.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: string(args),
			},
		})
	}

	finishReason := llm.FinishReasonStop
	switch {
	case message.HasToolCalls():
		finishReason = llm.FinishReasonToolCalls
	case resp.DoneReason == "length" || !resp.Done:
		finishReason = llm.FinishReasonLength
	}

	return &llm.ChatResponse{
		ID:    "ollama-" + uuid.NewString(),
		Model: resp.Model,
		Choices: []llm.Choice{{
			Index:        0,
			Message:      message,
			FinishReason: finishReason,
		}},
		Usage: llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}
}

// Convert Ollama error to our standardized format
func (c *Client) convertOllamaError(body []byte, statusCode int) *llm.Error {
	var ollamaErr OllamaError
	if err := json.Unmarshal(body, &ollamaErr); err == nil && ollamaErr.Error != "" {
		return &llm.Error{
			Code:       fmt.Sprintf("ollama_%d", statusCode),
			Message:    ollamaErr.Error,
			Type:       "api_error",
			StatusCode: statusCode,
		}
	}

	return &llm.Error{
		Code:       "ollama_error",
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, string(body)),
		Type:       "api_error",
		StatusCode: statusCode,
	}
}
