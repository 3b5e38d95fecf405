package openai

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/inercia/statesqa/pkg/llm"
)

// ModelAttribute pairs a model name pattern with a value
type ModelAttribute[T any] struct {
	Pattern *regexp.Regexp
	Value   T
}

var (
	// models able to answer with tool calls
	toolsSupport = []ModelAttribute[bool]{
		{regexp.MustCompile(`^gpt-4o(-mini)?$`), true},
		{regexp.MustCompile(`^gpt-4(-0613|-32k|-32k-0613)?$`), true},
		{regexp.MustCompile(`^gpt-4-turbo(-preview|-\d{4}-\d{2}-\d{2})?$`), true},
		{regexp.MustCompile(`^gpt-3\.5-turbo(-16k|-\d{4}-\d{2}-\d{2})?$`), true},
		{regexp.MustCompile(`^gpt-35-turbo(-16k)?$`), true}, // Azure deployment names
		{regexp.MustCompile(`(?i).*gpt.*`), true},
		{regexp.MustCompile(`(?i).*oss.*`), true},
		{regexp.MustCompile(`.*`), false},
	}

	contextLength = []ModelAttribute[int]{
		{regexp.MustCompile(`^gpt-4o(-mini)?$`), 128000},
		{regexp.MustCompile(`^gpt-4-turbo(-preview|-\d{4}-\d{2}-\d{2})?$`), 128000},
		{regexp.MustCompile(`^gpt-4-32k(-0613)?$`), 32768},
		{regexp.MustCompile(`^gpt-4(-0613)?$`), 8192},
		{regexp.MustCompile(`^gpt-3\.?5-turbo-16k(-\d{4}-\d{2}-\d{2})?$`), 16384},
		{regexp.MustCompile(`^gpt-3\.?5-turbo(-\d{4}-\d{2}-\d{2})?$`), 4096},
		{regexp.MustCompile(`.*`), 4096},
	}
)

// getModelAttribute returns the value of the first pattern matching model
func getModelAttribute[T any](model string, attributes []ModelAttribute[T]) T {
	for _, attr := range attributes {
		if attr.Pattern.MatchString(model) {
			return attr.Value
		}
	}
	var zero T
	return zero
}

// Client serves both api.openai.com and Azure OpenAI deployments
type Client struct {
	client   *openai.Client
	model    string
	provider string
	baseURL  string
	azure    bool

	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient creates a new OpenAI client. When the azure_endpoint extra is
// set the client talks to that Azure OpenAI resource, using the model name
// as deployment name.
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, llm.NewMissingAPIKeyError("OpenAI")
	}

	var clientConfig openai.ClientConfig
	azureEndpoint := config.GetExtra(llm.ExtraAzureEndpoint, "")
	if azureEndpoint != "" {
		clientConfig = openai.DefaultAzureConfig(config.APIKey, azureEndpoint)
		clientConfig.APIVersion = config.GetExtra(llm.ExtraAPIVersion, llm.DefaultAzureAPIVersion)
	} else {
		clientConfig = openai.DefaultConfig(config.APIKey)
		if config.BaseURL != "" {
			clientConfig.BaseURL = config.BaseURL
		}
	}

	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	provider := "openai"
	if azureEndpoint != "" {
		provider = "azure-openai"
	}

	return &Client{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    config.Model,
		provider: provider,
		baseURL:  config.BaseURL,
		azure:    azureEndpoint != "",
	}, nil
}

func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	openaiReq := c.convertRequest(req)

	resp, err := c.client.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		return nil, c.convertError(err)
	}

	return c.convertResponse(resp), nil
}

func (c *Client) GetRemote() llm.ClientRemoteInfo {
	info := llm.ClientRemoteInfo{
		Name: c.provider,
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
	return llm.ModelInfo{
		Name:          c.model,
		Provider:      c.provider,
		MaxTokens:     getModelAttribute(c.model, contextLength),
		SupportsTools: c.supportsTools(c.model),
	}
}

func (c *Client) Close() error {
	return nil
}

func (c *Client) convertRequest(req llm.ChatRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: c.convertMessages(req.Messages),
	}

	if req.Temperature != nil {
		openaiReq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		openaiReq.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		openaiReq.TopP = *req.TopP
	}

	for _, tool := range req.Tools {
		openaiReq.Tools = append(openaiReq.Tools, openai.Tool{
			Type: openai.ToolType(tool.Type),
			Function: &openai.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}

	// tool_choice is only meaningful when tools are offered
	if len(openaiReq.Tools) > 0 && req.ToolChoice != "" {
		openaiReq.ToolChoice = string(req.ToolChoice)
	}

	return openaiReq
}

func (c *Client) convertMessages(messages []llm.Message) []openai.ChatCompletionMessage {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		openaiMsg := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}

		for _, tc := range msg.ToolCalls {
			openaiMsg.ToolCalls = append(openaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolType(tc.Type),
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}

		// the API rejects empty content on assistant messages that only carry tool calls
		if strings.TrimSpace(openaiMsg.Content) == "" {
			openaiMsg.Content = " "
		}

		openaiMessages = append(openaiMessages, openaiMsg)
	}

	return openaiMessages
}

func (c *Client) convertResponse(resp openai.ChatCompletionResponse) *llm.ChatResponse {
	chatResp := &llm.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	for _, choice := range resp.Choices {
		chatResp.Choices = append(chatResp.Choices, llm.Choice{
			Index:        choice.Index,
			Message:      c.convertMessage(choice.Message),
			FinishReason: string(choice.FinishReason),
		})
	}

	return chatResp
}

func (c *Client) convertMessage(msg openai.ChatCompletionMessage) llm.Message {
	ourMsg := llm.Message{
		Role:       llm.MessageRole(msg.Role),
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
	}

	for _, tc := range msg.ToolCalls {
		ourMsg.ToolCalls = append(ourMsg.ToolCalls, llm.ToolCall{
			ID:   tc.ID,
			Type: string(tc.Type),
			Function: llm.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return ourMsg
}

func (c *Client) convertError(err error) *llm.Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		converted := llm.NewProviderError(apiErr.HTTPStatusCode, apiErr.Message, apiErr.Type)
		if codeStr, ok := apiErr.Code.(string); ok && codeStr != "" {
			converted.Code = codeStr
		}
		return converted
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llm.NewProviderError(reqErr.HTTPStatusCode, reqErr.Error(), "")
	}

	return &llm.Error{
		Code:    "unknown_error",
		Message: err.Error(),
		Type:    "api_error",
	}
}

func (c *Client) supportsTools(model string) bool {
	// Azure deployments and custom endpoints use free-form names
	if c.azure || (c.baseURL != "" && c.baseURL != "https://api.openai.com/v1") {
		return getModelAttribute(model, toolsSupport)
	}

	// the catch-all gpt and oss patterns only apply to custom endpoints
	for _, attr := range toolsSupport {
		pattern := attr.Pattern.String()
		if strings.Contains(pattern, "(?i).*gpt.*") || strings.Contains(pattern, "(?i).*oss.*") {
			continue
		}
		if attr.Pattern.MatchString(model) {
			return attr.Value
		}
	}

	return false
}
