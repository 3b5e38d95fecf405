package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"github.com/inercia/statesqa/pkg/llm"
)

const (
	defaultRegion    = "us-east-1"
	anthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens = 1000
)

// Client implements the llm.Client interface for AWS Bedrock. Only Anthropic
// Claude 3 models are supported, since they are the Bedrock family with
// native tool use.
type Client struct {
	bedrockClient        *bedrock.Client
	bedrockRuntimeClient *bedrockruntime.Client
	model                string
	region               string
	provider             string

	// Health check caching
	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient creates a new AWS Bedrock client
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.Model == "" {
		config.Model = llm.DefaultBedrockModel
	}
	region := config.GetExtra(llm.ExtraRegion, defaultRegion)

	// Credentials come from the default AWS chain
	awsConfig, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, &llm.Error{
			Code:    "aws_config_error",
			Message: fmt.Sprintf("Failed to load AWS configuration: %v", err),
			Type:    llm.ErrorCodeAuthentication,
		}
	}

	bedrockClient := bedrock.NewFromConfig(awsConfig, func(o *bedrock.Options) {
		if endpoint := config.GetExtra("bedrock_endpoint", ""); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	bedrockRuntimeClient := bedrockruntime.NewFromConfig(awsConfig, func(o *bedrockruntime.Options) {
		if endpoint := config.GetExtra("bedrock_runtime_endpoint", config.BaseURL); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &Client{
		bedrockClient:        bedrockClient,
		bedrockRuntimeClient: bedrockRuntimeClient,
		model:                config.Model,
		region:               region,
		provider:             "bedrock",
	}, nil
}

// ChatCompletion performs a chat completion request
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	payload, err := convertRequest(req)
	if err != nil {
		return nil, err
	}

	response, err := c.bedrockRuntimeClient.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, convertError(err)
	}

	return convertResponse(model, response.Body)
}

// GetRemote returns information about the remote client
func (c *Client) GetRemote() llm.ClientRemoteInfo {
	info := llm.ClientRemoteInfo{
		Name: "bedrock",
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

// performHealthCheck lists foundation models through the control plane
func (c *Client) performHealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := c.bedrockClient.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	return err == nil
}

// GetModelInfo returns information about the model being used
func (c *Client) GetModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:          c.model,
		Provider:      c.provider,
		MaxTokens:     maxTokensForModel(c.model),
		SupportsTools: supportsTools(c.model),
	}
}

// Close cleans up any resources used by the client
func (c *Client) Close() error {
	// AWS SDK clients don't require explicit cleanup
	return nil
}

// Anthropic messages API body, as accepted by InvokeModel
type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
	Tools            []claudeTool    `json:"tools,omitempty"`
	ToolChoice       *claudeChoice   `json:"tool_choice,omitempty"`
	Temperature      *float32        `json:"temperature,omitempty"`
	TopP             *float32        `json:"top_p,omitempty"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type claudeTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema"`
}

type claudeChoice struct {
	Type string `json:"type"`
}

type claudeResponse struct {
	ID         string        `json:"id"`
	Model      string        `json:"model"`
	Content    []claudeBlock `json:"content"`
	StopReason string        `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// convertRequest builds the Claude messages body. System messages are joined
// into the system field and consecutive messages of the same role are merged,
// as Claude requires strictly alternating roles.
//
// Claude rejects tool_use and tool_result blocks in a request that declares
// no tools, so when none are offered the tool exchange is replayed as text.
func convertRequest(req llm.ChatRequest) ([]byte, error) {
	claudeReq := claudeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        defaultMaxTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
	}
	if req.MaxTokens != nil {
		claudeReq.MaxTokens = *req.MaxTokens
	}

	offerTools := req.HasTools() && req.ToolChoice != llm.ToolChoiceNone

	var system []string
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)

		case llm.RoleTool:
			if offerTools {
				claudeReq.append("user", claudeBlock{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: msg.Content})
				continue
			}
			claudeReq.append("user", claudeBlock{
				Type: "text",
				Text: fmt.Sprintf("Result of %s (%s): %s", msg.Name, msg.ToolCallID, msg.Content),
			})

		case llm.RoleAssistant:
			var blocks []claudeBlock
			if msg.Content != "" {
				blocks = append(blocks, claudeBlock{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				input, err := toolInput(tc)
				if err != nil {
					return nil, err
				}
				if offerTools {
					blocks = append(blocks, claudeBlock{Type: "tool_use", ID: tc.ID, Name: tc.Function.Name, Input: input})
					continue
				}
				blocks = append(blocks, claudeBlock{
					Type: "text",
					Text: fmt.Sprintf("Called %s (%s) with %s", tc.Function.Name, tc.ID, input),
				})
			}
			claudeReq.append("assistant", blocks...)

		default:
			claudeReq.append("user", claudeBlock{Type: "text", Text: msg.Content})
		}
	}
	claudeReq.System = strings.TrimSpace(strings.Join(system, "\n"))

	if len(claudeReq.Messages) == 0 {
		return nil, llm.NewValidationError("no valid messages provided")
	}

	if offerTools {
		for _, tool := range req.Tools {
			schema := tool.Function.Parameters
			if schema == nil {
				schema = map[string]any{"type": "object"}
			}
			claudeReq.Tools = append(claudeReq.Tools, claudeTool{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				InputSchema: schema,
			})
		}
		claudeReq.ToolChoice = &claudeChoice{Type: "auto"}
	}

	return json.Marshal(claudeReq)
}

// append adds blocks to the conversation, merging them into the last
// message when it has the same role
func (r *claudeRequest) append(role string, blocks ...claudeBlock) {
	if len(blocks) == 0 {
		return
	}
	if n := len(r.Messages); n > 0 && r.Messages[n-1].Role == role {
		r.Messages[n-1].Content = append(r.Messages[n-1].Content, blocks...)
		return
	}
	r.Messages = append(r.Messages, claudeMessage{Role: role, Content: blocks})
}

// toolInput returns the tool call arguments as a JSON object, never empty
func toolInput(tc llm.ToolCall) (json.RawMessage, error) {
	args, err := tc.Function.ArgumentsMap()
	if err != nil {
		return nil, llm.NewValidationError(fmt.Sprintf("invalid arguments for tool call %s: %v", tc.ID, err))
	}
	if args == nil {
		args = map[string]any{}
	}
	input, err := json.Marshal(args)
	if err != nil {
		return nil, llm.NewValidationError(fmt.Sprintf("invalid arguments for tool call %s: %v", tc.ID, err))
	}
	return input, nil
}

// convertResponse converts a Claude messages response body
func convertResponse(model string, body []byte) (*llm.ChatResponse, error) {
	var claudeResp claudeResponse
	if err := json.Unmarshal(body, &claudeResp); err != nil {
		return nil, &llm.Error{
			Code:    "parse_error",
			Message: fmt.Sprintf("Failed to parse response: %v", err),
			Type:    "client_error",
		}
	}

	message := llm.Message{Role: llm.RoleAssistant}
	var text strings.Builder
	for _, block := range claudeResp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := string(block.Input)
			if args == "" || args == "null" {
				args = "{}"
			}
			message.AddToolCall(llm.ToolCall{
				ID:   block.ID,
				Type: llm.ToolTypeFunction,
				Function: llm.ToolCallFunction{
					Name:      block.Name,
					Arguments: args,
				},
			})
		}
	}
	message.Content = text.String()

	finishReason := llm.FinishReasonStop
	switch claudeResp.StopReason {
	case "tool_use":
		finishReason = llm.FinishReasonToolCalls
	case "max_tokens":
		finishReason = llm.FinishReasonLength
	}

	if claudeResp.Model != "" {
		model = claudeResp.Model
	}

	return &llm.ChatResponse{
		ID:    claudeResp.ID,
		Model: model,
		Choices: []llm.Choice{{
			Index:        0,
			Message:      message,
			FinishReason: finishReason,
		}},
		Usage: llm.Usage{
			PromptTokens:     claudeResp.Usage.InputTokens,
			CompletionTokens: claudeResp.Usage.OutputTokens,
			TotalTokens:      claudeResp.Usage.InputTokens + claudeResp.Usage.OutputTokens,
		},
	}, nil
}

// maxTokensForModel returns the context window for the given model
func maxTokensForModel(model string) int {
	if strings.Contains(model, "claude-3") {
		return 200000
	}
	return 100000
}

// supportsTools checks if the model supports tool use
func supportsTools(model string) bool {
	return strings.Contains(model, "claude-3")
}

// convertError converts AWS errors to our internal error format
func convertError(err error) *llm.Error {
	if err == nil {
		return nil
	}

	var ourErr *llm.Error
	if errors.As(err, &ourErr) {
		return ourErr
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException":
			return llm.NewProviderError(401, apiErr.ErrorMessage(), "")
		case "ThrottlingException", "ServiceQuotaExceededException":
			return llm.NewProviderError(429, apiErr.ErrorMessage(), "")
		case "ValidationException":
			return llm.NewProviderError(400, apiErr.ErrorMessage(), "")
		case "ResourceNotFoundException":
			return &llm.Error{
				Code:       "model_not_found",
				Message:    apiErr.ErrorMessage(),
				Type:       llm.ErrorCodeValidation,
				StatusCode: 404,
			}
		}
		return &llm.Error{
			Code:    apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
			Type:    "api_error",
		}
	}

	return &llm.Error{
		Code:    "api_error",
		Message: err.Error(),
		Type:    "api_error",
	}
}
