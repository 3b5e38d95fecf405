package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/inercia/statesqa/pkg/llm"
)

// safeIntToInt32 safely converts int to int32
func safeIntToInt32(val int) int32 {
	if val > 2147483647 {
		return 2147483647
	}
	if val < -2147483648 {
		return -2147483648
	}
	return int32(val)
}

// modelCapabilities defines the capabilities for a model pattern
type modelCapabilities struct {
	pattern       *regexp.Regexp
	maxTokens     int
	supportsTools bool
}

// modelCapabilitiesList defines capabilities for different Gemini models.
// Models are matched in order, first match wins.
var modelCapabilitiesList = []modelCapabilities{
	{pattern: regexp.MustCompile(`gemini-1\.5-pro`), maxTokens: 2000000, supportsTools: true},
	{pattern: regexp.MustCompile(`gemini-(1\.5|2\.\d)-flash`), maxTokens: 1000000, supportsTools: true},
	{pattern: regexp.MustCompile(`gemini-2\.\d-pro`), maxTokens: 1000000, supportsTools: true},
}

type Client struct {
	model    string
	provider string
	genai    *genai.Client

	// Health check caching
	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient creates a new Gemini client using the official Google Gen AI library.
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, llm.NewMissingAPIKeyError("Gemini")
	}
	if config.Model == "" {
		config.Model = llm.DefaultGeminiModel
	}

	genaiConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		genaiConfig.HTTPOptions.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		genaiConfig.HTTPOptions.Timeout = &config.Timeout
	}

	genaiClient, err := genai.NewClient(context.Background(), genaiConfig)
	if err != nil {
		return nil, &llm.Error{
			Code:    "client_creation_error",
			Message: fmt.Sprintf("Failed to create genai client: %v", err),
			Type:    "internal_error",
		}
	}

	return &Client{
		model:    config.Model,
		provider: "gemini",
		genai:    genaiClient,
	}, nil
}

// ChatCompletion performs a non-streaming content generation request.
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	contents, system, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	config := buildConfig(req)
	config.SystemInstruction = system

	response, err := c.genai.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, c.convertError(err)
	}

	return c.convertResponse(model, response), nil
}

// buildConfig translates sampling parameters and tool declarations
func buildConfig(req llm.ChatRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		config.Temperature = req.Temperature
	}
	if req.TopP != nil {
		config.TopP = req.TopP
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = safeIntToInt32(*req.MaxTokens)
	}

	if !req.HasTools() {
		return config
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
	for _, tool := range req.Tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			Parameters:  convertSchema(tool.Function.Parameters),
		})
	}
	config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}

	mode := genai.FunctionCallingConfigModeAuto
	if req.ToolChoice == llm.ToolChoiceNone {
		mode = genai.FunctionCallingConfigModeNone
	}
	config.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
	}

	return config
}

// convertSchema maps a JSON schema document onto the genai schema subset
func convertSchema(raw any) *genai.Schema {
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	schema := &genai.Schema{}
	if t, ok := doc["type"].(string); ok {
		schema.Type = genai.Type(strings.ToUpper(t))
	}
	if d, ok := doc["description"].(string); ok {
		schema.Description = d
	}
	if props, ok := doc["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			schema.Properties[name] = convertSchema(prop)
		}
	}
	if items, ok := doc["items"]; ok {
		schema.Items = convertSchema(items)
	}
	schema.Required = stringList(doc["required"])
	schema.Enum = stringList(doc["enum"])

	return schema
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// convertMessages converts our messages to genai contents. System messages are
// returned separately as the system instruction; consecutive tool results are
// folded into a single user turn of function responses.
func convertMessages(messages []llm.Message) ([]*genai.Content, *genai.Content, error) {
	var contents []*genai.Content
	var system *genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.NewPartFromText(msg.Content))

		case llm.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     msg.Name,
				Response: toolResponse(msg.Content),
			}}
			if n := len(contents); n > 0 && contents[n-1].Role == genai.RoleUser && contents[n-1].Parts[0].FunctionResponse != nil {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})

		case llm.RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				content.Parts = append(content.Parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args, err := tc.Function.ArgumentsMap()
				if err != nil {
					return nil, nil, llm.NewValidationError(fmt.Sprintf("invalid arguments for tool call %s: %v", tc.ID, err))
				}
				content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Function.Name,
					Args: args,
				}})
			}
			if len(content.Parts) > 0 {
				contents = append(contents, content)
			}

		default:
			if msg.Content != "" {
				contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
			}
		}
	}

	if len(contents) == 0 {
		return nil, nil, llm.NewValidationError("no valid messages provided")
	}

	return contents, system, nil
}

// toolResponse wraps a tool result payload as the object genai expects
func toolResponse(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"result": content}
}

// convertResponse converts genai response to our internal format
func (c *Client) convertResponse(model string, resp *genai.GenerateContentResponse) *llm.ChatResponse {
	response := &llm.ChatResponse{
		ID:      "gemini-" + uuid.NewString(),
		Model:   model,
		Choices: []llm.Choice{},
	}

	if resp.UsageMetadata != nil {
		response.Usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	for i, candidate := range resp.Candidates {
		message := llm.Message{Role: llm.RoleAssistant}

		if candidate.Content != nil {
			var text strings.Builder
			for _, part := range candidate.Content.Parts {
				if part == nil {
					continue
				}
				if part.FunctionCall != nil {
					id := part.FunctionCall.ID
					if id == "" {
						id = "call_" + uuid.NewString()
					}
					args, _ := json.Marshal(part.FunctionCall.Args)
					message.AddToolCall(llm.ToolCall{
						ID:   id,
						Type: llm.ToolTypeFunction,
						Function: llm.ToolCallFunction{
							Name:      part.FunctionCall.Name,
							Arguments: string(args),
						},
					})
					continue
				}
				text.WriteString(part.Text)
			}
			message.Content = text.String()
		}

		finishReason := llm.FinishReasonStop
		switch {
		case message.HasToolCalls():
			finishReason = llm.FinishReasonToolCalls
		case candidate.FinishReason == genai.FinishReasonMaxTokens:
			finishReason = llm.FinishReasonLength
		case strings.Contains(string(candidate.FinishReason), "SAFETY"):
			finishReason = "content_filter"
		}

		response.Choices = append(response.Choices, llm.Choice{
			Index:        i,
			Message:      message,
			FinishReason: finishReason,
		})
	}

	return response
}

// convertError converts genai errors to our internal error format
func (c *Client) convertError(err error) *llm.Error {
	if err == nil {
		return nil
	}

	if ourErr, ok := err.(*llm.Error); ok {
		return ourErr
	}

	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "API key") ||
		strings.Contains(errMsg, "authentication") ||
		strings.Contains(errMsg, "unauthorized") ||
		strings.Contains(errMsg, "401"):
		return llm.NewProviderError(401, errMsg, "")
	case strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "429"):
		return llm.NewProviderError(429, errMsg, "")
	case strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "403"):
		return &llm.Error{
			Code:       "quota_error",
			Message:    errMsg,
			Type:       "quota_error",
			StatusCode: 403,
		}
	}

	return &llm.Error{
		Code:    "api_error",
		Message: errMsg,
		Type:    "api_error",
	}
}

// GetRemote returns information about the remote client
func (c *Client) GetRemote() llm.ClientRemoteInfo {
	info := llm.ClientRemoteInfo{
		Name: "gemini",
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

// performHealthCheck performs a one-token generation against the configured model
func (c *Client) performHealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	config := &genai.GenerateContentConfig{MaxOutputTokens: 1}
	_, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text("test"), config)
	return err == nil
}

func (c *Client) GetModelInfo() llm.ModelInfo {
	caps := modelCapabilities{
		maxTokens:     30720,
		supportsTools: true,
	}

	for _, modelCaps := range modelCapabilitiesList {
		if modelCaps.pattern.MatchString(c.model) {
			caps = modelCaps
			break
		}
	}

	return llm.ModelInfo{
		Name:          c.model,
		Provider:      c.provider,
		MaxTokens:     caps.maxTokens,
		SupportsTools: caps.supportsTools,
	}
}

func (c *Client) Close() error {
	// The genai client doesn't provide a Close method
	return nil
}
