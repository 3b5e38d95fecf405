// Core request and response types
package llm

// Finish reasons reported by providers
const (
	FinishReasonStop      = "stop"
	FinishReasonLength    = "length"
	FinishReasonToolCalls = "tool_calls"
)

// ChatRequest represents a chat completion request (provider-agnostic)
type ChatRequest struct {
	Model       string     `json:"model"`
	Messages    []Message  `json:"messages"`
	Tools       []Tool     `json:"tools,omitempty"`
	ToolChoice  ToolChoice `json:"tool_choice,omitempty"`
	Temperature *float32   `json:"temperature,omitempty"`
	MaxTokens   *int       `json:"max_tokens,omitempty"`
	TopP        *float32   `json:"top_p,omitempty"`
}

// HasTools reports whether the request offers any tool to the model
func (r ChatRequest) HasTools() bool {
	return len(r.Tools) > 0
}

// ChatResponse represents a chat completion response (provider-agnostic)
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage,omitempty"`
}

// Choice represents a single response choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the sum of two usages
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// WantsToolExecution checks if this choice indicates the LLM wants to execute tools
func (c Choice) WantsToolExecution() bool {
	return c.Message.HasToolCalls()
}

// FirstChoice returns the first choice of the response, if any
func (r ChatResponse) FirstChoice() (Choice, bool) {
	if len(r.Choices) == 0 {
		return Choice{}, false
	}
	return r.Choices[0], true
}

// GetToolCalls returns all tool calls from all choices in the response
func (r ChatResponse) GetToolCalls() []ToolCall {
	var allToolCalls []ToolCall
	for _, choice := range r.Choices {
		allToolCalls = append(allToolCalls, choice.Message.ToolCalls...)
	}
	return allToolCalls
}

// DeepCopy creates a deep copy of the ChatResponse, including all choices
func (r ChatResponse) DeepCopy() ChatResponse {
	copy := ChatResponse{
		ID:    r.ID,
		Model: r.Model,
		Usage: r.Usage,
	}

	if len(r.Choices) > 0 {
		copy.Choices = make([]Choice, 0, len(r.Choices))
		for _, choice := range r.Choices {
			copy.Choices = append(copy.Choices, Choice{
				Index:        choice.Index,
				Message:      choice.Message.DeepCopy(),
				FinishReason: choice.FinishReason,
			})
		}
	}

	return copy
}
