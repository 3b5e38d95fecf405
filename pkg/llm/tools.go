// Tool and tool call types and functionality
package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ToolTypeFunction is the only tool type supported by providers
const ToolTypeFunction = "function"

// ToolChoice controls whether and how the model may select tools
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide whether to call tools
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceNone forbids tool calls
	ToolChoiceNone ToolChoice = "none"
)

// Tool represents a function tool that can be called by the LLM
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction describes the function behind a tool
type ToolFunction struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters"`
}

// NewFunctionTool creates a function tool with the given JSON schema parameters
func NewFunctionTool(name, description string, parameters interface{}) Tool {
	return Tool{
		Type: ToolTypeFunction,
		Function: ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// ToolCall represents a tool call made by the LLM
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction represents the function call details
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NewToolCall creates a function tool call, marshaling args into the arguments payload
func NewToolCall(id, name string, args any) (ToolCall, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return ToolCall{}, fmt.Errorf("failed to marshal arguments for %s: %w", name, err)
	}
	return ToolCall{
		ID:   id,
		Type: ToolTypeFunction,
		Function: ToolCallFunction{
			Name:      name,
			Arguments: string(payload),
		},
	}, nil
}

// DecodeArguments strictly decodes the JSON arguments payload into v.
// The payload must be a single JSON object; unknown fields are rejected.
func (f ToolCallFunction) DecodeArguments(v any) error {
	raw := strings.TrimSpace(f.Arguments)
	if raw == "" {
		return fmt.Errorf("empty arguments for %s", f.Name)
	}
	if !strings.HasPrefix(raw, "{") {
		return fmt.Errorf("arguments for %s are not a JSON object", f.Name)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", f.Name, err)
	}
	if dec.More() {
		return fmt.Errorf("trailing data after arguments for %s", f.Name)
	}
	return nil
}

// ArgumentsMap decodes the arguments payload as a generic mapping
func (f ToolCallFunction) ArgumentsMap() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(f.Arguments), &m); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", f.Name, err)
	}
	if m == nil {
		return nil, fmt.Errorf("arguments for %s are not a JSON object", f.Name)
	}
	return m, nil
}
