package llm

import (
	"bytes"
	"strings"
	"text/template"
)

// PromptTemplate represents a prompt template.
// It can be rendered with specific inputs.
// It uses Go's text/template syntax for placeholders.
type PromptTemplate struct {
	Template string // The prompt template with placeholders
}

// NewPromptTemplate creates a new PromptTemplate with the given template string
func NewPromptTemplate(template string) PromptTemplate {
	return PromptTemplate{
		Template: template,
	}
}

// NewPromptTemplateRendered creates and renders a new PromptTemplate with the given inputs
func NewPromptTemplateRendered(template string, inputs map[string]any) (string, error) {
	return NewPromptTemplate(template).Render(inputs)
}

// IsEmpty reports whether the template has no content
func (pt PromptTemplate) IsEmpty() bool {
	return strings.TrimSpace(pt.Template) == ""
}

// Render fills the template with the provided inputs
func (pt PromptTemplate) Render(inputs map[string]any) (string, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(pt.Template)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, inputs); err != nil {
		return "", err
	}
	return buf.String(), nil
}
