package tools

import "github.com/inercia/statesqa/pkg/llm"

// Placeholder is the phrase the model is told to use for missing values
const Placeholder = "not available"

// DefaultSystemPrompt instructs the model how to use the tools and report gaps
var DefaultSystemPrompt = llm.NewPromptTemplate(`You answer questions about the COVID-19 history of US states.
Use the available tools to look up figures for a state on a date. States are given by their two-letter abbreviation and dates use the M/D/YYYY format without zero padding.
Only report figures returned by the tools. When a tool reports that no data is available, say "{{ .Placeholder }}" for that value.`)

// RenderSystemPrompt renders tmpl with the placeholder phrase
func RenderSystemPrompt(tmpl llm.PromptTemplate) (string, error) {
	return tmpl.Render(map[string]any{"Placeholder": Placeholder})
}
