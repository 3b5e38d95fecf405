// Package gemini provides an LLM client for Google Gemini models.
//
// This provider implements the llm.Client interface for Google's Gemini API
// using google.golang.org/genai. Tool definitions become function
// declarations, assistant tool calls become function-call parts and tool
// results are sent back as function responses.
//
// Usage:
//
//	client, err := gemini.NewClient(llm.ClientConfig{
//	    Provider: "gemini",
//	    APIKey:   "your-api-key",
//	    Model:    "gemini-1.5-flash",
//	})
package gemini
