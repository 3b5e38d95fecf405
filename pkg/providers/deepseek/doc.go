// Package deepseek provides an LLM client for DeepSeek models.
//
// This provider implements the llm.Client interface for DeepSeek's API,
// supporting chat completions with tool calling.
//
// The client registers itself with the provider registry through the
// factory package, making it available by the "deepseek" provider name.
//
// Usage:
//
//	config := llm.ClientConfig{
//	    Provider: "deepseek",
//	    APIKey:   "your-api-key",
//	    Model:    "deepseek-chat",
//	}
//	client, err := factory.New().CreateClient(config)
package deepseek
