// Configuration types
package llm

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultAzureModel      = "gpt-35-turbo"
	DefaultDeepSeekModel   = "deepseek-chat"
	DefaultOpenRouterModel = "openai/gpt-4o-mini"
	DefaultGeminiModel     = "gemini-1.5-flash"
	DefaultOllamaModel     = "gpt-oss:20b"
	DefaultBedrockModel    = "anthropic.claude-3-haiku-20240307-v1:0"
)

const DefaultOllamaBaseURL = "http://localhost:11434"

// DefaultAzureAPIVersion is the Azure OpenAI API version supporting tool calls
const DefaultAzureAPIVersion = "2024-05-01-preview"

const (
	DefaultTimeout       = 30 * time.Second
	DefaultOllamaTimeout = 60 * time.Second
)

// Keys recognized in ClientConfig.Extra
const (
	ExtraAzureEndpoint = "azure_endpoint"
	ExtraAPIVersion    = "api_version"
	ExtraRegion        = "region"
	ExtraSiteURL       = "site_url"
	ExtraAppName       = "app_name"
)

// ClientConfig holds configuration for creating LLM clients
type ClientConfig struct {
	Provider string            `json:"provider"` // openai, deepseek, openrouter, gemini, ollama, bedrock, mock
	Model    string            `json:"model"`
	APIKey   string            `json:"api_key,omitempty"`
	BaseURL  string            `json:"base_url,omitempty"`
	Timeout  time.Duration     `json:"timeout,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"` // Provider-specific configs
}

// GetExtra returns a provider-specific setting, or def when it is not set
func (c ClientConfig) GetExtra(key, def string) string {
	if v, ok := c.Extra[key]; ok && v != "" {
		return v
	}
	return def
}

// SetExtra sets a provider-specific setting
func (c *ClientConfig) SetExtra(key, value string) {
	if c.Extra == nil {
		c.Extra = make(map[string]string)
	}
	c.Extra[key] = value
}

// parseTimeoutFromEnv parses timeout from environment variable with fallback to default
func parseTimeoutFromEnv(envVar string, defaultTimeout time.Duration) time.Duration {
	if timeoutStr := os.Getenv(envVar); timeoutStr != "" {
		if timeoutSecs, err := strconv.Atoi(timeoutStr); err == nil && timeoutSecs > 0 {
			return time.Duration(timeoutSecs) * time.Second
		}
	}
	return defaultTimeout
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// GetLLMFromEnv picks a provider from well-known environment variables.
// Azure OpenAI wins over the public OpenAI API, followed by DeepSeek,
// OpenRouter, Gemini and finally a local Ollama.
func GetLLMFromEnv() ClientConfig {
	if endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT"); endpoint != "" {
		cfg := ClientConfig{
			Provider: "openai",
			Model:    envOr("AZURE_OPENAI_DEPLOYMENT", DefaultAzureModel),
			APIKey:   os.Getenv("AZURE_OPENAI_API_KEY"),
			Timeout:  parseTimeoutFromEnv("OPENAI_TIMEOUT", DefaultTimeout),
		}
		cfg.SetExtra(ExtraAzureEndpoint, endpoint)
		cfg.SetExtra(ExtraAPIVersion, envOr("AZURE_OPENAI_API_VERSION", DefaultAzureAPIVersion))
		return cfg
	}

	// Custom OpenAI-compatible endpoint
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		return ClientConfig{
			Provider: "openai",
			Model:    envOr("OPENAI_MODEL", DefaultOpenAIModel),
			APIKey:   envOr("OPENAI_API_KEY", "dummy"), // some endpoints don't require real keys
			BaseURL:  baseURL,
			Timeout:  parseTimeoutFromEnv("OPENAI_TIMEOUT", DefaultTimeout),
		}
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		return ClientConfig{
			Provider: "openai",
			Model:    envOr("OPENAI_MODEL", DefaultOpenAIModel),
			APIKey:   apiKey,
			Timeout:  parseTimeoutFromEnv("OPENAI_TIMEOUT", DefaultTimeout),
		}
	}

	if apiKey := os.Getenv("DEEPSEEK_API_KEY"); apiKey != "" {
		return ClientConfig{
			Provider: "deepseek",
			Model:    envOr("DEEPSEEK_MODEL", DefaultDeepSeekModel),
			APIKey:   apiKey,
			Timeout:  parseTimeoutFromEnv("DEEPSEEK_TIMEOUT", DefaultTimeout),
		}
	}

	if apiKey := os.Getenv("OPENROUTER_API_KEY"); apiKey != "" {
		return ClientConfig{
			Provider: "openrouter",
			Model:    envOr("OPENROUTER_MODEL", DefaultOpenRouterModel),
			APIKey:   apiKey,
			Timeout:  parseTimeoutFromEnv("OPENROUTER_TIMEOUT", DefaultTimeout),
		}
	}

	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		return ClientConfig{
			Provider: "gemini",
			Model:    envOr("GEMINI_MODEL", DefaultGeminiModel),
			APIKey:   apiKey,
			Timeout:  parseTimeoutFromEnv("GEMINI_TIMEOUT", DefaultTimeout),
		}
	}

	return ClientConfig{
		Provider: "ollama",
		Model:    envOr("OLLAMA_MODEL", DefaultOllamaModel),
		BaseURL:  envOr("OLLAMA_BASE_URL", DefaultOllamaBaseURL),
		Timeout:  parseTimeoutFromEnv("OLLAMA_TIMEOUT", DefaultOllamaTimeout),
	}
}
