package factory

import (
	"github.com/inercia/statesqa/pkg/llm"
	"github.com/inercia/statesqa/pkg/providers/bedrock"
	"github.com/inercia/statesqa/pkg/providers/deepseek"
	"github.com/inercia/statesqa/pkg/providers/gemini"
	"github.com/inercia/statesqa/pkg/providers/mock"
	"github.com/inercia/statesqa/pkg/providers/ollama"
	"github.com/inercia/statesqa/pkg/providers/openai"
	"github.com/inercia/statesqa/pkg/providers/openrouter"
)

func init() {
	// OpenAI and Azure OpenAI share a client; Azure is selected by the endpoint
	RegisterProvider("openai", func(config llm.ClientConfig) (llm.Client, error) {
		return openai.NewClient(config)
	})
	RegisterProvider("azure", func(config llm.ClientConfig) (llm.Client, error) {
		if config.GetExtra(llm.ExtraAzureEndpoint, "") == "" && config.BaseURL != "" {
			config.SetExtra(llm.ExtraAzureEndpoint, config.BaseURL)
		}
		return openai.NewClient(config)
	})

	RegisterProvider("openrouter", func(config llm.ClientConfig) (llm.Client, error) {
		return openrouter.NewClient(config)
	})

	RegisterProvider("deepseek", func(config llm.ClientConfig) (llm.Client, error) {
		return deepseek.NewClient(config)
	})

	RegisterProvider("gemini", func(config llm.ClientConfig) (llm.Client, error) {
		return gemini.NewClient(config)
	})

	RegisterProvider("ollama", func(config llm.ClientConfig) (llm.Client, error) {
		return ollama.NewClient(config)
	})

	RegisterProvider("bedrock", func(config llm.ClientConfig) (llm.Client, error) {
		return bedrock.NewClient(config)
	})

	// The mock provider answers offline, used by tests and dry runs
	RegisterProvider("mock", func(config llm.ClientConfig) (llm.Client, error) {
		return mock.NewClient(config.Model, "mock")
	})
}
