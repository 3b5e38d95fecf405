// Package factory provides provider registration and client construction.
//
// Importing this package registers every bundled provider (openai, azure,
// openrouter, deepseek, gemini, ollama, bedrock and mock). Clients are
// created from an llm.ClientConfig:
//
//	f := factory.New(factory.WithLogger(logger))
//	client, err := f.CreateClient(llm.ClientConfig{
//	    Provider: "azure",
//	    Model:    "gpt-35-turbo",
//	    APIKey:   "your-api-key",
//	    Extra:    map[string]string{"azure_endpoint": "https://example.openai.azure.com"},
//	})
package factory
