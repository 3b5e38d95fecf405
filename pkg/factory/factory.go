package factory

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inercia/statesqa/pkg/llm"
)

const DefaultProvider = "openai"

// Factory creates LLM clients based on configuration
type Factory struct {
	logger logrus.FieldLogger
}

// Option configures a Factory
type Option func(*Factory)

// WithLogger makes every created client log its requests and responses
func WithLogger(logger logrus.FieldLogger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// New creates a new client factory
func New(opts ...Option) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateClient creates an LLM client based on the configuration
func (f *Factory) CreateClient(config llm.ClientConfig) (llm.Client, error) {
	provider := config.Provider
	if provider == "" {
		provider = DefaultProvider
	}
	provider = strings.ToLower(provider)

	if config.Model == "" {
		return nil, &llm.Error{
			Code:    "missing_model",
			Message: "model is required",
			Type:    llm.ErrorCodeValidation,
		}
	}

	constructor, exists := GetProvider(provider)
	if !exists {
		return nil, &llm.Error{
			Code:    "unsupported_provider",
			Message: fmt.Sprintf("unsupported provider: %s (available: %s)", provider, strings.Join(ListProviders(), ", ")),
			Type:    llm.ErrorCodeValidation,
		}
	}

	client, err := constructor(config)
	if err != nil {
		return nil, err
	}

	if f.logger == nil {
		return client, nil
	}
	logger := f.logger.WithField("provider", provider)
	return llm.ClientWithMiddleware(client, []llm.Middleware{llm.NewLoggingMiddleware(logger)}), nil
}
