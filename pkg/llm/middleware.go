package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Middleware defines the interface for LLM middleware components
type Middleware interface {
	// Name returns the middleware name for identification
	Name() string

	// ProcessRequest processes the request before sending to LLM
	ProcessRequest(ctx context.Context, req *ChatRequest) (*ChatRequest, error)

	// ProcessResponse processes the response after receiving from LLM
	ProcessResponse(ctx context.Context, req *ChatRequest, resp *ChatResponse, err error) (*ChatResponse, error)
}

// MiddlewareChain manages a chain of LLM middleware
type MiddlewareChain struct {
	mu          sync.RWMutex
	middlewares []Middleware
}

// NewMiddlewareChain creates a new middleware chain
func NewMiddlewareChain(middlewares []Middleware) *MiddlewareChain {
	chain := &MiddlewareChain{}
	for _, middleware := range middlewares {
		chain.AddMiddleware(middleware)
	}
	return chain
}

// AddMiddleware adds a middleware to the chain
func (c *MiddlewareChain) AddMiddleware(middleware Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middlewares = append(c.middlewares, middleware)
}

// RemoveMiddleware removes a middleware by name
func (c *MiddlewareChain) RemoveMiddleware(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, middleware := range c.middlewares {
		if middleware.Name() == name {
			c.middlewares = append(c.middlewares[:i], c.middlewares[i+1:]...)
			return true
		}
	}
	return false
}

func (c *MiddlewareChain) snapshot() []Middleware {
	c.mu.RLock()
	defer c.mu.RUnlock()
	middlewares := make([]Middleware, len(c.middlewares))
	copy(middlewares, c.middlewares)
	return middlewares
}

// ProcessRequest processes request through the middleware chain
func (c *MiddlewareChain) ProcessRequest(ctx context.Context, req *ChatRequest) (*ChatRequest, error) {
	currentReq := req
	var err error

	for _, middleware := range c.snapshot() {
		currentReq, err = middleware.ProcessRequest(ctx, currentReq)
		if err != nil {
			return nil, fmt.Errorf("middleware %s failed: %w", middleware.Name(), err)
		}
	}

	return currentReq, nil
}

// ProcessResponse processes response through the middleware chain (in reverse order)
func (c *MiddlewareChain) ProcessResponse(ctx context.Context, req *ChatRequest, resp *ChatResponse, err error) (*ChatResponse, error) {
	middlewares := c.snapshot()
	currentResp := resp

	for i := len(middlewares) - 1; i >= 0; i-- {
		processedResp, processErr := middlewares[i].ProcessResponse(ctx, req, currentResp, err)
		if processErr != nil {
			// Continue with other middleware even if one fails
			continue
		}
		currentResp = processedResp
	}

	return currentResp, err
}

// GetMiddlewareNames returns the names of all middleware in the chain
func (c *MiddlewareChain) GetMiddlewareNames() []string {
	middlewares := c.snapshot()
	names := make([]string, len(middlewares))
	for i, middleware := range middlewares {
		names[i] = middleware.Name()
	}
	return names
}

/////////////////////////////////////////////////////////////////////////////////////////

// LoggingMiddleware logs every model request and its outcome
type LoggingMiddleware struct {
	logger logrus.FieldLogger
}

// NewLoggingMiddleware creates a middleware that logs through logger
func NewLoggingMiddleware(logger logrus.FieldLogger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// Name implements Middleware
func (m *LoggingMiddleware) Name() string { return "logging" }

// ProcessRequest implements Middleware
func (m *LoggingMiddleware) ProcessRequest(ctx context.Context, req *ChatRequest) (*ChatRequest, error) {
	m.logger.WithFields(logrus.Fields{
		"model":       req.Model,
		"messages":    len(req.Messages),
		"tools":       len(req.Tools),
		"tool_choice": string(req.ToolChoice),
	}).Debug("llm request")
	return req, nil
}

// ProcessResponse implements Middleware
func (m *LoggingMiddleware) ProcessResponse(ctx context.Context, req *ChatRequest, resp *ChatResponse, err error) (*ChatResponse, error) {
	entry := m.logger.WithField("model", req.Model)
	if err != nil {
		entry.WithError(err).Warn("llm request failed")
		return resp, nil
	}
	if resp == nil {
		return resp, nil
	}

	fields := logrus.Fields{
		"id":                resp.ID,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"tool_calls":        len(resp.GetToolCalls()),
	}
	if choice, ok := resp.FirstChoice(); ok {
		fields["finish_reason"] = choice.FinishReason
	}
	entry.WithFields(fields).Debug("llm response")
	return resp, nil
}
