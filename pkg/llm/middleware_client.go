package llm

import (
	"context"
	"fmt"
)

// EnhancedClient runs every chat completion of the wrapped client through a
// MiddlewareChain. Requests pass the chain in order, responses in reverse.
type EnhancedClient struct {
	client Client
	chain  *MiddlewareChain
}

func NewEnhancedClient(client Client, chain []Middleware) *EnhancedClient {
	return &EnhancedClient{
		client: client,
		chain:  NewMiddlewareChain(chain),
	}
}

// ChatCompletion returns the error of the wrapped client unchanged, after the
// chain has seen it
func (e *EnhancedClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	processedReq, err := e.chain.ProcessRequest(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("middleware request processing failed: %w", err)
	}

	resp, err := e.client.ChatCompletion(ctx, *processedReq)

	processedResp, _ := e.chain.ProcessResponse(ctx, processedReq, resp, err)

	return processedResp, err
}

func (e *EnhancedClient) GetRemote() ClientRemoteInfo {
	return e.client.GetRemote()
}

func (e *EnhancedClient) GetModelInfo() ModelInfo {
	return e.client.GetModelInfo()
}

func (e *EnhancedClient) Close() error {
	return e.client.Close()
}

func (e *EnhancedClient) AddMiddleware(middleware Middleware) {
	e.chain.AddMiddleware(middleware)
}

// RemoveMiddleware reports whether a middleware called name was removed
func (e *EnhancedClient) RemoveMiddleware(name string) bool {
	return e.chain.RemoveMiddleware(name)
}

func (e *EnhancedClient) GetMiddlewareNames() []string {
	return e.chain.GetMiddlewareNames()
}

// ClientWithMiddleware appends chain to client when it is already an
// EnhancedClient, and wraps it otherwise
func ClientWithMiddleware(client Client, chain []Middleware) Client {
	if enhancedClient, ok := client.(*EnhancedClient); ok {
		for _, middleware := range chain {
			enhancedClient.AddMiddleware(middleware)
		}
		return enhancedClient
	}

	return NewEnhancedClient(client, chain)
}
