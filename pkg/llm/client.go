package llm

import (
	"context"
	"time"
)

// DefaultHealthCheckInterval is how long a provider reuses its last health check
const DefaultHealthCheckInterval = 5 * time.Minute

// ClientRemoteInfo describes the endpoint behind a Client
type ClientRemoteInfo struct {
	Name   string
	Status *ClientRemoteInfoStatus
}

type ClientRemoteInfoStatus struct {
	Healthy     *bool
	LastChecked *time.Time
}

// Client is a chat model able to answer with tool calls
type Client interface {
	// ChatCompletion returns an *Error for provider failures
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// GetRemote returns information about the remote endpoint
	GetRemote() ClientRemoteInfo

	GetModelInfo() ModelInfo

	// Close releases the provider connection
	Close() error
}
