// Package llm provides the provider-neutral abstractions used to talk to
// Large Language Models that support function calling.
//
// This package defines the core interfaces that all LLM providers must implement,
// along with the request, response, message and tool types exchanged with them.
//
// The main components include:
//
// - Client interface: Core LLM client functionality
// - Message types: Role-tagged text messages carrying tool calls and tool results
// - Tool system: Function descriptors, tool calls and argument decoding
// - Configuration: Provider-agnostic configuration
// - Error handling: Standardized error types
// - Middleware: Request/response interception (logging)
//
// Provider implementations are located in separate packages under /pkg/providers/
// to maintain clean separation of concerns and avoid import cycles.
package llm
