// Package ollama provides an Ollama client implementation for statesqa.
//
// The client talks to a local Ollama instance over its /api/chat endpoint,
// on localhost:11434 by default. Tool definitions are forwarded for models
// that support function calling, and tool results are sent back with the
// "tool" role.
package ollama
