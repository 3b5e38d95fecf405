// Package openrouter provides an OpenRouter client implementation for statesqa.
//
// OpenRouter exposes many upstream models behind an OpenAI-like API. This
// package implements llm.Client on top of github.com/revrost/go-openrouter,
// converting tool definitions, tool calls and tool results.
package openrouter
