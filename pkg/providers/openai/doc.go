// Package openai provides an OpenAI client implementation for statesqa.
//
// This package implements the llm.Client interface for OpenAI's GPT models,
// both on the public OpenAI API and on Azure OpenAI deployments.
//
// Features:
// - Chat completions with function calling and tool results
// - Azure OpenAI endpoints and API versions
// - Custom OpenAI-compatible base URLs
//
// The client automatically handles provider-specific request/response
// transformations while maintaining compatibility with the common llm interfaces.
package openai
