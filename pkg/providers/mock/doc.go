// Package mock provides a mock client implementation for testing statesqa.
//
// This package implements the llm.Client interface with scripted responses
// and errors, returned in the order they were queued.
//
// Features:
// - Pre-configured responses and errors
// - Tool call simulation for hospitalization and positive-case questions
// - Summaries of tool results when the script is exhausted
// - Latency simulation
// - Call logging and assertions
//
// The mock client is ideal for unit tests and for running the CLI without
// network access.
package mock
