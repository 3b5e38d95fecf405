// Package tools defines the closed set of tools offered to the model: their
// identifiers, argument shape, JSON schemas and the handlers bound to them.
//
// The catalog is what the model sees; the registry is what the caller runs.
// Both are built once at startup and never mutated.
package tools
