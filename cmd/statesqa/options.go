package main

import (
	"time"

	"github.com/jessevdk/go-flags"
)

// Options holds the flags shared by every command. The struct tags are
// interpreted by github.com/jessevdk/go-flags.
type Options struct {
	Config   string        `short:"f" long:"config" description:"config file (TOML or YAML)"`
	LogLevel string        `short:"l" long:"log-level" description:"log level, overrides log.level"`
	Provider string        `short:"p" long:"provider" description:"LLM provider, overrides llm.provider"`
	Model    string        `short:"m" long:"model" description:"model name, overrides llm.model"`
	DataPath string        `short:"d" long:"data" description:"directory holding the dataset, overrides data.path"`
	Timeout  time.Duration `short:"t" long:"timeout" description:"overall deadline for the command (0 uses orchestrator.timeout)"`

	Ask       AskCmd       `command:"ask" description:"Ask a question about a state on a date"`
	Load      LoadCmd      `command:"load" description:"Load the states-history CSV into the store"`
	Lookup    LookupCmd    `command:"lookup" description:"Run a single tool against the store, without a model"`
	Tools     ToolsCmd     `command:"tools" description:"Print the tool catalog offered to the model"`
	Providers ProvidersCmd `command:"providers" description:"List the registered LLM providers"`
}

// newParser wires the commands back to the shared options before parsing
func newParser(opts *Options) *flags.Parser {
	opts.Ask.opts = opts
	opts.Load.opts = opts
	opts.Lookup.opts = opts
	return flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
}
