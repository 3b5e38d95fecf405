package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"github.com/inercia/statesqa/pkg/llm"
	"github.com/inercia/statesqa/pkg/lookup"
	"github.com/inercia/statesqa/pkg/tools"
)

// State is the position of a turn in the protocol
type State int

const (
	StateAwaitingToolCalls State = iota
	StateAwaitingFinalAnswer
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingToolCalls:
		return "awaiting_tool_calls"
	case StateAwaitingFinalAnswer:
		return "awaiting_final_answer"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// ToolRun records what happened to one tool-call directive
type ToolRun struct {
	CallID   string
	Name     string
	Args     tools.StateDateArgs
	Result   lookup.Result
	Duration time.Duration

	// Skipped directives were not executed; Reason says why
	Skipped bool
	Reason  string
}

// Turn is one question-to-answer cycle
type Turn struct {
	ID       uuid.UUID
	Question string
	Answer   string
	State    State

	// Messages is the full conversation, in the order it was sent
	Messages []llm.Message
	Runs     []ToolRun

	// Results holds the last result per tool name
	Results map[string]lookup.Result

	// Requests counts model calls
	Requests int
	Usage    llm.Usage
}

func newTurn(question string) *Turn {
	return &Turn{
		ID:       uuid.New(),
		Question: question,
		State:    StateAwaitingToolCalls,
		Results:  make(map[string]lookup.Result),
	}
}

// Executed returns the runs that were not skipped
func (t *Turn) Executed() []ToolRun {
	var out []ToolRun
	for _, r := range t.Runs {
		if !r.Skipped {
			out = append(out, r)
		}
	}
	return out
}

// Skipped returns the runs that were skipped
func (t *Turn) Skipped() []ToolRun {
	var out []ToolRun
	for _, r := range t.Runs {
		if r.Skipped {
			out = append(out, r)
		}
	}
	return out
}
