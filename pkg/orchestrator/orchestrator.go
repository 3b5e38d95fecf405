package orchestrator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inercia/statesqa/pkg/llm"
	"github.com/inercia/statesqa/pkg/tools"
)

// Orchestrator runs questions through the two-phase tool-calling protocol
type Orchestrator struct {
	client   llm.Client
	registry *tools.Registry
	catalog  *tools.Catalog
	logger   logrus.FieldLogger

	systemPrompt  llm.PromptTemplate
	model         string
	temperature   *float32
	maxTokens     *int
	resultSummary bool
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSystemPrompt replaces tools.DefaultSystemPrompt. An empty template sends no system message.
func WithSystemPrompt(tmpl llm.PromptTemplate) Option {
	return func(o *Orchestrator) {
		o.systemPrompt = tmpl
	}
}

// WithModel overrides the model configured in the client
func WithModel(model string) Option {
	return func(o *Orchestrator) {
		o.model = model
	}
}

// WithTemperature sets the sampling temperature of both requests
func WithTemperature(t float32) Option {
	return func(o *Orchestrator) {
		o.temperature = &t
	}
}

// WithMaxTokens caps the completion length of both requests
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) {
		o.maxTokens = &n
	}
}

// WithResultSummary appends an assistant digest of the tool results, with
// placeholders for missing values, before the phase 2 request
func WithResultSummary(enabled bool) Option {
	return func(o *Orchestrator) {
		o.resultSummary = enabled
	}
}

// New creates an Orchestrator
func New(client llm.Client, registry *tools.Registry, catalog *tools.Catalog, opts ...Option) *Orchestrator {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	o := &Orchestrator{
		client:       client,
		registry:     registry,
		catalog:      catalog,
		logger:       discard,
		systemPrompt: tools.DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ask answers a single question. Tool failures never fail the turn; model
// failures return a *PhaseError.
func (o *Orchestrator) Ask(ctx context.Context, question string) (*Turn, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	turn := newTurn(question)
	log := o.logger.WithField("turn", turn.ID.String())

	if !o.systemPrompt.IsEmpty() {
		prompt, err := tools.RenderSystemPrompt(o.systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("failed to render system prompt: %w", err)
		}
		turn.Messages = append(turn.Messages, llm.NewTextMessage(llm.RoleSystem, prompt))
	}
	turn.Messages = append(turn.Messages, llm.NewTextMessage(llm.RoleUser, question))

	choice, err := o.complete(ctx, turn, Phase1)
	if err != nil {
		return nil, err
	}

	if !choice.WantsToolExecution() {
		log.Debug("no tool calls requested, answering directly")
		return o.finish(turn, choice.Message.Content), nil
	}

	turn.State = StateAwaitingFinalAnswer
	directives := choice.Message.ToolCalls
	log.WithField("tool_calls", len(directives)).Debug("executing tool calls")

	executed, results := o.runDirectives(ctx, log, turn, directives)

	// only executed directives are echoed, so every call has exactly one result
	turn.Messages = append(turn.Messages, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   choice.Message.Content,
		ToolCalls: executed,
	})
	turn.Messages = append(turn.Messages, results...)

	if o.resultSummary && len(executed) > 0 {
		turn.Messages = append(turn.Messages, llm.NewTextMessage(llm.RoleAssistant, tools.Summarize(turn.Results)))
	}

	if err := llm.ValidateConversation(turn.Messages); err != nil {
		return nil, &PhaseError{Phase: Phase2, Err: err}
	}

	choice, err = o.complete(ctx, turn, Phase2)
	if err != nil {
		return nil, err
	}

	return o.finish(turn, choice.Message.Content), nil
}

func (o *Orchestrator) finish(turn *Turn, answer string) *Turn {
	turn.Answer = answer
	turn.Messages = append(turn.Messages, llm.NewTextMessage(llm.RoleAssistant, answer))
	turn.State = StateDone
	return turn
}

// complete sends the conversation for the given phase. Only phase 1 offers tools.
func (o *Orchestrator) complete(ctx context.Context, turn *Turn, phase Phase) (llm.Choice, error) {
	req := llm.ChatRequest{
		Model:       o.model,
		Messages:    append([]llm.Message(nil), turn.Messages...),
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}
	if phase == Phase1 {
		req.Tools = o.catalog.Tools()
		req.ToolChoice = llm.ToolChoiceAuto
	}

	turn.Requests++
	resp, err := o.client.ChatCompletion(ctx, req)
	if err != nil {
		return llm.Choice{}, &PhaseError{Phase: phase, Err: err}
	}
	if resp == nil {
		return llm.Choice{}, &PhaseError{Phase: phase, Err: llm.NewEmptyResponseError(o.client.GetModelInfo().Provider)}
	}
	turn.Usage = turn.Usage.Add(resp.Usage)

	choice, ok := resp.FirstChoice()
	if !ok {
		return llm.Choice{}, &PhaseError{Phase: phase, Err: llm.NewEmptyResponseError(o.client.GetModelInfo().Provider)}
	}
	return choice, nil
}

// runDirectives executes the directives sequentially, in order. It returns the
// directives that ran and their tool messages, in matching order.
func (o *Orchestrator) runDirectives(ctx context.Context, log logrus.FieldLogger, turn *Turn, directives []llm.ToolCall) ([]llm.ToolCall, []llm.Message) {
	var executed []llm.ToolCall
	var results []llm.Message
	seen := make(map[string]bool, len(directives))

	for _, call := range directives {
		run := ToolRun{CallID: call.ID, Name: call.Function.Name}
		entry := log.WithFields(logrus.Fields{
			"tool":    call.Function.Name,
			"call_id": call.ID,
		})

		skip := func(reason error) {
			run.Skipped = true
			run.Reason = reason.Error()
			turn.Runs = append(turn.Runs, run)
			entry.WithError(reason).Warn("skipping tool call")
		}

		if call.ID == "" {
			skip(fmt.Errorf("tool call has no id"))
			continue
		}
		if seen[call.ID] {
			skip(fmt.Errorf("duplicate tool call id"))
			continue
		}

		_, handler, err := o.registry.Resolve(call.Function.Name)
		if err != nil {
			skip(err)
			continue
		}
		args, err := tools.ParseArgs(call.Function)
		if err != nil {
			skip(err)
			continue
		}

		start := time.Now()
		res := handler(ctx, args)
		run.Args = args
		run.Result = res
		run.Duration = time.Since(start)

		seen[call.ID] = true
		turn.Runs = append(turn.Runs, run)
		turn.Results[call.Function.Name] = res

		entry.WithFields(logrus.Fields{
			"status":   res.Status.String(),
			"duration": run.Duration,
		}).Info("tool executed")

		executed = append(executed, call)
		results = append(results, llm.NewToolResultMessage(call.ID, call.Function.Name, tools.Render(res)))
	}

	return executed, results
}
