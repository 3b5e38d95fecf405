package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inercia/statesqa/pkg/factory"
	"github.com/inercia/statesqa/pkg/orchestrator"
	"github.com/inercia/statesqa/pkg/tools"
)

// AskCmd runs one question through the model and prints the answer
type AskCmd struct {
	Question  string `short:"q" long:"question" description:"question to ask; positional arguments are used when empty"`
	Summary   bool   `short:"s" long:"summary" description:"add a digest of the tool results before the final request"`
	Reload    bool   `long:"reload" description:"reload the dataset before asking"`
	ShowTools bool   `long:"show-tools" description:"print every tool call and its result"`
	JSON      bool   `long:"json" description:"print the whole turn as JSON"`

	opts *Options
	out  io.Writer
}

func (c *AskCmd) Execute(args []string) error {
	question := c.Question
	if question == "" {
		question = strings.Join(args, " ")
	}
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("no question given")
	}

	a, err := c.opts.setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := c.opts.commandContext(a)
	defer cancel()

	if err := a.openStore(ctx); err != nil {
		return err
	}
	if err := a.ensureDataset(ctx, c.Reload); err != nil {
		return err
	}

	client, err := factory.New(factory.WithLogger(a.logger)).CreateClient(a.cfg.ClientConfig())
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	catalog, err := tools.NewCatalog()
	if err != nil {
		return err
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(a.logger),
		orchestrator.WithResultSummary(c.Summary || a.cfg.Orchestrator.ResultSummary),
	}
	if t := a.cfg.Orchestrator.Temperature; t != nil {
		opts = append(opts, orchestrator.WithTemperature(*t))
	}
	if n := a.cfg.Orchestrator.MaxTokens; n > 0 {
		opts = append(opts, orchestrator.WithMaxTokens(n))
	}

	orch := orchestrator.New(client, tools.NewLookupRegistry(a.lookupService()), catalog, opts...)
	turn, err := orch.Ask(ctx, question)
	if err != nil {
		return err
	}

	return c.print(turn)
}

func (c *AskCmd) print(turn *orchestrator.Turn) error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}

	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(newTurnView(turn))
	}

	if c.ShowTools {
		for _, run := range turn.Runs {
			if run.Skipped {
				fmt.Fprintf(out, "[skipped] %s (%s): %s\n", run.Name, run.CallID, run.Reason)
				continue
			}
			fmt.Fprintf(out, "[%s] %s(%s, %s) -> %s\n", run.Result.Status, run.Name,
				run.Args.StateAbbr, run.Args.SpecificDate, tools.Render(run.Result))
		}
	}
	fmt.Fprintln(out, turn.Answer)
	return nil
}

// turnView is the JSON shape of a turn
type turnView struct {
	ID       string        `json:"id"`
	Question string        `json:"question"`
	Answer   string        `json:"answer"`
	Tools    []toolRunView `json:"tools,omitempty"`
	Requests int           `json:"requests"`
	Tokens   int           `json:"total_tokens"`
}

type toolRunView struct {
	CallID  string          `json:"call_id"`
	Name    string          `json:"name"`
	Status  string          `json:"status,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Skipped string          `json:"skipped,omitempty"`
}

func newTurnView(turn *orchestrator.Turn) turnView {
	v := turnView{
		ID:       turn.ID.String(),
		Question: turn.Question,
		Answer:   turn.Answer,
		Requests: turn.Requests,
		Tokens:   turn.Usage.TotalTokens,
	}
	for _, run := range turn.Runs {
		rv := toolRunView{CallID: run.CallID, Name: run.Name}
		if run.Skipped {
			rv.Skipped = run.Reason
		} else {
			rv.Status = run.Result.Status.String()
			rv.Result = json.RawMessage(tools.Render(run.Result))
		}
		v.Tools = append(v.Tools, rv)
	}
	return v
}
