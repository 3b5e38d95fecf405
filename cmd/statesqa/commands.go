package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inercia/statesqa/pkg/factory"
	"github.com/inercia/statesqa/pkg/lookup"
	"github.com/inercia/statesqa/pkg/tools"
)

func stdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

// LoadCmd (re)creates the table from the CSV dataset
type LoadCmd struct {
	opts *Options
	out  io.Writer
}

func (c *LoadCmd) Execute(_ []string) error {
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
	stats, err := a.loadDataset(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout(c.out), "loaded %d rows (%d columns) into %s\n", stats.Rows, stats.Columns, a.cfg.Store.TableName())
	return nil
}

// LookupCmd calls one tool directly, printing the content the model would receive
type LookupCmd struct {
	Tool  string `long:"tool" description:"tool name" default:"get_hospitalized_for_state_on_date"`
	State string `short:"s" long:"state" description:"state abbreviation" required:"true"`
	Date  string `long:"date" description:"date in M/D/YYYY format" required:"true"`

	opts *Options
	out  io.Writer
}

func (c *LookupCmd) Execute(_ []string) error {
	args := tools.StateDateArgs{StateAbbr: c.State, SpecificDate: c.Date}
	if err := args.Validate(); err != nil {
		return err
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
	if err := a.ensureDataset(ctx, false); err != nil {
		return err
	}

	res, err := runTool(ctx, tools.NewLookupRegistry(a.lookupService()), c.Tool, args)
	if err != nil {
		return err
	}
	if res.Duplicates {
		a.logger.Warn("more than one row matched")
	}
	fmt.Fprintln(stdout(c.out), tools.Render(res))
	return nil
}

func runTool(ctx context.Context, registry *tools.Registry, name string, args tools.StateDateArgs) (lookup.Result, error) {
	_, handler, err := registry.Resolve(name)
	if err != nil {
		return lookup.Result{}, err
	}
	return handler(ctx, args), nil
}

// ToolsCmd prints the catalog as JSON, or just the names
type ToolsCmd struct {
	Names bool `short:"n" long:"names" description:"print tool names only"`

	out io.Writer
}

func (c *ToolsCmd) Execute(_ []string) error {
	catalog, err := tools.NewCatalog()
	if err != nil {
		return err
	}
	out := stdout(c.out)

	if c.Names {
		for _, d := range catalog.Descriptors() {
			fmt.Fprintln(out, d.Name)
		}
		return nil
	}

	data, err := json.MarshalIndent(catalog.Tools(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// ProvidersCmd lists the providers the factory can create
type ProvidersCmd struct {
	out io.Writer
}

func (c *ProvidersCmd) Execute(_ []string) error {
	fmt.Fprintln(stdout(c.out), strings.Join(factory.ListProviders(), "\n"))
	return nil
}
