package tools

import (
	"fmt"

	"github.com/inercia/statesqa/pkg/llm"
)

// Descriptor describes one tool as offered to the model
type Descriptor struct {
	ID          ToolID
	Name        string
	Description string
	Parameters  map[string]any
}

var descriptions = map[ToolID]string{
	HospitalizedForStateOnDate:  "Retrieves the number of hospitalized people for a specific state on a specific date.",
	PositiveCasesForStateOnDate: "Retrieves the number of positive cases for a specific state on a specific date.",
}

// Catalog is the ordered list of tools offered on every phase-1 request
type Catalog struct {
	descriptors []Descriptor
	tools       []llm.Tool
}

// NewCatalog builds the catalog, reflecting the parameter schema from StateDateArgs
func NewCatalog() (*Catalog, error) {
	schema, err := llm.SchemaFromStructAsMap(StateDateArgs{})
	if err != nil {
		return nil, fmt.Errorf("failed to build tool schema: %w", err)
	}

	c := &Catalog{}
	for _, id := range AllToolIDs {
		d := Descriptor{
			ID:          id,
			Name:        id.Name(),
			Description: descriptions[id],
			Parameters:  schema,
		}
		c.descriptors = append(c.descriptors, d)
		c.tools = append(c.tools, llm.NewFunctionTool(d.Name, d.Description, d.Parameters))
	}
	return c, nil
}

// MustNewCatalog is NewCatalog that panics on error
func MustNewCatalog() *Catalog {
	c, err := NewCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// Descriptors returns a copy of the catalog entries
func (c *Catalog) Descriptors() []Descriptor {
	return append([]Descriptor(nil), c.descriptors...)
}

// Tools returns the provider-neutral tool list
func (c *Catalog) Tools() []llm.Tool {
	return append([]llm.Tool(nil), c.tools...)
}

// Lookup returns the descriptor of the named tool
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	for _, d := range c.descriptors {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
