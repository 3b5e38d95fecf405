package tools

import (
	"context"
	"fmt"

	"github.com/inercia/statesqa/pkg/lookup"
)

// Handler runs one tool with validated arguments
type Handler func(ctx context.Context, args StateDateArgs) lookup.Result

// Registry maps tool identifiers to their handlers
type Registry struct {
	handlers map[ToolID]Handler
}

// NewRegistry creates a registry from explicit bindings
func NewRegistry(handlers map[ToolID]Handler) *Registry {
	r := &Registry{handlers: make(map[ToolID]Handler, len(handlers))}
	for id, h := range handlers {
		if _, ok := toolNames[id]; ok && h != nil {
			r.handlers[id] = h
		}
	}
	return r
}

// NewLookupRegistry binds every tool to its lookup on svc
func NewLookupRegistry(svc *lookup.Service) *Registry {
	return NewRegistry(map[ToolID]Handler{
		HospitalizedForStateOnDate: func(ctx context.Context, args StateDateArgs) lookup.Result {
			return svc.Hospitalized(ctx, args.StateAbbr, args.SpecificDate)
		},
		PositiveCasesForStateOnDate: func(ctx context.Context, args StateDateArgs) lookup.Result {
			return svc.PositiveCases(ctx, args.StateAbbr, args.SpecificDate)
		},
	})
}

// Resolve returns the tool identifier and handler for a function name
func (r *Registry) Resolve(name string) (ToolID, Handler, error) {
	id, err := ParseToolID(name)
	if err != nil {
		return 0, nil, err
	}
	h, ok := r.handlers[id]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %q has no handler", ErrUnknownTool, name)
	}
	return id, h, nil
}
