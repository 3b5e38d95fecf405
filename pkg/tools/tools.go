package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inercia/statesqa/pkg/llm"
)

var (
	// ErrUnknownTool is returned for tool names outside the catalog
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned for arguments that do not fit StateDateArgs
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// ToolID identifies one of the tools offered to the model
type ToolID int

const (
	HospitalizedForStateOnDate ToolID = iota + 1
	PositiveCasesForStateOnDate
)

var toolNames = map[ToolID]string{
	HospitalizedForStateOnDate:  "get_hospitalized_for_state_on_date",
	PositiveCasesForStateOnDate: "get_positive_cases_for_state_on_date",
}

// AllToolIDs lists every tool in catalog order
var AllToolIDs = []ToolID{HospitalizedForStateOnDate, PositiveCasesForStateOnDate}

// Name returns the function name the model uses for the tool
func (id ToolID) Name() string {
	if name, ok := toolNames[id]; ok {
		return name
	}
	return fmt.Sprintf("tool(%d)", int(id))
}

func (id ToolID) String() string { return id.Name() }

// ParseToolID maps a function name back to its ToolID
func ParseToolID(name string) (ToolID, error) {
	for id, n := range toolNames {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// StateDateArgs is the argument shape shared by every tool
type StateDateArgs struct {
	StateAbbr    string `json:"state_abbr" required:"true" description:"The abbreviation of the state (e.g., 'NY', 'CA')."`
	SpecificDate string `json:"specific_date" required:"true" description:"The specific date for the query in 'M/D/YYYY' format."`
}

// Validate checks that both keys are present
func (a StateDateArgs) Validate() error {
	var missing []string
	if strings.TrimSpace(a.StateAbbr) == "" {
		missing = append(missing, "state_abbr")
	}
	if strings.TrimSpace(a.SpecificDate) == "" {
		missing = append(missing, "specific_date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidArguments, strings.Join(missing, ", "))
	}
	return nil
}

// ParseArgs strictly decodes and validates a directive's arguments payload
func ParseArgs(call llm.ToolCallFunction) (StateDateArgs, error) {
	var args StateDateArgs
	if err := call.DecodeArguments(&args); err != nil {
		return StateDateArgs{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := args.Validate(); err != nil {
		return StateDateArgs{}, err
	}
	return args, nil
}
