package orchestrator

import (
	"errors"
	"fmt"
)

// Phase identifies one of the two model requests of a turn
type Phase int

const (
	Phase1 Phase = 1
	Phase2 Phase = 2
)

func (p Phase) String() string {
	return fmt.Sprintf("phase %d", int(p))
}

var (
	// ErrPhase1 matches failures of the tool-selection request
	ErrPhase1 = errors.New("phase 1 model request failed")
	// ErrPhase2 matches failures of the final-answer request
	ErrPhase2 = errors.New("phase 2 model request failed")
	// ErrEmptyQuestion is returned for blank questions
	ErrEmptyQuestion = errors.New("question is empty")
)

// PhaseError is a model failure that ended a turn
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s model request failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrPhase1 and ErrPhase2
func (e *PhaseError) Is(target error) bool {
	switch target {
	case ErrPhase1:
		return e.Phase == Phase1
	case ErrPhase2:
		return e.Phase == Phase2
	}
	return false
}
