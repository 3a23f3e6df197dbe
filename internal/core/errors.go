package core

import (
	"errors"
	"fmt"

	"github.com/comalice/formchart/internal/primitives"
)

var (
	ErrUnknownGuard      = errors.New("unknown guard")
	ErrUnknownAction     = errors.New("unknown action")
	ErrUnresolvedTarget  = primitives.ErrUnresolvedTarget
	ErrMissingConditions = errors.New("cond used but no condition evaluator registered")
	ErrNotStarted        = errors.New("machine not started")
	ErrUnknownState      = errors.New("unknown state")
	ErrMachineMismatch   = errors.New("snapshot belongs to a different machine")
)

// ConfigError locates a definition problem found while building a Machine.
// Event and Index are empty/-1 for entry and exit action lists.
type ConfigError struct {
	State string
	Event string
	Index int
	Err   error
}

func (e *ConfigError) Error() string {
	state := e.State
	if state == "" {
		state = "(root)"
	}
	if e.Event == "" {
		return fmt.Sprintf("state %q: %v", state, e.Err)
	}
	return fmt.Sprintf("state %q, event %q, transition %d: %v", state, e.Event, e.Index, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
