// Package primitives defines the foundational data structures for the statechart engine.
// TransitionConfig defines one guarded candidate of an event's transition list.
//
// Candidates are evaluated in declaration order; the first whose guard and
// condition are satisfied (or that has neither) fires.
//
// Target addressing:
//   - "page"        relative: a sibling of the declaring state (a root child when declared on the root)
//   - ".page"       child of the declaring state
//   - "task.page"   absolute: ancestor-qualified path from the root
package primitives

import (
	"errors"
	"fmt"
	"strings"
)

// TransitionConfig defines a single transition candidate triggered by an Event.
type TransitionConfig struct {
	Target      string         `json:"target" yaml:"target" mapstructure:"target"`
	Guard       string         `json:"guard,omitempty" yaml:"guard,omitempty" mapstructure:"guard"`
	GuardParams map[string]any `json:"guardParams,omitempty" yaml:"guardParams,omitempty" mapstructure:"guardParams"`
	Cond        string         `json:"cond,omitempty" yaml:"cond,omitempty" mapstructure:"cond"`
	Actions     []string       `json:"actions,omitempty" yaml:"actions,omitempty" mapstructure:"actions"`
}

// TargetMode tells how a target string is resolved.
type TargetMode int

const (
	TargetSibling TargetMode = iota
	TargetChild
	TargetAbsolute
)

// Mode classifies the target addressing form.
func (t *TransitionConfig) Mode() TargetMode {
	switch {
	case strings.HasPrefix(t.Target, PathSeparator):
		return TargetChild
	case strings.Contains(t.Target, PathSeparator):
		return TargetAbsolute
	default:
		return TargetSibling
	}
}

// Segments returns the target path segments without the child-addressing prefix.
func (t *TransitionConfig) Segments() []string {
	return strings.Split(strings.TrimPrefix(t.Target, PathSeparator), PathSeparator)
}

// Guarded reports whether the candidate carries a guard or a condition.
func (t *TransitionConfig) Guarded() bool {
	return t.Guard != "" || strings.TrimSpace(t.Cond) != ""
}

// Validate checks TransitionConfig fields and target path syntax.
func (t *TransitionConfig) Validate() error {
	if t.Target == "" {
		return errors.New("target is required")
	}
	// Target path syntax: dot-separated non-empty alphanumeric segments
	for i, seg := range t.Segments() {
		if seg == "" {
			return fmt.Errorf("invalid target path %q: empty segment at index %d", t.Target, i)
		}
		for _, r := range seg {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
				return fmt.Errorf("invalid target path %q: invalid character '%c' at index %d", t.Target, r, i)
			}
		}
	}
	if t.Guard == "" && len(t.GuardParams) > 0 {
		return errors.New("guardParams given without guard")
	}
	for i, a := range t.Actions {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("empty action name at index %d", i)
		}
	}
	return nil
}
