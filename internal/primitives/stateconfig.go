// Package primitives defines the foundational data structures for the statechart engine.
//
// StateConfig represents a node of the questionnaire chart: an atomic page, a
// compound task (one active child at a time) or a parallel node (every region active).
package primitives

import (
	"errors"
	"fmt"
	"strings"
)

// StateType defines the possible types of states in the statechart.
type StateType string

const (
	Atomic   StateType = "atomic"
	Compound StateType = "compound"
	Parallel StateType = "parallel"
)

// PathSeparator joins node ids into ancestor-qualified paths ("task.page").
const PathSeparator = "."

// StateConfig defines a state configuration, supporting hierarchical nesting.
type StateConfig struct {
	ID       string                        `json:"id" yaml:"id" mapstructure:"id"`
	Type     StateType                     `json:"type" yaml:"type" mapstructure:"type"`
	Initial  string                        `json:"initial,omitempty" yaml:"initial,omitempty" mapstructure:"initial"` // Initial child for compound
	On       map[string][]TransitionConfig `json:"on,omitempty" yaml:"on,omitempty" mapstructure:"on"`
	Entry    []string                      `json:"entry,omitempty" yaml:"entry,omitempty" mapstructure:"entry"`
	Exit     []string                      `json:"exit,omitempty" yaml:"exit,omitempty" mapstructure:"exit"`
	Children []*StateConfig                `json:"children,omitempty" yaml:"children,omitempty" mapstructure:"children"`
}

// NewStateConfig creates a new StateConfig with ID and Type.
func NewStateConfig(id string, typ StateType) *StateConfig {
	return &StateConfig{
		ID:   id,
		Type: typ,
	}
}

// WithInitial sets the initial child state ID (compound only).
func (s *StateConfig) WithInitial(initial string) *StateConfig {
	s.Initial = initial
	return s
}

// WithOn sets the event-to-transition map.
func (s *StateConfig) WithOn(on map[string][]TransitionConfig) *StateConfig {
	s.On = make(map[string][]TransitionConfig, len(on))
	for k, v := range on {
		s.On[k] = v
	}
	return s
}

// AddTransition appends a candidate for an event. Candidates keep declaration order.
func (s *StateConfig) AddTransition(event string, trans TransitionConfig) *StateConfig {
	if s.On == nil {
		s.On = make(map[string][]TransitionConfig)
	}
	s.On[event] = append(s.On[event], trans)
	return s
}

// WithEntry sets entry actions.
func (s *StateConfig) WithEntry(entry ...string) *StateConfig {
	s.Entry = entry
	return s
}

// AddEntry adds an entry action.
func (s *StateConfig) AddEntry(action string) *StateConfig {
	s.Entry = append(s.Entry, action)
	return s
}

// WithExit sets exit actions.
func (s *StateConfig) WithExit(exit ...string) *StateConfig {
	s.Exit = exit
	return s
}

// AddExit adds an exit action.
func (s *StateConfig) AddExit(action string) *StateConfig {
	s.Exit = append(s.Exit, action)
	return s
}

// WithChildren sets child states.
func (s *StateConfig) WithChildren(children ...*StateConfig) *StateConfig {
	s.Children = children
	return s
}

// AddChild adds a child state.
func (s *StateConfig) AddChild(child *StateConfig) *StateConfig {
	s.Children = append(s.Children, child)
	return s
}

// State creates and adds a child state (atomic by default, or specified type).
// Returns the child for fluent chaining: parent.State("child").Transition("evt", "target").
func (s *StateConfig) State(id string, typ ...StateType) *StateConfig {
	t := Atomic
	if len(typ) > 0 {
		t = typ[0]
	}
	child := NewStateConfig(id, t)
	s.AddChild(child)
	return child
}

// Transition adds a simple transition from event to target.
// Optionally override with a full TransitionConfig via the first opt; its Target is
// replaced by target.
func (s *StateConfig) Transition(event, target string, transOpts ...TransitionConfig) *StateConfig {
	trans := TransitionConfig{}
	if len(transOpts) > 0 {
		trans = transOpts[0]
	}
	trans.Target = target
	return s.AddTransition(event, trans)
}

// Child returns the direct child with the given id.
func (s *StateConfig) Child(id string) (*StateConfig, bool) {
	for _, c := range s.Children {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// IsLeaf reports whether the state has no children.
func (s *StateConfig) IsLeaf() bool {
	return s.Type == Atomic
}

// Validate performs recursive validation of the StateConfig tree.
func (s *StateConfig) Validate() error {
	if s.ID == "" {
		return errors.New("state ID is required")
	}
	if strings.Contains(s.ID, PathSeparator) {
		return fmt.Errorf("state ID %q must not contain %q", s.ID, PathSeparator)
	}

	switch s.Type {
	case Atomic:
		if s.Initial != "" {
			return fmt.Errorf("atomic state %s cannot have Initial", s.ID)
		}
		if len(s.Children) > 0 {
			return fmt.Errorf("atomic state %s cannot have Children", s.ID)
		}
	case Compound:
		if len(s.Children) == 0 {
			return fmt.Errorf("compound state %s requires Children", s.ID)
		}
		if s.Initial == "" {
			return fmt.Errorf("compound state %s requires Initial child", s.ID)
		}
		if _, ok := s.Child(s.Initial); !ok {
			return fmt.Errorf("initial child %q not found in children of %s", s.Initial, s.ID)
		}
	case Parallel:
		if len(s.Children) == 0 {
			return fmt.Errorf("parallel state %s requires Children", s.ID)
		}
		if s.Initial != "" {
			return fmt.Errorf("parallel state %s cannot have Initial (all regions are entered)", s.ID)
		}
	default:
		return fmt.Errorf("invalid state type %q for state %s", s.Type, s.ID)
	}

	if err := validateOn(s.ID, s.On); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(s.Children))
	for i, child := range s.Children {
		if child == nil {
			return fmt.Errorf("child %d of %s is nil", i, s.ID)
		}
		if _, dup := seen[child.ID]; dup {
			return fmt.Errorf("duplicate child %q in %s", child.ID, s.ID)
		}
		seen[child.ID] = struct{}{}
		if err := child.Validate(); err != nil {
			return fmt.Errorf("child %d (%s) of %s failed validation: %w", i, child.ID, s.ID, err)
		}
	}

	return nil
}

func validateOn(owner string, on map[string][]TransitionConfig) error {
	for event, candidates := range on {
		if strings.TrimSpace(event) == "" {
			return fmt.Errorf("empty event name in On map for state %s", owner)
		}
		for i := range candidates {
			if err := candidates[i].Validate(); err != nil {
				return fmt.Errorf("state %s, event %q, candidate %d: %w", owner, event, i, err)
			}
		}
	}
	return nil
}
