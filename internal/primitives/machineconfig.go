// Package primitives defines the foundational data structures for the statechart engine.
//
// MachineConfig represents the definition document of a questionnaire chart: the
// root node (compound or parallel) with its ordered top-level states, root-level
// transitions such as NEXT, and root entry/exit actions.
// Validation ensures ID/Initial presence, state validity and that every
// transition target resolves to a real node.

package primitives

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolvedTarget is returned when a transition target names no node.
var ErrUnresolvedTarget = errors.New("unresolved transition target")

// MachineConfig defines the complete statechart configuration.
type MachineConfig struct {
	Version string                        `json:"version,omitempty" yaml:"version,omitempty" mapstructure:"version"`
	ID      string                        `json:"id" yaml:"id" mapstructure:"id"`
	Type    StateType                     `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
	Initial string                        `json:"initial,omitempty" yaml:"initial,omitempty" mapstructure:"initial"`
	On      map[string][]TransitionConfig `json:"on,omitempty" yaml:"on,omitempty" mapstructure:"on"`
	Entry   []string                      `json:"entry,omitempty" yaml:"entry,omitempty" mapstructure:"entry"`
	Exit    []string                      `json:"exit,omitempty" yaml:"exit,omitempty" mapstructure:"exit"`
	States  []*StateConfig                `json:"states" yaml:"states" mapstructure:"states"`
}

// Root returns the root node view of the configuration. The root's ID is the machine ID
// but it never appears in state paths.
func (m *MachineConfig) Root() *StateConfig {
	typ := m.Type
	if typ == "" {
		typ = Compound
	}
	return &StateConfig{
		ID:       m.ID,
		Type:     typ,
		Initial:  m.Initial,
		On:       m.On,
		Entry:    m.Entry,
		Exit:     m.Exit,
		Children: m.States,
	}
}

// Validate validates the entire machine configuration:
// - Non-empty ID, non-empty States
// - Root shape (compound root needs an existing Initial)
// - All individual states validate (recursive)
// - All transition targets resolve
func (m *MachineConfig) Validate() error {
	if m.ID == "" {
		return errors.New("machine ID is required")
	}
	if len(m.States) == 0 {
		return errors.New("states are required and cannot be empty")
	}
	root := m.Root()
	if root.Type == Compound && m.Initial == "" {
		return errors.New("initial state ID is required")
	}
	if err := root.Validate(); err != nil {
		return err
	}

	return m.Walk(func(path string, s *StateConfig) error {
		for event, candidates := range s.On {
			for i, trans := range candidates {
				if _, err := m.ResolveTarget(path, trans); err != nil {
					return fmt.Errorf("state %q, event %q, transition %d: %w", displayPath(path), event, i, err)
				}
			}
		}
		return nil
	})
}

// Walk visits the root (path "") and then every state depth-first in document order.
func (m *MachineConfig) Walk(fn func(path string, s *StateConfig) error) error {
	return walk("", m.Root(), fn)
}

func walk(path string, s *StateConfig, fn func(string, *StateConfig) error) error {
	if err := fn(path, s); err != nil {
		return err
	}
	for _, child := range s.Children {
		if err := walk(JoinPath(path, child.ID), child, fn); err != nil {
			return err
		}
	}
	return nil
}

// FindState resolves a state by hierarchical path (e.g. "task.section.page").
// The empty path is the root.
func (m *MachineConfig) FindState(path string) (*StateConfig, error) {
	current := m.Root()
	if path == "" {
		return current, nil
	}
	segments := strings.Split(path, PathSeparator)
	for i, seg := range segments {
		child, ok := current.Child(seg)
		if !ok {
			if i == 0 {
				return nil, fmt.Errorf("state %q not found", seg)
			}
			return nil, fmt.Errorf("child %q not found in %q", seg, strings.Join(segments[:i], PathSeparator))
		}
		current = child
	}
	return current, nil
}

// ResolveTarget turns a candidate's target into an absolute path, given the path of
// the state declaring the transition.
//
// A plain id names a sibling of the declaring state; when no sibling matches,
// enclosing scopes are searched outward up to the root's children. A leading
// separator names a child of the declaring state, and any other dotted target is
// absolute from the root.
func (m *MachineConfig) ResolveTarget(owner string, t TransitionConfig) (string, error) {
	var path string
	switch t.Mode() {
	case TargetAbsolute:
		path = t.Target
	case TargetChild:
		path = JoinPath(owner, strings.Join(t.Segments(), PathSeparator))
	default:
		for scope := ParentPath(owner); ; scope = ParentPath(scope) {
			path = JoinPath(scope, t.Target)
			if _, err := m.FindState(path); err == nil || scope == "" {
				break
			}
		}
	}
	if _, err := m.FindState(path); err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrUnresolvedTarget, t.Target, err)
	}
	return path, nil
}

// JoinPath appends id to a state path.
func JoinPath(path, id string) string {
	if path == "" {
		return id
	}
	return path + PathSeparator + id
}

// ParentPath returns the path of the parent state; root children have parent "".
func ParentPath(path string) string {
	i := strings.LastIndex(path, PathSeparator)
	if i < 0 {
		return ""
	}
	return path[:i]
}

// LeafID returns the last segment of a path.
func LeafID(path string) string {
	return path[strings.LastIndex(path, PathSeparator)+1:]
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}
