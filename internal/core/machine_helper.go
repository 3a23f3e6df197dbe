// Helper functions for compiling a MachineConfig into the node arena.
// Placed in separate file to organize code.

package core

import (
	"fmt"
	"sort"

	"github.com/comalice/formchart/internal/primitives"
)

const noNode = -1

// node is one arena entry. Arena order is document order (pre-order), so
// comparing indices compares document position.
type node struct {
	id       string
	path     string
	typ      primitives.StateType
	parent   int
	depth    int
	children []int
	initial  int
	entry    []string
	exit     []string
	on       map[string][]candidate
}

// candidate is a transition candidate with its target resolved to an arena index.
type candidate struct {
	target  int
	raw     string
	guard   string
	params  map[string]any
	cond    string
	actions []string
}

func (n *node) isLeaf() bool {
	return len(n.children) == 0
}

// compile flattens the definition into an arena. It mirrors a recursive
// path precomputation: every node gets its dotted path and ancestor chain
// (via parent links) up front.
func compile(config *primitives.MachineConfig) ([]node, map[string]int, error) {
	var nodes []node
	index := make(map[string]int)

	var add func(s *primitives.StateConfig, path string, parent, depth int) int
	add = func(s *primitives.StateConfig, path string, parent, depth int) int {
		i := len(nodes)
		typ := s.Type
		if typ == "" {
			typ = primitives.Atomic
		}
		nodes = append(nodes, node{
			id:      s.ID,
			path:    path,
			typ:     typ,
			parent:  parent,
			depth:   depth,
			initial: noNode,
			entry:   s.Entry,
			exit:    s.Exit,
		})
		index[path] = i
		children := make([]int, 0, len(s.Children))
		for _, child := range s.Children {
			children = append(children, add(child, primitives.JoinPath(path, child.ID), i, depth+1))
		}
		nodes[i].children = children
		if s.Initial != "" {
			nodes[i].initial = index[primitives.JoinPath(path, s.Initial)]
		}
		return i
	}
	add(config.Root(), "", noNode, 0)

	// second pass: targets may point forward in document order
	err := config.Walk(func(path string, s *primitives.StateConfig) error {
		if len(s.On) == 0 {
			return nil
		}
		on := make(map[string][]candidate, len(s.On))
		for _, event := range sortedEvents(s.On) {
			for i, t := range s.On[event] {
				target, err := config.ResolveTarget(path, t)
				if err != nil {
					return &ConfigError{State: path, Event: event, Index: i, Err: err}
				}
				on[event] = append(on[event], candidate{
					target:  index[target],
					raw:     t.Target,
					guard:   t.Guard,
					params:  t.GuardParams,
					cond:    t.Cond,
					actions: t.Actions,
				})
			}
		}
		nodes[index[path]].on = on
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return nodes, index, nil
}

// checkNames verifies every guard, action and condition reference resolves.
func checkNames[C any](nodes []node, reg Registry[C]) error {
	for _, n := range nodes {
		if err := checkActions(n.path, "", -1, n.entry, reg); err != nil {
			return err
		}
		if err := checkActions(n.path, "", -1, n.exit, reg); err != nil {
			return err
		}
		for _, event := range sortedEvents(n.on) {
			for i, c := range n.on[event] {
				if c.guard != "" {
					if _, ok := reg.Guards[c.guard]; !ok {
						return &ConfigError{State: n.path, Event: event, Index: i, Err: fmt.Errorf("%w %q", ErrUnknownGuard, c.guard)}
					}
				}
				if c.cond != "" && reg.Conditions == nil {
					return &ConfigError{State: n.path, Event: event, Index: i, Err: ErrMissingConditions}
				}
				if err := checkActions(n.path, event, i, c.actions, reg); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkActions[C any](path, event string, index int, names []string, reg Registry[C]) error {
	for _, name := range names {
		if _, ok := reg.Actions[name]; !ok {
			return &ConfigError{State: path, Event: event, Index: index, Err: fmt.Errorf("%w %q", ErrUnknownAction, name)}
		}
	}
	return nil
}

// sortedEvents gives map iteration a stable order so the first reported
// configuration error does not vary between runs.
func sortedEvents[T any](on map[string]T) []string {
	events := make([]string, 0, len(on))
	for e := range on {
		events = append(events, e)
	}
	sort.Strings(events)
	return events
}
