// Package core provides the runtime core tier of the statechart engine.
// This includes the compiled Machine, transition selection, exit/entry
// ordering and snapshot records.
// Dependencies: internal/primitives
//
// A Machine is built once from a definition and is read-only afterwards, so
// any number of sessions may share it. Each session owns its Snapshot values.
package core

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/comalice/formchart/internal/primitives"
)

// InitEvent is the event handed to entry actions run by Start.
const InitEvent = "$init"

// Machine is a compiled statechart with its guard and action registries.
type Machine[C any] struct {
	config    primitives.MachineConfig
	version   string
	nodes     []node
	index     map[string]int
	registry  Registry[C]
	logger    *slog.Logger
	publisher Publisher
	now       func() time.Time
}

// NewMachine validates config, resolves every transition target to a node and
// checks every guard, action and condition reference against reg.
// Any problem is returned as an error; no partially usable Machine is built.
func NewMachine[C any](config primitives.MachineConfig, reg Registry[C], opts ...Option) (*Machine[C], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine config: %w", err)
	}
	nodes, index, err := compile(&config)
	if err != nil {
		return nil, err
	}
	if err := checkNames(nodes, reg); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Machine[C]{
		config:    config,
		version:   primitives.ComputeVersion(&config),
		nodes:     nodes,
		index:     index,
		registry:  reg,
		logger:    o.logger.With("machine", config.ID),
		publisher: o.publisher,
		now:       o.now,
	}, nil
}

// ID returns the machine ID.
func (m *Machine[C]) ID() string {
	return m.config.ID
}

// Version returns the definition version recorded in snapshot records.
func (m *Machine[C]) Version() string {
	return m.version
}

// Config returns the definition the machine was built from.
func (m *Machine[C]) Config() primitives.MachineConfig {
	return m.config
}

// Start activates the initial configuration: the root's initial child is
// descended through every compound initial and every parallel region, and
// entry actions run top-down (regions in document order) starting with ctx.
func (m *Machine[C]) Start(ctx C) Snapshot[C] {
	entries := append([]int{0}, m.getEntryStates(0, 0)...)
	leaves := m.nextLeaves(nil, 0, entries)

	base := ActionArgs[C]{
		Event:  primitives.NewEvent(InitEvent, nil),
		Target: m.nodes[leaves[0]].path,
	}
	for _, n := range entries {
		ctx = m.runActions(ctx, base, PhaseEntry, n, m.nodes[n].entry)
	}
	m.logger.Debug("machine started", "active", m.paths(leaves))
	return Snapshot[C]{machine: m, active: leaves, context: ctx, changed: true}
}

// Transition processes one event against s and returns the next snapshot.
//
// The deepest active node declaring the event decides; among nodes at equal
// depth the one reached first in document order wins. Its candidates are
// tried in order and the first satisfied one fires. When no node declares
// the event, or none of the deciding node's candidates is satisfied, s is
// returned with Changed() == false.
func (m *Machine[C]) Transition(s Snapshot[C], event primitives.Event) (Snapshot[C], error) {
	if s.machine == nil {
		return s, ErrNotStarted
	}
	if s.machine != m {
		return s, ErrMachineMismatch
	}

	if n, leaf := m.selectDeclaring(s.active, event.Type); n != noNode {
		cands := m.nodes[n].on[event.Type]
		for i := range cands {
			c := &cands[i]
			args := GuardArgs[C]{
				Context: s.context,
				Event:   event,
				Params:  c.params,
				State:   m.nodes[n].path,
				Source:  m.nodes[leaf].path,
			}
			if !m.satisfied(c, args, i) {
				continue
			}
			next := m.fire(s, leaf, n, c, event)
			m.logger.Debug("transition fired",
				"event", event.Type,
				"source", m.nodes[leaf].path,
				"target", m.nodes[c.target].path,
			)
			m.publish(TransitionInfo{
				Event:  event,
				From:   m.paths(s.active),
				To:     m.paths(next.active),
				State:  m.nodes[n].path,
				Target: m.nodes[c.target].path,
				Fired:  true,
			})
			return next, nil
		}
		m.logger.Debug("event ignored: no candidate satisfied", "event", event.Type, "state", m.nodes[n].path)
		return m.ignore(s, event), nil
	}
	m.logger.Debug("event ignored: not declared on active path", "event", event.Type)
	return m.ignore(s, event), nil
}

func (m *Machine[C]) ignore(s Snapshot[C], event primitives.Event) Snapshot[C] {
	s.changed = false
	m.publish(TransitionInfo{Event: event, From: m.paths(s.active), To: m.paths(s.active)})
	return s
}

// satisfied evaluates the named guard and the cond expression; both must hold.
// Errors count as "not satisfied".
func (m *Machine[C]) satisfied(c *candidate, args GuardArgs[C], index int) bool {
	if c.guard != "" {
		ok, err := m.registry.Guards[c.guard](args)
		if err != nil {
			m.logger.Debug("guard error treated as unsatisfied", "guard", c.guard, "state", args.State, "candidate", index, "error", err)
			return false
		}
		if !ok {
			return false
		}
	}
	if c.cond != "" {
		ok, err := m.registry.Conditions.EvaluateCondition(c.cond, args)
		if err != nil {
			m.logger.Debug("condition error treated as unsatisfied", "cond", c.cond, "state", args.State, "candidate", index, "error", err)
			return false
		}
		return ok
	}
	return true
}

// fire runs exit actions innermost first, entry actions outermost first, then
// the candidate's own actions, threading the context through each.
func (m *Machine[C]) fire(s Snapshot[C], source, owner int, c *candidate, event primitives.Event) Snapshot[C] {
	domain := m.computeDomain(owner, c.target)
	exits := m.getExitStates(s.active, domain)
	entries := m.getEntryStates(domain, c.target)

	ctx := s.context
	base := ActionArgs[C]{
		Event:  event,
		Source: m.nodes[source].path,
		Target: m.nodes[c.target].path,
	}
	for _, n := range exits {
		ctx = m.runActions(ctx, base, PhaseExit, n, m.nodes[n].exit)
	}
	for _, n := range entries {
		ctx = m.runActions(ctx, base, PhaseEntry, n, m.nodes[n].entry)
	}
	ctx = m.runActions(ctx, base, PhaseTransition, owner, c.actions)

	return Snapshot[C]{
		machine: m,
		active:  m.nextLeaves(s.active, domain, entries),
		context: ctx,
		changed: true,
	}
}

func (m *Machine[C]) runActions(ctx C, base ActionArgs[C], phase Phase, n int, names []string) C {
	for _, name := range names {
		args := base
		args.Context = ctx
		args.Phase = phase
		args.Action = name
		args.State = m.nodes[n].path
		ctx = m.registry.Actions[name](args)
	}
	return ctx
}

func (m *Machine[C]) publish(info TransitionInfo) {
	if m.publisher == nil {
		return
	}
	info.MachineID = m.config.ID
	info.Timestamp = m.now()
	if err := m.publisher.Publish(info); err != nil {
		m.logger.Debug("publish failed", "event", info.Event.Type, "error", err)
	}
}

// Events lists the event names declared on the active path, sorted.
func (m *Machine[C]) Events(s Snapshot[C]) []string {
	if s.machine != m {
		return nil
	}
	seen := make(map[string]bool)
	for n := range m.activeNodes(s.active) {
		for event := range m.nodes[n].on {
			seen[event] = true
		}
	}
	return sortedEvents(seen)
}

// Record converts s into its serializable form.
func (m *Machine[C]) Record(s Snapshot[C]) (SnapshotRecord[C], error) {
	if s.machine == nil {
		return SnapshotRecord[C]{}, ErrNotStarted
	}
	if s.machine != m {
		return SnapshotRecord[C]{}, ErrMachineMismatch
	}
	return SnapshotRecord[C]{
		MachineID: m.config.ID,
		Version:   m.version,
		Current:   m.paths(s.active),
		Context:   s.context,
		Timestamp: m.now(),
	}, nil
}

// Restore rebuilds a snapshot from a record produced by Record. The record
// must name this machine and version, every current path must be a leaf, and
// the leaves must form a legal configuration: one active child per active
// compound state and every region of an active parallel state.
func (m *Machine[C]) Restore(r SnapshotRecord[C]) (Snapshot[C], error) {
	if r.MachineID != m.config.ID {
		return Snapshot[C]{}, fmt.Errorf("%w: have %q, record %q", ErrMachineMismatch, m.config.ID, r.MachineID)
	}
	if r.Version != "" && r.Version != m.version {
		return Snapshot[C]{}, fmt.Errorf("%w: definition version %q, record %q", ErrMachineMismatch, m.version, r.Version)
	}
	if len(r.Current) == 0 {
		return Snapshot[C]{}, fmt.Errorf("%w: record has no active states", ErrNotStarted)
	}
	active := make([]int, 0, len(r.Current))
	for _, path := range r.Current {
		n, ok := m.index[path]
		if !ok || !m.nodes[n].isLeaf() {
			return Snapshot[C]{}, fmt.Errorf("%w %q", ErrUnknownState, path)
		}
		active = append(active, n)
	}
	sort.Ints(active)
	if err := m.checkConfiguration(active); err != nil {
		return Snapshot[C]{}, err
	}
	return Snapshot[C]{machine: m, active: active, context: r.Context}, nil
}

func (m *Machine[C]) paths(leaves []int) []string {
	out := make([]string, len(leaves))
	for i, n := range leaves {
		out[i] = m.nodes[n].path
	}
	return out
}
