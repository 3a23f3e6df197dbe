package core

import (
	"encoding/json"
	"time"

	"github.com/comalice/formchart/internal/primitives"
)

// Snapshot is where a session currently is: the active leaves (one per active
// region) and the context. It is an immutable value; Transition returns a new one.
type Snapshot[C any] struct {
	machine *Machine[C]
	active  []int
	context C
	changed bool
}

// Started reports whether the snapshot came from Start, Transition or Restore.
func (s Snapshot[C]) Started() bool {
	return s.machine != nil
}

// ActivePath returns the active leaf ids in document order.
func (s Snapshot[C]) ActivePath() []string {
	ids := make([]string, len(s.active))
	for i, n := range s.active {
		ids[i] = s.machine.nodes[n].id
	}
	return ids
}

// ActiveStatePaths returns the dotted paths of the active leaves in document order.
func (s Snapshot[C]) ActiveStatePaths() []string {
	paths := make([]string, len(s.active))
	for i, n := range s.active {
		paths[i] = s.machine.nodes[n].path
	}
	return paths
}

// Matches reports whether the node named by a dotted path, or a node with
// the given id, is active.
func (s Snapshot[C]) Matches(pathOrID string) bool {
	if !s.Started() {
		return false
	}
	for n := range s.machine.activeNodes(s.active) {
		nd := s.machine.nodes[n]
		if nd.path == pathOrID || (nd.parent != noNode && nd.id == pathOrID) {
			return true
		}
	}
	return false
}

// Context returns the context value. Callers must treat it as read-only.
func (s Snapshot[C]) Context() C {
	return s.context
}

// Changed is false when the snapshot was returned for an ignored event.
func (s Snapshot[C]) Changed() bool {
	return s.changed
}

// MarshalJSON renders the snapshot for transports and CLIs.
func (s Snapshot[C]) MarshalJSON() ([]byte, error) {
	view := struct {
		Active     []string `json:"active"`
		ActivePath []string `json:"activePath"`
		Context    C        `json:"context"`
		Changed    bool     `json:"changed"`
	}{
		Active:     []string{},
		ActivePath: []string{},
		Context:    s.context,
		Changed:    s.changed,
	}
	if s.Started() {
		view.Active = s.ActiveStatePaths()
		view.ActivePath = s.ActivePath()
	}
	return json.Marshal(view)
}

// SnapshotRecord is the serializable form of a Snapshot.
type SnapshotRecord[C any] struct {
	MachineID string    `json:"machineID" yaml:"machineID"`
	Version   string    `json:"version" yaml:"version"`
	Current   []string  `json:"current" yaml:"current"`
	Context   C         `json:"context" yaml:"context"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// TransitionInfo describes one processed event for publishers.
type TransitionInfo struct {
	MachineID string           `json:"machineID"`
	Event     primitives.Event `json:"event"`
	From      []string         `json:"from"`
	To        []string         `json:"to"`
	// State is the declaring node of the fired transition.
	State string `json:"state,omitempty"`
	// Target is the resolved target path of the fired transition.
	Target    string    `json:"target,omitempty"`
	Fired     bool      `json:"fired"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher observes processed events. Publish is called synchronously from
// Transition and must not block; errors are logged and otherwise ignored.
type Publisher interface {
	Publish(info TransitionInfo) error
}
