package core

import (
	"github.com/comalice/formchart/internal/primitives"
)

// Engine is one session over a shared Machine: it holds the current snapshot
// and replaces it wholesale on every Send. An Engine is not safe for
// concurrent use; callers serialize access per session.
type Engine[C any] struct {
	machine *Machine[C]
	initial C
	current Snapshot[C]
}

// NewEngine creates a session that starts from initial.
func NewEngine[C any](m *Machine[C], initial C) *Engine[C] {
	return &Engine[C]{machine: m, initial: initial}
}

// Machine returns the shared compiled machine.
func (e *Engine[C]) Machine() *Machine[C] {
	return e.machine
}

// Start (re)activates the initial configuration.
func (e *Engine[C]) Start() Snapshot[C] {
	e.current = e.machine.Start(e.initial)
	return e.current
}

// Send processes one event. Unmatched events return the unchanged snapshot
// and no error; ErrNotStarted is returned before Start or Restore.
func (e *Engine[C]) Send(event string, payload any) (Snapshot[C], error) {
	next, err := e.machine.Transition(e.current, primitives.NewEvent(event, payload))
	if err != nil {
		return e.current, err
	}
	e.current = next
	return next, nil
}

// Snapshot returns the current snapshot.
func (e *Engine[C]) Snapshot() Snapshot[C] {
	return e.current
}

// Record returns the serializable form of the current snapshot.
func (e *Engine[C]) Record() (SnapshotRecord[C], error) {
	return e.machine.Record(e.current)
}

// Restore replaces the current snapshot with one rebuilt from r.
func (e *Engine[C]) Restore(r SnapshotRecord[C]) error {
	s, err := e.machine.Restore(r)
	if err != nil {
		return err
	}
	e.current = s
	return nil
}
