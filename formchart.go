// Package formchart is the navigation core of a questionnaire service: a
// hierarchical statechart interpreter whose transitions are gated by rule
// expressions over the answers collected so far, plus the task/progress
// context that tracks where each task stands.
//
// Compile a definition once and start one Engine per session:
//
//	chart, err := formchart.Load("questionnaire.yaml")
//	...
//	e := chart.NewEngine()
//	snap, err := e.Send("ANSWER", map[string]any{"q1": map[string]any{"value": "baz"}})
//
// NewEngine is the generic entry point for charts with a caller-defined
// context type and registries.
package formchart

import (
	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/primitives"
	"github.com/comalice/formchart/internal/progress"
)

type (
	MachineConfig    = primitives.MachineConfig
	StateConfig      = primitives.StateConfig
	TransitionConfig = primitives.TransitionConfig
	Event            = primitives.Event

	Context = progress.Context
	Task    = progress.Task
	Status  = progress.Status

	Phase          = core.Phase
	TransitionInfo = core.TransitionInfo
	Publisher      = core.Publisher
	ConfigError    = core.ConfigError
)

type (
	Machine[C any]        = core.Machine[C]
	Engine[C any]         = core.Engine[C]
	Snapshot[C any]       = core.Snapshot[C]
	SnapshotRecord[C any] = core.SnapshotRecord[C]
	Registry[C any]       = core.Registry[C]
	Guard[C any]          = core.Guard[C]
	GuardArgs[C any]      = core.GuardArgs[C]
	Action[C any]         = core.Action[C]
	ActionArgs[C any]     = core.ActionArgs[C]
)

// Task statuses.
const (
	CannotStart = progress.CannotStart
	Incomplete  = progress.Incomplete
	Complete    = progress.Complete
)

// NextEvent routes to the current task.
const NextEvent = progress.NextEvent

var (
	ErrUnknownGuard      = core.ErrUnknownGuard
	ErrUnknownAction     = core.ErrUnknownAction
	ErrUnresolvedTarget  = core.ErrUnresolvedTarget
	ErrMissingConditions = core.ErrMissingConditions
	ErrNotStarted        = core.ErrNotStarted
)

// NewMachineBuilder starts a fluent definition with a compound root.
var NewMachineBuilder = primitives.NewMachineBuilder

// NewEngine compiles config against the given registries and returns a
// started engine. A dangling target or an unregistered guard or action name
// fails construction. Cond expressions need reg.Conditions.
func NewEngine[C any](config MachineConfig, reg Registry[C], initial C, opts ...core.Option) (*Engine[C], error) {
	m, err := core.NewMachine(config, reg, opts...)
	if err != nil {
		return nil, err
	}
	e := core.NewEngine(m, initial)
	e.Start()
	return e, nil
}
