package core

import (
	"maps"

	"github.com/comalice/formchart/internal/primitives"
)

// Phase tells an action why it is running.
type Phase string

const (
	PhaseEntry      Phase = "entry"
	PhaseExit       Phase = "exit"
	PhaseTransition Phase = "transition"
)

// GuardArgs is everything a guard may inspect. Guards must not mutate Context.
type GuardArgs[C any] struct {
	Context C
	Event   primitives.Event
	// Params are the candidate's declared guardParams.
	Params map[string]any
	// State is the path of the node declaring the transition ("" for the root).
	State string
	// Source is the path of the active leaf the event was matched from.
	Source string
}

// Guard is a named predicate gating a transition candidate. A non-nil error
// means "not satisfied".
type Guard[C any] func(args GuardArgs[C]) (bool, error)

// ActionArgs is the resolved bundle handed to every action.
type ActionArgs[C any] struct {
	Context C
	Event   primitives.Event
	Phase   Phase
	// Action is the registry name the action was invoked under.
	Action string
	// State is the path of the node whose entry/exit list (or transition) named the action.
	State string
	// Source is the active leaf path the transition started from; empty on start.
	Source string
	// Target is the resolved target path of the transition, or the initial leaf on start.
	Target string
}

// Action transforms the context. Implementations return a modified copy and
// leave the input untouched.
type Action[C any] func(args ActionArgs[C]) C

// ConditionEvaluator evaluates a candidate's cond expression.
type ConditionEvaluator[C any] interface {
	EvaluateCondition(cond string, args GuardArgs[C]) (bool, error)
}

// ConditionFunc adapts a function to ConditionEvaluator.
type ConditionFunc[C any] func(cond string, args GuardArgs[C]) (bool, error)

// EvaluateCondition calls f.
func (f ConditionFunc[C]) EvaluateCondition(cond string, args GuardArgs[C]) (bool, error) {
	return f(cond, args)
}

// Registry resolves the guard, action and condition names used by a definition.
// Every referenced name is checked when the machine is built.
type Registry[C any] struct {
	Guards     map[string]Guard[C]
	Actions    map[string]Action[C]
	Conditions ConditionEvaluator[C]
}

// Merge returns a registry with other's entries layered over r's.
// other.Conditions replaces r.Conditions when set.
func (r Registry[C]) Merge(other Registry[C]) Registry[C] {
	out := Registry[C]{
		Guards:     make(map[string]Guard[C], len(r.Guards)+len(other.Guards)),
		Actions:    make(map[string]Action[C], len(r.Actions)+len(other.Actions)),
		Conditions: r.Conditions,
	}
	maps.Copy(out.Guards, r.Guards)
	maps.Copy(out.Guards, other.Guards)
	maps.Copy(out.Actions, r.Actions)
	maps.Copy(out.Actions, other.Actions)
	if other.Conditions != nil {
		out.Conditions = other.Conditions
	}
	return out
}
