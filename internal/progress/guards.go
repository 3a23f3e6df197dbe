package progress

import (
	"errors"
	"fmt"

	"github.com/comalice/formchart/internal/answers"
	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/extensibility"
	"github.com/comalice/formchart/internal/primitives"
	"github.com/comalice/formchart/internal/rules"
)

// Guard names understood by Guards.
const (
	GuardIsCurrentTask  = "isCurrentTask"
	GuardIsTaskComplete = "isTaskComplete"
)

// NextEvent is the root-level event routing to the current task.
const NextEvent = "NEXT"

var errMissingTaskParam = errors.New(`guard needs a string "task" param`)

// Guards returns the task guards by name. Both read the "task" guard param.
func Guards() map[string]core.Guard[Context] {
	return map[string]core.Guard[Context]{
		GuardIsCurrentTask:  IsCurrentTask,
		GuardIsTaskComplete: IsTaskComplete,
	}
}

// IsCurrentTask holds when the task named by the "task" param is the one
// currently incomplete. It never holds once every task is complete.
func IsCurrentTask(args core.GuardArgs[Context]) (bool, error) {
	id, err := taskParam(args)
	if err != nil {
		return false, err
	}
	current, ok := args.Context.CurrentTask()
	return ok && current.ID == id, nil
}

// IsTaskComplete holds when the task named by the "task" param is complete.
func IsTaskComplete(args core.GuardArgs[Context]) (bool, error) {
	id, err := taskParam(args)
	if err != nil {
		return false, err
	}
	t, ok := args.Context.Task(id)
	if !ok {
		return false, fmt.Errorf("unknown task %q", id)
	}
	return t.Status == Complete, nil
}

func taskParam(args core.GuardArgs[Context]) (string, error) {
	id, ok := args.Params["task"].(string)
	if !ok || id == "" {
		return "", errMissingTaskParam
	}
	return id, nil
}

// NextTransitions builds the root-level NEXT candidates: one per task, in
// order, each guarded by isCurrentTask.
func NextTransitions(taskIDs ...string) []primitives.TransitionConfig {
	out := make([]primitives.TransitionConfig, len(taskIDs))
	for i, id := range taskIDs {
		out[i] = primitives.TransitionConfig{
			Target:      id,
			Guard:       GuardIsCurrentTask,
			GuardParams: map[string]any{"task": id},
		}
	}
	return out
}

// Conditions adapts a rules evaluator to cond expressions. The expression
// sees the context's answers overlaid with the event payload, keyed by the
// page the event was sent from.
func Conditions(ev *rules.Evaluator) core.ConditionEvaluator[Context] {
	return extensibility.RuleConditions(ev, ConditionStore)
}

// ConditionStore is the answer store a cond expression is evaluated against.
// The payload is overlaid under the source page and its questions shadow
// answers of the same id recorded on other pages. A page holding a repeated
// section keeps its recorded entries; the payload is not counted until an
// action appends it.
func ConditionStore(args core.GuardArgs[Context]) answers.Store {
	store := args.Context.Answers()
	if args.Event.Data == nil || args.Source == "" {
		return store
	}
	page := primitives.LeafID(args.Source)
	if existing, ok := store[page]; ok && existing.IsRepeated() {
		return store
	}
	section, err := answers.FromPayload(args.Event.Data)
	if err != nil {
		return store
	}
	return store.Overlay(page, section)
}

// Registry bundles the progress actions, task guards and a rules-backed
// condition evaluator. The "rule" guard evaluates its "rule" param the same
// way cond does.
func Registry(ev *rules.Evaluator) core.Registry[Context] {
	guards := Guards()
	guards[extensibility.GuardRule] = extensibility.RuleGuard(ev, ConditionStore)
	return core.Registry[Context]{
		Guards:     guards,
		Actions:    Actions(),
		Conditions: Conditions(ev),
	}
}
