package progress

import (
	"strings"

	"github.com/comalice/formchart/internal/answers"
	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/primitives"
)

// Action names understood by Actions.
const (
	ActionUpdateStatus       = "updateStatus"
	ActionUpdateAnswers      = "updateAnswers"
	ActionAddToProgress      = "addToProgress"
	ActionRemoveFromProgress = "removeFromProgress"
	ActionAppendAnswer       = "appendAnswer"
	ActionClearAnswers       = "clearAnswers"
)

// Actions returns the context-transforming actions by name.
func Actions() map[string]core.Action[Context] {
	return map[string]core.Action[Context]{
		ActionUpdateStatus:       UpdateStatus,
		ActionUpdateAnswers:      UpdateAnswers,
		ActionAddToProgress:      AddToProgress,
		ActionRemoveFromProgress: RemoveFromProgress,
		ActionAppendAnswer:       AppendAnswer,
		ActionClearAnswers:       ClearAnswers,
	}
}

// enteredPage is the page an action is about: the state whose entry list named
// it, or the transition target.
func enteredPage(args core.ActionArgs[Context]) string {
	if args.Phase == core.PhaseTransition {
		return args.Target
	}
	return args.State
}

// leftPage is the page being answered or exited.
func leftPage(args core.ActionArgs[Context]) string {
	if args.Phase == core.PhaseExit {
		return args.State
	}
	if args.Source != "" {
		return args.Source
	}
	return args.State
}

// UpdateStatus completes the task owning the entered page (its summary) and
// unlocks the next task in declared order. It does nothing for a task that is
// already complete.
func UpdateStatus(args core.ActionArgs[Context]) Context {
	ctx := args.Context
	i := ctx.taskFor(enteredPage(args))
	if i < 0 || ctx.Tasks[i].Status == Complete {
		return ctx
	}
	out := ctx.WithStatus(ctx.Tasks[i].ID, Complete)
	if i+1 < len(out.Tasks) && out.Tasks[i+1].Status == CannotStart {
		out = out.WithStatus(out.Tasks[i+1].ID, Incomplete)
	}
	return out
}

// UpdateAnswers records the event payload under the transition's target page
// id, in the task owning that page.
func UpdateAnswers(args core.ActionArgs[Context]) Context {
	return setSection(args.Context, args.Target, args.Event)
}

// AddToProgress appends the entered page to its task's trail. Re-entering the
// page already at the end of the trail does not grow it.
func AddToProgress(args core.ActionArgs[Context]) Context {
	ctx := args.Context
	page := enteredPage(args)
	i := ctx.taskFor(page)
	if i < 0 {
		return ctx
	}
	id := primitives.LeafID(page)
	trail := ctx.Tasks[i].Progress
	if len(trail) > 0 && trail[len(trail)-1] == id {
		return ctx
	}
	out := ctx.Clone()
	out.Tasks[i].Progress = append(out.Tasks[i].Progress, id)
	return out
}

// RemoveFromProgress drops the most recent occurrence of the page being left
// from its task's trail.
func RemoveFromProgress(args core.ActionArgs[Context]) Context {
	ctx := args.Context
	page := leftPage(args)
	i := ctx.taskFor(page)
	if i < 0 {
		return ctx
	}
	id := primitives.LeafID(page)
	trail := ctx.Tasks[i].Progress
	for j := len(trail) - 1; j >= 0; j-- {
		if trail[j] == id {
			out := ctx.Clone()
			p := out.Tasks[i].Progress
			out.Tasks[i].Progress = append(p[:j], p[j+1:]...)
			return out
		}
	}
	return ctx
}

// AppendAnswer adds the payload as a new entry of the repeated section keyed by
// the page being answered.
func AppendAnswer(args core.ActionArgs[Context]) Context {
	ctx := args.Context
	page := leftPage(args)
	i := ctx.taskFor(page)
	if i < 0 || args.Event.Data == nil {
		return ctx
	}
	entry, err := answers.EntryFromPayload(args.Event.Data)
	if err != nil {
		return ctx
	}
	out := ctx.Clone()
	if out.Tasks[i].Answers == nil {
		out.Tasks[i].Answers = answers.Store{}
	}
	id := primitives.LeafID(page)
	out.Tasks[i].Answers[id] = out.Tasks[i].Answers[id].Append(entry)
	return out
}

// ClearAnswers removes every answer recorded for the task owning the action's state.
func ClearAnswers(args core.ActionArgs[Context]) Context {
	ctx := args.Context
	i := ctx.taskFor(args.State)
	if i < 0 || len(ctx.Tasks[i].Answers) == 0 {
		return ctx
	}
	out := ctx.Clone()
	out.Tasks[i].Answers = answers.Store{}
	return out
}

func setSection(ctx Context, page string, event primitives.Event) Context {
	i := ctx.taskFor(page)
	if i < 0 || event.Data == nil {
		return ctx
	}
	section, err := answers.FromPayload(event.Data)
	if err != nil {
		return ctx
	}
	out := ctx.Clone()
	if out.Tasks[i].Answers == nil {
		out.Tasks[i].Answers = answers.Store{}
	}
	out.Tasks[i].Answers[primitives.LeafID(page)] = section
	return out
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, primitives.PathSeparator)
}
