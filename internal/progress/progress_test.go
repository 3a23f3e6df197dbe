package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/primitives"
	"github.com/comalice/formchart/internal/rules"
)

func answer(q string, v any) map[string]any {
	return map[string]any{q: map[string]any{"value": v}}
}

func progressing(actions ...string) primitives.TransitionConfig {
	return primitives.TransitionConfig{Actions: append([]string{ActionAddToProgress}, actions...)}
}

// questionnaire has two tasks. "about" branches on q1 and ends in a summary;
// "children" is a repeated page allowing three extra entries.
func questionnaire() primitives.MachineConfig {
	mb := primitives.NewMachineBuilder("apply", "about")
	for _, t := range NextTransitions("about", "children") {
		mb.On(NextEvent, t.Target, t)
	}

	about := mb.Compound("about", "q1")
	q6 := progressing()
	q6.Cond = "q1 = baz"
	about.Atomic("q1").
		Transition("ANSWER", "q6", q6).
		Transition("ANSWER", "q2", progressing())
	about.Atomic("q2").
		Transition("ANSWER", "q6", progressing()).
		Transition("BACK", "q1", primitives.TransitionConfig{Actions: []string{ActionRemoveFromProgress}})
	about.Atomic("q6").
		Transition("ANSWER", "summary", progressing(ActionUpdateAnswers)).
		Transition("BACK", "q2", primitives.TransitionConfig{Actions: []string{ActionRemoveFromProgress}})
	about.Atomic("summary").Entry(ActionUpdateStatus)

	children := mb.Compound("children", "child")
	children.Atomic("child").
		Transition("ANSWER", "child", primitives.TransitionConfig{
			Cond:    "AnsweredLessThan child 3",
			Actions: []string{ActionAppendAnswer, ActionAddToProgress},
		}).
		Transition("ANSWER", "done", progressing(ActionAppendAnswer))
	children.Atomic("done").Entry(ActionUpdateStatus)

	return mb.MustBuild()
}

func newEngine(t *testing.T) *core.Engine[Context] {
	t.Helper()
	ev := rules.NewEvaluator(rules.WithClock(func() time.Time {
		return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	}))
	m, err := core.NewMachine(questionnaire(), Registry(ev))
	require.NoError(t, err)
	e := core.NewEngine(m, NewContext("about", "children"))
	e.Start()
	return e
}

func send(t *testing.T, e *core.Engine[Context], event string, payload any) core.Snapshot[Context] {
	t.Helper()
	s, err := e.Send(event, payload)
	require.NoError(t, err)
	return s
}

func task(t *testing.T, s core.Snapshot[Context], id string) Task {
	t.Helper()
	tk, ok := s.Context().Task(id)
	require.True(t, ok, "task %s", id)
	return tk
}

func TestNewContext(t *testing.T) {
	c := NewContext("a", "b", "c")
	require.Len(t, c.Tasks, 3)
	assert.Equal(t, Incomplete, c.Tasks[0].Status)
	assert.Equal(t, CannotStart, c.Tasks[1].Status)
	assert.Equal(t, CannotStart, c.Tasks[2].Status)

	cur, ok := c.CurrentTask()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	assert.False(t, c.AllComplete())
	assert.False(t, NewContext().AllComplete())
}

func TestGuardOrderingOnAnswer(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{"q1 = baz takes the guarded candidate", answer("q1", "baz"), "q6"},
		{"other answer falls through", answer("q1", "qux"), "q2"},
		{"no payload falls through", nil, "q2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			s := send(t, e, "ANSWER", tt.payload)
			assert.Equal(t, []string{tt.want}, s.ActivePath())
		})
	}
}

func TestProgressTrail(t *testing.T) {
	e := newEngine(t)

	send(t, e, "ANSWER", answer("q1", "qux"))
	send(t, e, "ANSWER", answer("q2", "x"))
	s := send(t, e, "BACK", nil)
	assert.Equal(t, []string{"q2"}, s.ActivePath())
	assert.Equal(t, []string{"q2"}, task(t, s, "about").Progress, "one backward step removes the most recent entry")

	send(t, e, "ANSWER", answer("q2", "y"))
	s = send(t, e, "ANSWER", answer("q6", "z"))
	assert.Equal(t, []string{"summary"}, s.ActivePath())
	assert.Equal(t, []string{"q2", "q6", "summary"}, task(t, s, "about").Progress)
}

func TestProgressLengthMatchesForwardSteps(t *testing.T) {
	e := newEngine(t)
	steps := []any{answer("q1", "qux"), answer("q2", "x"), answer("q6", "y")}
	for n, payload := range steps {
		s := send(t, e, "ANSWER", payload)
		assert.Len(t, task(t, s, "about").Progress, n+1)
	}
}

func TestSummaryCompletesTaskAndUnlocksNext(t *testing.T) {
	e := newEngine(t)
	send(t, e, "ANSWER", answer("q1", "baz"))
	s := send(t, e, "ANSWER", answer("q6", "done"))

	about := task(t, s, "about")
	assert.Equal(t, Complete, about.Status)
	assert.Equal(t, Incomplete, task(t, s, "children").Status)

	// updateAnswers keys the payload by the target page
	v, ok := about.Answers.Resolve("summary.q6")
	require.True(t, ok)
	assert.Equal(t, "done", v)

	s = send(t, e, NextEvent, nil)
	assert.Equal(t, []string{"children.child"}, s.ActiveStatePaths())
}

func TestNextRoutesToCurrentTask(t *testing.T) {
	e := newEngine(t)
	send(t, e, "ANSWER", answer("q1", "qux"))

	s := send(t, e, NextEvent, nil)
	assert.Equal(t, []string{"about.q1"}, s.ActiveStatePaths(), "about is still the current task")
}

func TestRepeatLimit(t *testing.T) {
	e := newEngine(t)
	send(t, e, "ANSWER", answer("q1", "baz"))
	send(t, e, "ANSWER", answer("q6", "x"))
	send(t, e, NextEvent, nil)

	for i := 1; i <= 3; i++ {
		s := send(t, e, "ANSWER", answer("name", i))
		require.Equal(t, []string{"child"}, s.ActivePath(), "iteration %d", i)
	}
	s := send(t, e, "ANSWER", answer("name", 4))
	assert.Equal(t, []string{"done"}, s.ActivePath())

	children := task(t, s, "children")
	assert.Equal(t, 4, children.Answers.Count("child"))
	assert.Equal(t, []string{"child", "done"}, children.Progress)
	assert.Equal(t, Complete, children.Status)
	assert.True(t, s.Context().AllComplete())

	// nothing is current any more, so NEXT is a no-op
	next := send(t, e, NextEvent, nil)
	assert.False(t, next.Changed())
	assert.Equal(t, []string{"done"}, next.ActivePath())
}

func TestStatusNeverRegresses(t *testing.T) {
	c := NewContext("a", "b")
	c = c.WithStatus("a", Complete)
	assert.Equal(t, Complete, c.Tasks[0].Status)

	assert.Equal(t, Complete, c.WithStatus("a", Incomplete).Tasks[0].Status)
	assert.Equal(t, Complete, c.WithStatus("a", CannotStart).Tasks[0].Status)

	// re-entering a completed task's summary changes nothing
	again := UpdateStatus(core.ActionArgs[Context]{Context: c, Phase: core.PhaseEntry, State: "a.summary"})
	assert.Equal(t, c, again)
}

func TestActionsDoNotMutateInput(t *testing.T) {
	in := NewContext("about")
	in.Tasks[0].Progress = []string{"q1"}

	args := core.ActionArgs[Context]{
		Context: in,
		Event:   primitives.NewEvent("ANSWER", answer("q2", "x")),
		Phase:   core.PhaseTransition,
		State:   "about.q1",
		Source:  "about.q1",
		Target:  "about.q2",
	}
	out := AddToProgress(args)
	out = UpdateAnswers(core.ActionArgs[Context]{Context: out, Event: args.Event, Phase: core.PhaseTransition, Target: "about.q2"})
	out = AppendAnswer(core.ActionArgs[Context]{Context: out, Event: args.Event, Phase: core.PhaseTransition, Source: "about.q1"})

	assert.Equal(t, []string{"q1"}, in.Tasks[0].Progress)
	assert.Empty(t, in.Tasks[0].Answers)
	assert.Equal(t, []string{"q1", "q2"}, out.Tasks[0].Progress)
	assert.Equal(t, 1, out.Tasks[0].Answers.Count("q2"))
	assert.Equal(t, 1, out.Tasks[0].Answers.Count("q1"))
}

func TestRemoveFromProgressOnExit(t *testing.T) {
	c := NewContext("about")
	c.Tasks[0].Progress = []string{"q1", "q2", "q1", "q3"}

	out := RemoveFromProgress(core.ActionArgs[Context]{Context: c, Phase: core.PhaseExit, State: "about.q1"})
	assert.Equal(t, []string{"q1", "q2", "q3"}, out.Tasks[0].Progress)

	same := RemoveFromProgress(core.ActionArgs[Context]{Context: c, Phase: core.PhaseExit, State: "about.q9"})
	assert.Equal(t, c, same)
}

func TestClearAnswers(t *testing.T) {
	c := NewContext("about")
	c = UpdateAnswers(core.ActionArgs[Context]{
		Context: c,
		Event:   primitives.NewEvent("ANSWER", answer("q1", "x")),
		Phase:   core.PhaseTransition,
		Target:  "about.q2",
	})
	require.Len(t, c.Tasks[0].Answers, 1)

	out := ClearAnswers(core.ActionArgs[Context]{Context: c, Phase: core.PhaseEntry, State: "about"})
	assert.Empty(t, out.Tasks[0].Answers)
	assert.Len(t, c.Tasks[0].Answers, 1)
}

func TestTaskGuards(t *testing.T) {
	c := NewContext("a", "b").WithStatus("a", Complete).WithStatus("b", Incomplete)

	ok, err := IsCurrentTask(core.GuardArgs[Context]{Context: c, Params: map[string]any{"task": "b"}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsTaskComplete(core.GuardArgs[Context]{Context: c, Params: map[string]any{"task": "a"}})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = IsCurrentTask(core.GuardArgs[Context]{Context: c})
	assert.Error(t, err)

	_, err = IsTaskComplete(core.GuardArgs[Context]{Context: c, Params: map[string]any{"task": "zzz"}})
	assert.Error(t, err)
}

func TestConditionStoreOverlaysPayload(t *testing.T) {
	c := NewContext("about")
	args := core.GuardArgs[Context]{
		Context: c,
		Event:   primitives.NewEvent("ANSWER", answer("q1", "baz")),
		Source:  "about.q1",
	}
	v, ok := ConditionStore(args).Resolve("q1.q1")
	require.True(t, ok)
	assert.Equal(t, "baz", v)

	args.Event.Data = "not an object"
	_, ok = ConditionStore(args).Lookup("q1")
	assert.False(t, ok)
}

func TestRevisedAnswerDecidesBranch(t *testing.T) {
	mb := primitives.NewMachineBuilder("profile", "profile")
	profile := mb.Compound("profile", "name")
	alpha := progressing(ActionUpdateAnswers)
	alpha.Cond = "name = baz"
	profile.Atomic("name").
		Transition("ANSWER", "alpha", alpha).
		Transition("ANSWER", "beta", progressing(ActionUpdateAnswers))
	back := primitives.TransitionConfig{Actions: []string{ActionRemoveFromProgress}}
	profile.Atomic("alpha").Transition("BACK", "name", back)
	profile.Atomic("beta").Transition("BACK", "name", back)

	m, err := core.NewMachine(mb.MustBuild(), Registry(rules.NewEvaluator()))
	require.NoError(t, err)
	e := core.NewEngine(m, NewContext("profile"))
	e.Start()

	s := send(t, e, "ANSWER", answer("name", "foo"))
	require.Equal(t, []string{"beta"}, s.ActivePath())
	v, ok := s.Context().Answers().Resolve("beta.name")
	require.True(t, ok)
	assert.Equal(t, "foo", v)

	s = send(t, e, "BACK", nil)
	require.Equal(t, []string{"name"}, s.ActivePath())

	// the stale answer recorded under "beta" sorts before "name" but the
	// payload being sent is what the condition sees
	s = send(t, e, "ANSWER", answer("name", "baz"))
	assert.Equal(t, []string{"alpha"}, s.ActivePath())
}
