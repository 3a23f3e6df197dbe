package extensibility

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/formchart/internal/answers"
	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/primitives"
	"github.com/comalice/formchart/internal/rules"
)

const script = `
- event: ANSWER
  payload:
    q1: {value: baz}
- event: BACK
- event: ANSWER
  payload:
    q1: qux
`

func TestLoadScript(t *testing.T) {
	events, err := LoadScript(strings.NewReader(script))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "ANSWER", events[0].Type)
	sec, err := answers.FromPayload(events[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "baz", sec.Entry["q1"].Value)

	assert.Equal(t, "BACK", events[1].Type)
	assert.Nil(t, events[1].Data)
}

func TestLoadScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not a list", "event: ANSWER"},
		{"unknown key", "- event: ANSWER\n  pyload: {}"},
		{"missing event", "- payload: {}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScript(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}

	events, err := LoadScript(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func scriptedEngine(t *testing.T) *core.Engine[answers.Store] {
	t.Helper()
	mb := primitives.NewMachineBuilder("script", "q1")
	mb.Atomic("q1").
		Transition("ANSWER", "q6", primitives.TransitionConfig{Cond: "q1 = baz"}).
		Transition("ANSWER", "q2")
	mb.Atomic("q2").Transition("BACK", "q1")
	mb.Atomic("q6").Transition("BACK", "q1")
	m, err := core.NewMachine(mb.MustBuild(), core.Registry[answers.Store]{
		Conditions: RuleConditions(rules.NewEvaluator(), overlay),
	})
	require.NoError(t, err)
	e := core.NewEngine(m, answers.Store{})
	e.Start()
	return e
}

func TestDriveScript(t *testing.T) {
	events, err := LoadScript(strings.NewReader(script))
	require.NoError(t, err)

	e := scriptedEngine(t)
	var visited []string
	err = Drive(context.Background(), e, NewScriptEventSource(events), func(ev primitives.Event, s core.Snapshot[answers.Store]) {
		visited = append(visited, s.ActivePath()...)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"q6", "q1", "q2"}, visited)
}

func TestDriveChannel(t *testing.T) {
	e := scriptedEngine(t)
	ch := make(chan primitives.Event, 1)
	src := NewChannelEventSource(ch)

	done := make(chan error, 1)
	go func() { done <- Drive(context.Background(), e, src, nil) }()

	ch <- primitives.NewEvent("ANSWER", answer("q1", "x"))
	close(ch)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Drive did not return after the channel closed")
	}
	assert.Equal(t, []string{"q2"}, e.Snapshot().ActivePath())
}

func TestDriveStopsOnCancel(t *testing.T) {
	e := scriptedEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Drive(ctx, e, NewChannelEventSource(make(chan primitives.Event)), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDriveRequiresStartedEngine(t *testing.T) {
	mb := primitives.NewMachineBuilder("idle", "a")
	mb.Atomic("a")
	m, err := core.NewMachine(mb.MustBuild(), core.Registry[answers.Store]{})
	require.NoError(t, err)

	err = Drive(context.Background(), core.NewEngine(m, answers.Store{}),
		NewScriptEventSource([]primitives.Event{primitives.NewEvent("GO", nil)}), nil)
	assert.ErrorIs(t, err, core.ErrNotStarted)
}
