package production

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/primitives"
)

func publishMachine(t *testing.T, p core.Publisher) *core.Machine[int] {
	t.Helper()
	mb := primitives.NewMachineBuilder("apply", "q1")
	mb.Atomic("q1").Transition("ANSWER", "q2")
	mb.Atomic("q2")
	m, err := core.NewMachine(mb.MustBuild(), core.Registry[int]{}, core.WithPublisher(p))
	require.NoError(t, err)
	return m
}

func TestChannelPublisher(t *testing.T) {
	ch := make(chan core.TransitionInfo, 1)
	p := NewChannelPublisher(ch)
	m := publishMachine(t, p)

	s, err := m.Transition(m.Start(0), primitives.NewEvent("ANSWER", nil))
	require.NoError(t, err)

	info := <-ch
	assert.Equal(t, "apply", info.MachineID)
	assert.Equal(t, "ANSWER", info.Event.Type)
	assert.True(t, info.Fired)
	assert.Equal(t, []string{"q1"}, info.From)
	assert.Equal(t, []string{"q2"}, info.To)

	// buffer of one: the second info is dropped instead of blocking
	_, err = m.Transition(s, primitives.NewEvent("UNKNOWN", nil))
	require.NoError(t, err)
	_, err = m.Transition(s, primitives.NewEvent("UNKNOWN", nil))
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Dropped())

	ignored := <-ch
	assert.False(t, ignored.Fired)
	require.NoError(t, p.Close())
}

func TestMetricsPublisher(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewMetricsPublisher(reg)
	require.NoError(t, err)
	m := publishMachine(t, p)

	s, err := m.Transition(m.Start(0), primitives.NewEvent("ANSWER", nil))
	require.NoError(t, err)
	for range 2 {
		_, err = m.Transition(s, primitives.NewEvent("BACK", nil))
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(p.transitions.WithLabelValues("apply", "ANSWER", "q2")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.ignored.WithLabelValues("apply", "BACK")))

	expected := `
# HELP formchart_ignored_events_total Total number of events that selected no transition
# TYPE formchart_ignored_events_total counter
formchart_ignored_events_total{event="BACK",machine="apply"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "formchart_ignored_events_total"))
}

func TestMetricsPublisherDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetricsPublisher(reg)
	require.NoError(t, err)
	_, err = NewMetricsPublisher(reg)
	assert.Error(t, err)
}

type failing struct{ calls int }

func (f *failing) Publish(core.TransitionInfo) error {
	f.calls++
	return errors.New("unavailable")
}

func TestPublishersFanOut(t *testing.T) {
	ch := make(chan core.TransitionInfo, 1)
	f := &failing{}
	ps := Publishers{f, NewChannelPublisher(ch)}

	err := ps.Publish(core.TransitionInfo{MachineID: "apply"})
	assert.Error(t, err)
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, "apply", (<-ch).MachineID)
}
