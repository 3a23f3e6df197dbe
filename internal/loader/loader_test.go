package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/formchart/internal/primitives"
)

func TestLoadFileQuestionnaire(t *testing.T) {
	def, err := LoadFile("testdata/questionnaire.yaml")
	require.NoError(t, err)

	assert.Equal(t, "apply", def.ID)
	assert.Equal(t, []string{"about", "children"}, def.TaskIDs())
	assert.Equal(t, map[string]string{"isBaz": "q1 = baz"}, def.Guards)

	next := def.On["NEXT"]
	require.Len(t, next, 2)
	assert.Equal(t, "isCurrentTask", next[1].Guard)
	assert.Equal(t, map[string]any{"task": "children"}, next[1].GuardParams)

	about, err := def.FindState("about")
	require.NoError(t, err)
	assert.Equal(t, primitives.Compound, about.Type, "type inferred from children")

	q1, err := def.FindState("about.q1")
	require.NoError(t, err)
	assert.Equal(t, primitives.Atomic, q1.Type)
	require.Len(t, q1.On["ANSWER"], 2)
	assert.Equal(t, []string{"addToProgress", "updateAnswers"}, q1.On["ANSWER"][0].Actions)

	child, err := def.FindState("children.child")
	require.NoError(t, err)
	assert.Equal(t, "AnsweredLessThan child 3", child.On["ANSWER"][0].Cond)

	summary, err := def.FindState("about.summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"updateStatus"}, summary.Entry)
}

func TestParseJSON(t *testing.T) {
	doc := `{
  "id": "tiny",
  "initial": "a",
  "states": [
    {"id": "a", "on": {"GO": [{"target": "b"}]}},
    {"id": "b"}
  ]
}`
	def, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "tiny", def.ID)
	assert.Equal(t, []string{"a", "b"}, def.TaskIDs(), "top-level states are the default tasks")
	assert.Equal(t, "b", def.States[0].On["GO"][0].Target)
	assert.Empty(t, def.Guards)
}

func TestParseParallelRoot(t *testing.T) {
	doc := `
id: both
type: parallel
states:
  - id: left
    initial: l1
    children: [{id: l1}]
  - id: right
    initial: r1
    children: [{id: r1}]
`
	def, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, primitives.Parallel, def.Type)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "  \n", "empty definition"},
		{"not yaml", "id: [", "decode definition"},
		{"unknown key", "id: x\ninitial: a\nstates: [{id: a}]\ncolour: red", "colour"},
		{"missing initial", "id: x\nstates: [{id: a}]", "initial state ID is required"},
		{"dangling target", "id: x\ninitial: a\nstates: [{id: a, on: {GO: [{target: nowhere}]}}]", "unresolved transition target"},
		{"unknown task", "id: x\ninitial: a\ntasks: [b]\nstates: [{id: a}]", `task "b"`},
		{"duplicate task", "id: x\ninitial: a\ntasks: [a, a]\nstates: [{id: a}]", `duplicate task "a"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("testdata/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read definition")
}
