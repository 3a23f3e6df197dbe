package production

import (
	"encoding/json"
	"testing"

	"github.com/awalterschulze/gographviz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/formchart/internal/primitives"
)

func chart() primitives.MachineConfig {
	mb := primitives.NewMachineBuilder("apply", "about")
	mb.On("NEXT", "children", primitives.TransitionConfig{Guard: "isCurrentTask"})
	about := mb.Compound("about", "q1")
	about.Atomic("q1").
		Transition("ANSWER", "q6", primitives.TransitionConfig{Cond: "q1 = baz"}).
		Transition("ANSWER", "q2")
	about.Atomic("q2").Transition("ANSWER", "q6")
	about.Atomic("q6")
	extra := mb.Parallel("extra")
	extra.Compound("pets", "cat").Atomic("cat")
	extra.Compound("people", "adult").Atomic("adult")
	mb.Compound("children", "child").Atomic("child")
	return mb.MustBuild()
}

func parse(t *testing.T, dot string) *gographviz.Graph {
	t.Helper()
	ast, err := gographviz.ParseString(dot)
	require.NoError(t, err, dot)
	g := gographviz.NewGraph()
	require.NoError(t, gographviz.Analyse(ast, g))
	return g
}

func attr(attrs gographviz.Attrs, key string) string {
	return attrs[gographviz.Attr(key)]
}

func TestExportDOT(t *testing.T) {
	dot, err := ExportDOT(chart(), []string{"about.q2"})
	require.NoError(t, err)
	g := parse(t, dot)

	for _, name := range []string{`"about.q1"`, `"about.q2"`, `"about.q6"`, `"extra.pets.cat"`, `"children.child"`, rootNode} {
		assert.True(t, g.IsNode(name), "node %s", name)
	}
	assert.True(t, g.IsSubGraph("cluster_about"))
	assert.True(t, g.IsSubGraph("cluster_extra_pets"))

	q2 := g.Nodes.Lookup[`"about.q2"`]
	assert.Equal(t, `"lightgreen"`, attr(q2.Attrs, "fillcolor"))
	q1 := g.Nodes.Lookup[`"about.q1"`]
	assert.Empty(t, attr(q1.Attrs, "fillcolor"))

	about := g.SubGraphs.SubGraphs["cluster_about"]
	assert.Equal(t, `"orange"`, attr(about.Attrs, "fillcolor"))
	extra := g.SubGraphs.SubGraphs["cluster_extra"]
	assert.Equal(t, `"lightblue"`, attr(extra.Attrs, "fillcolor"))

	labels := map[string]string{}
	for _, e := range g.Edges.Edges {
		labels[e.Src+"->"+e.Dst] += attr(e.Attrs, "label")
	}
	assert.Equal(t, `"ANSWER [q1 = baz]"`, labels[`"about.q1"->"about.q6"`])
	assert.Equal(t, `"ANSWER"`, labels[`"about.q1"->"about.q2"`])
	assert.Equal(t, `"NEXT [isCurrentTask]"`, labels[rootNode+`->"children"`])
	assert.Len(t, g.Edges.Edges, 4)
}

func TestExportDOTNoActiveStates(t *testing.T) {
	dot, err := ExportDOT(chart(), nil)
	require.NoError(t, err)
	g := parse(t, dot)
	for _, n := range g.Nodes.Nodes {
		assert.Empty(t, attr(n.Attrs, "fillcolor"), n.Name)
	}
}

func TestExportJSON(t *testing.T) {
	data, err := ExportJSON(chart())
	require.NoError(t, err)

	var back primitives.MachineConfig
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "apply", back.ID)
	assert.Len(t, back.States, 3)
}
