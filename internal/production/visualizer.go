package production

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/awalterschulze/gographviz"

	"github.com/comalice/formchart/internal/primitives"
)

const rootNode = `"$root"`

// ExportDOT renders the chart as Graphviz DOT. Compound and parallel states
// become clusters, every transition candidate becomes an edge labelled with
// its event and any guard or cond, and the states on the current active paths
// are filled.
func ExportDOT(config primitives.MachineConfig, current []string) (string, error) {
	g := gographviz.NewGraph()
	name := quote(config.ID)
	if err := g.SetName(name); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}
	for k, v := range map[string]string{"rankdir": "LR", "compound": "true", "fontsize": "10"} {
		if err := g.AddAttr(name, k, v); err != nil {
			return "", err
		}
	}

	active := activeStates(current)
	if err := g.AddNode(name, rootNode, map[string]string{
		"label": quote(config.ID),
		"shape": quote("doublecircle"),
	}); err != nil {
		return "", err
	}
	for _, s := range config.States {
		if err := addState(g, name, s.ID, s, active); err != nil {
			return "", err
		}
	}

	err := config.Walk(func(path string, s *primitives.StateConfig) error {
		src := rootNode
		if path != "" {
			src = quote(path)
		}
		events := make([]string, 0, len(s.On))
		for event := range s.On {
			events = append(events, event)
		}
		sort.Strings(events)
		for _, event := range events {
			for _, t := range s.On[event] {
				target, err := config.ResolveTarget(path, t)
				if err != nil {
					return err
				}
				if err := g.AddEdge(src, quote(target), true, map[string]string{"label": quote(edgeLabel(event, t))}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("export dot: %w", err)
	}
	return g.String(), nil
}

// ExportJSON serializes the machine config to indented JSON.
func ExportJSON(config primitives.MachineConfig) ([]byte, error) {
	return json.MarshalIndent(config, "", "  ")
}

func addState(g *gographviz.Graph, parent, path string, s *primitives.StateConfig, active map[string]bool) error {
	if s.IsLeaf() {
		attrs := map[string]string{"label": quote(s.ID), "shape": quote("box")}
		if active[path] {
			attrs["style"] = quote("filled")
			attrs["fillcolor"] = quote("lightgreen")
		}
		return g.AddNode(parent, quote(path), attrs)
	}

	cluster := "cluster_" + strings.Map(idRune, path)
	attrs := map[string]string{"label": quote(fmt.Sprintf("%s (%s)", s.ID, s.Type))}
	switch {
	case active[path]:
		attrs["style"] = quote("filled")
		attrs["fillcolor"] = quote("orange")
	case s.Type == primitives.Parallel:
		attrs["style"] = quote("filled")
		attrs["fillcolor"] = quote("lightblue")
	}
	if err := g.AddSubGraph(parent, cluster, attrs); err != nil {
		return err
	}
	if err := g.AddNode(cluster, quote(path), map[string]string{"label": quote(s.ID), "shape": quote("ellipse")}); err != nil {
		return err
	}
	for _, child := range s.Children {
		if err := addState(g, cluster, primitives.JoinPath(path, child.ID), child, active); err != nil {
			return err
		}
	}
	return nil
}

func edgeLabel(event string, t primitives.TransitionConfig) string {
	var b strings.Builder
	b.WriteString(event)
	if t.Guard != "" {
		fmt.Fprintf(&b, " [%s]", t.Guard)
	}
	if t.Cond != "" {
		fmt.Fprintf(&b, " [%s]", t.Cond)
	}
	return b.String()
}

// activeStates returns the active leaf paths and all their ancestors.
func activeStates(current []string) map[string]bool {
	active := make(map[string]bool)
	for _, path := range current {
		for p := path; p != ""; p = primitives.ParentPath(p) {
			active[p] = true
		}
	}
	return active
}

// idRune maps r to a character valid in an unquoted DOT id.
func idRune(r rune) rune {
	if r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
		return r
	}
	return '_'
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
