// Package benchmarks provides shared helpers for the interpreter and rule
// evaluation benchmarks.
package benchmarks

import (
	"fmt"

	"github.com/comalice/formchart/internal/answers"
	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/primitives"
)

// GenFlatConfig creates a flat machine with n atomic pages cycling via "ANSWER" events.
func GenFlatConfig(n int) primitives.MachineConfig {
	if n < 1 {
		n = 1
	}
	mb := primitives.NewMachineBuilder(fmt.Sprintf("flat_%d", n), "s0")
	for i := 0; i < n; i++ {
		mb.Atomic(fmt.Sprintf("s%d", i)).Transition("ANSWER", fmt.Sprintf("s%d", (i+1)%n))
	}
	return mb.MustBuild()
}

// GenDeepConfig nests depth compound states and flips between two leaves at the bottom.
func GenDeepConfig(depth int) primitives.MachineConfig {
	if depth < 1 {
		depth = 1
	}
	mb := primitives.NewMachineBuilder(fmt.Sprintf("deep_%d", depth), "c0")
	next := "leaf1"
	if depth > 1 {
		next = "c1"
	}
	sb := mb.Compound("c0", next)
	for i := 1; i < depth; i++ {
		next = "leaf1"
		if i+1 < depth {
			next = fmt.Sprintf("c%d", i+1)
		}
		sb = sb.Compound(fmt.Sprintf("c%d", i), next)
	}
	sb.Atomic("leaf1").Transition("ANSWER", "leaf2")
	sb.Atomic("leaf2").Transition("ANSWER", "leaf1")
	return mb.MustBuild()
}

// GenParallelConfig creates a parallel root with n regions, each flipping between two pages.
func GenParallelConfig(n int) primitives.MachineConfig {
	mb := primitives.NewMachineBuilder(fmt.Sprintf("parallel_%d", n), "").ParallelRoot()
	for i := 0; i < n; i++ {
		r := mb.Compound(fmt.Sprintf("r%d", i), "a")
		r.Atomic("a").Transition("ANSWER", "b")
		r.Atomic("b").Transition("ANSWER", "a")
	}
	return mb.MustBuild()
}

// GenWideRules creates one page with n rule-guarded ANSWER candidates; only the last matches.
func GenWideRules(n int) primitives.MachineConfig {
	mb := primitives.NewMachineBuilder(fmt.Sprintf("wide_%d", n), "q")
	q := mb.Atomic("q")
	for i := 0; i < n-1; i++ {
		q.Transition("ANSWER", "q", primitives.TransitionConfig{Cond: fmt.Sprintf("q = v%d", i)})
	}
	q.Transition("ANSWER", "q", primitives.TransitionConfig{Cond: "q = hit"})
	return mb.MustBuild()
}

// MustMachine compiles config over answer-store contexts.
func MustMachine(config primitives.MachineConfig, reg core.Registry[answers.Store]) *core.Machine[answers.Store] {
	m, err := core.NewMachine(config, reg)
	if err != nil {
		panic(err)
	}
	return m
}
