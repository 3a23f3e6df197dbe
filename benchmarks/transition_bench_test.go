// Package benchmarks provides performance benchmarks for interpreter transitions.
package benchmarks

import (
	"fmt"
	"testing"

	"github.com/comalice/formchart/internal/answers"
	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/extensibility"
	"github.com/comalice/formchart/internal/primitives"
	"github.com/comalice/formchart/internal/rules"
)

func benchTransitions(b *testing.B, m *core.Machine[answers.Store], ctx answers.Store) {
	s := m.Start(ctx)
	e := primitives.NewEvent("ANSWER", nil)
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var err error
		if s, err = m.Transition(s, e); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSimpleTransition(b *testing.B) {
	benchTransitions(b, MustMachine(GenFlatConfig(1), core.Registry[answers.Store]{}), nil)
}

func BenchmarkHierarchicalTransition(b *testing.B) {
	for _, depth := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("depth=%d", depth), func(b *testing.B) {
			benchTransitions(b, MustMachine(GenDeepConfig(depth), core.Registry[answers.Store]{}), nil)
		})
	}
}

func BenchmarkParallelTransition(b *testing.B) {
	for _, n := range []int{2, 8} {
		b.Run(fmt.Sprintf("regions=%d", n), func(b *testing.B) {
			benchTransitions(b, MustMachine(GenParallelConfig(n), core.Registry[answers.Store]{}), nil)
		})
	}
}

func BenchmarkRuleGuardedTransition(b *testing.B) {
	ev := rules.NewEvaluator()
	reg := core.Registry[answers.Store]{
		Conditions: extensibility.RuleConditions(ev, func(a core.GuardArgs[answers.Store]) answers.Store { return a.Context }),
	}
	ctx := answers.Store{"q": answers.Single(answers.Entry{"q": {Value: "hit"}})}
	for _, n := range []int{1, 10, 50} {
		b.Run(fmt.Sprintf("candidates=%d", n), func(b *testing.B) {
			benchTransitions(b, MustMachine(GenWideRules(n), reg), ctx)
		})
	}
}
