package benchmarks

import (
	"testing"

	"github.com/comalice/formchart/internal/answers"
	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/primitives"
)

// BenchmarkSessionThroughput drives one shared machine from many goroutines,
// each holding its own session snapshot.
func BenchmarkSessionThroughput(b *testing.B) {
	m := MustMachine(GenFlatConfig(20), core.Registry[answers.Store]{})
	e := primitives.NewEvent("ANSWER", nil)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		s := m.Start(nil)
		for pb.Next() {
			var err error
			if s, err = m.Transition(s, e); err != nil {
				b.Error(err)
				return
			}
		}
	})
	b.ReportMetric(float64(b.N)/b.Elapsed().Seconds(), "events/sec")
}
