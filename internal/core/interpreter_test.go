package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/comalice/formchart/internal/primitives"
)

func (m *Machine[C]) mustIndex(t testing.TB, path string) int {
	t.Helper()
	n, ok := m.index[path]
	if !ok {
		t.Fatalf("no node %q", path)
	}
	return n
}

func (m *Machine[C]) pathsOf(ns []int) []string {
	return m.paths(ns)
}

func TestComputeDomain(t *testing.T) {
	m := mustMachine(t, tasksConfig())
	tests := []struct {
		owner, target, domain string
	}{
		{"a.x.y", "b.z", ""},
		{"a.x.y", "a.x.y", "a.x"},
		{"a", "a.x.y", "a"},
		{"a.x", "a", ""},
		{"", "b", ""},
	}
	for _, tt := range tests {
		got := m.computeDomain(m.mustIndex(t, tt.owner), m.mustIndex(t, tt.target))
		if m.nodes[got].path != tt.domain {
			t.Errorf("computeDomain(%q, %q) = %q, want %q", tt.owner, tt.target, m.nodes[got].path, tt.domain)
		}
	}
}

func TestGetEntryStates(t *testing.T) {
	m := mustMachine(t, tasksConfig())
	tests := []struct {
		domain, target string
		want           []string
	}{
		{"", "b.z", []string{"b", "b.z"}},
		{"", "b", []string{"b", "b.w"}},
		{"", "a", []string{"a", "a.x", "a.x.y"}},
		{"a.x", "a.x.y", []string{"a.x.y"}},
	}
	for _, tt := range tests {
		got := m.pathsOf(m.getEntryStates(m.mustIndex(t, tt.domain), m.mustIndex(t, tt.target)))
		if !equalStringSlices(got, tt.want) {
			t.Errorf("getEntryStates(%q, %q) = %v, want %v", tt.domain, tt.target, got, tt.want)
		}
	}
}

func parallelConfig() primitives.MachineConfig {
	mb := primitives.NewMachineBuilder("household", "intro")
	mb.Atomic("intro").Transition("BEGIN", "form")
	form := mb.Parallel("form")
	r1 := form.Compound("people", "p1")
	r1.Atomic("p1").Transition("GO", "p2")
	r1.Atomic("p2").Transition("BACK", "intro")
	r2 := form.Compound("pets", "c1")
	r2.Atomic("c1").Transition("GO", "c2").Transition("PET", "c2")
	r2.Atomic("c2")
	return mb.MustBuild()
}

func TestMachine_ParallelRegions(t *testing.T) {
	m := mustMachine(t, parallelFixture(t))

	s := send(t, m, m.Start(trace{}), "BEGIN")
	if got, want := s.ActiveStatePaths(), []string{"form.people.p1", "form.pets.c1"}; !equalStringSlices(got, want) {
		t.Fatalf("entering a parallel node: %v, want %v", got, want)
	}

	// both regions declare GO; the first active leaf in document order decides
	s = send(t, m, s, "GO")
	if got, want := s.ActiveStatePaths(), []string{"form.people.p2", "form.pets.c1"}; !equalStringSlices(got, want) {
		t.Fatalf("after GO: %v, want %v", got, want)
	}

	s = send(t, m, s, "PET")
	if got, want := s.ActiveStatePaths(), []string{"form.people.p2", "form.pets.c2"}; !equalStringSlices(got, want) {
		t.Fatalf("after PET: %v, want %v", got, want)
	}
	if got, want := s.ActivePath(), []string{"p2", "c2"}; !equalStringSlices(got, want) {
		t.Errorf("ActivePath() = %v, want %v", got, want)
	}

	// leaving the parallel node exits every region
	s = send(t, m, s, "BACK")
	if got, want := s.ActiveStatePaths(), []string{"intro"}; !equalStringSlices(got, want) {
		t.Errorf("after BACK: %v, want %v", got, want)
	}
}

func parallelFixture(t *testing.T) primitives.MachineConfig {
	t.Helper()
	cfg := parallelConfig()
	form, err := cfg.FindState("form")
	if err != nil {
		t.Fatal(err)
	}
	for _, region := range form.Children {
		region.WithExit("leave")
	}
	return cfg
}

func TestMachine_ParallelExitOrder(t *testing.T) {
	m := mustMachine(t, parallelFixture(t))
	s := send(t, m, m.Start(trace{}), "BEGIN")
	s = send(t, m, s, "GO")
	start := len(s.Context().Log)

	s = send(t, m, s, "BACK")
	// equal depth exits in reverse document order
	want := []string{"exit:leave@form.pets", "exit:leave@form.people"}
	if got := s.Context().Log[start:]; !equalStringSlices(got, want) {
		t.Errorf("exit log = %v, want %v", got, want)
	}
}

func TestMachine_ParallelRoot(t *testing.T) {
	mb := primitives.NewMachineBuilder("tasks", "").ParallelRoot()
	mb.Atomic("left").Transition("TICK", "left")
	mb.Atomic("right")

	m := mustMachine(t, mb.MustBuild())
	s := m.Start(trace{})
	if got, want := s.ActiveStatePaths(), []string{"left", "right"}; !equalStringSlices(got, want) {
		t.Errorf("ActiveStatePaths() = %v, want %v", got, want)
	}
}

func TestMachine_DeepestDeclarationWins(t *testing.T) {
	mb := primitives.NewMachineBuilder("regions", "").ParallelRoot()
	mb.On("GO", "a.a2")
	a := mb.Compound("a", "a1")
	a.Atomic("a1")
	a.Atomic("a2")
	b := mb.Compound("b", "b1")
	b.Atomic("b1").Transition("GO", "b2")
	b.Atomic("b2")

	m := mustMachine(t, mb.MustBuild())
	s := send(t, m, m.Start(trace{}), "GO")
	// b.b1 is deeper than the root, so its GO beats the root-level one even
	// though region a comes first
	if got, want := s.ActiveStatePaths(), []string{"a.a1", "b.b2"}; !equalStringSlices(got, want) {
		t.Fatalf("after GO: %v, want %v", got, want)
	}

	// with no deeper declaration left, the root decides
	s = send(t, m, s, "GO")
	if got, want := s.ActiveStatePaths(), []string{"a.a2", "b.b1"}; !equalStringSlices(got, want) {
		t.Errorf("after second GO: %v, want %v", got, want)
	}
}

func TestMachine_RestoreRejectsIllegalConfigurations(t *testing.T) {
	tasks := mustMachine(t, tasksConfig())
	regions := mustMachine(t, parallelFixture(t))

	tests := []struct {
		name    string
		m       *Machine[trace]
		current []string
	}{
		{"two leaves under one compound", tasks, []string{"a.x.y", "b.z"}},
		{"siblings", tasks, []string{"b.w", "b.z"}},
		{"duplicate leaf", tasks, []string{"b.z", "b.z"}},
		{"missing region", regions, []string{"form.people.p1"}},
		{"parallel plus outside leaf", regions, []string{"intro", "form.people.p1", "form.pets.c1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := SnapshotRecord[trace]{MachineID: tt.m.config.ID, Current: tt.current}
			if _, err := tt.m.Restore(rec); !errors.Is(err, ErrUnknownState) {
				t.Errorf("Restore(%v) err = %v, want ErrUnknownState", tt.current, err)
			}
		})
	}

	rec := SnapshotRecord[trace]{MachineID: "household", Current: []string{"form.pets.c2", "form.people.p1"}}
	s, err := regions.Restore(rec)
	if err != nil {
		t.Fatalf("legal parallel configuration: %v", err)
	}
	if got, want := s.ActiveStatePaths(), []string{"form.people.p1", "form.pets.c2"}; !equalStringSlices(got, want) {
		t.Errorf("ActiveStatePaths() = %v, want %v", got, want)
	}
}

func TestMachine_ConcurrentSessions(t *testing.T) {
	m := mustMachine(t, tasksConfig())

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := m.Start(trace{})
			for j := 0; j < 50; j++ {
				next, err := m.Transition(s, primitives.NewEvent("LOOP", nil))
				if err != nil {
					errs <- err.Error()
					return
				}
				s = next
			}
			if got := s.ActiveStatePaths(); !equalStringSlices(got, []string{"a.x.y"}) {
				errs <- "unexpected state"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

// BenchmarkTransition measures a single leaf-to-leaf transition.
func BenchmarkTransition(b *testing.B) {
	mb := primitives.NewMachineBuilder("bench", "s1")
	mb.Atomic("s1").Transition("GO", "s2")
	mb.Atomic("s2").Transition("GO", "s1")
	m, err := NewMachine(mb.MustBuild(), Registry[struct{}]{})
	if err != nil {
		b.Fatalf("Failed to create machine: %v", err)
	}
	s := m.Start(struct{}{})
	event := primitives.NewEvent("GO", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, _ = m.Transition(s, event)
	}
}

// BenchmarkCrossTaskTransition measures a deep exit/entry across task regions.
func BenchmarkCrossTaskTransition(b *testing.B) {
	m, err := NewMachine(tasksConfig(), testRegistry())
	if err != nil {
		b.Fatalf("Failed to create machine: %v", err)
	}
	start := m.Start(trace{})
	event := primitives.NewEvent("JUMP", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Transition(start, event)
	}
}
