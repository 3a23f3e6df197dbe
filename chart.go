package formchart

import (
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/extensibility"
	"github.com/comalice/formchart/internal/loader"
	"github.com/comalice/formchart/internal/production"
	"github.com/comalice/formchart/internal/progress"
	"github.com/comalice/formchart/internal/rules"
)

// Definition is a decoded questionnaire document.
type Definition = loader.Definition

// Chart is a compiled questionnaire: the shared machine wired with the
// progress actions, task guards, the definition's rule guards and a rules
// condition evaluator. A Chart is safe for concurrent use.
type Chart struct {
	def     Definition
	machine *core.Machine[Context]
}

type chartOptions struct {
	logger    *slog.Logger
	publisher core.Publisher
	now       func() time.Time
	guards    map[string]core.Guard[Context]
	actions   map[string]core.Action[Context]
}

// Option configures Compile.
type Option func(*chartOptions)

// WithLogger logs interpreter decisions and every action run at Debug.
func WithLogger(l *slog.Logger) Option {
	return func(o *chartOptions) { o.logger = l }
}

// WithPublisher reports every processed event to p.
func WithPublisher(p core.Publisher) Option {
	return func(o *chartOptions) { o.publisher = p }
}

// WithClock sets the time source of date operators and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *chartOptions) { o.now = now }
}

// WithGuards registers extra guards. Names must not collide with built-in or
// definition guards.
func WithGuards(guards map[string]core.Guard[Context]) Option {
	return func(o *chartOptions) { o.guards = guards }
}

// WithActions registers extra actions. Names must not collide with the
// progress actions.
func WithActions(actions map[string]core.Action[Context]) Option {
	return func(o *chartOptions) { o.actions = actions }
}

// Load reads a definition file and compiles it.
func Load(path string, opts ...Option) (*Chart, error) {
	def, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Compile(def, opts...)
}

// Compile builds the shared machine for def.
func Compile(def Definition, opts ...Option) (*Chart, error) {
	o := chartOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	ev := rules.NewEvaluator(rules.WithClock(o.now))
	reg := progress.Registry(ev)
	named, err := extensibility.ExpressionGuards(ev, progress.ConditionStore, def.Guards)
	if err != nil {
		return nil, err
	}
	for _, extra := range []map[string]core.Guard[Context]{named, o.guards} {
		if err := addNew(reg.Guards, extra, "guard"); err != nil {
			return nil, err
		}
	}
	if err := addNew(reg.Actions, o.actions, "action"); err != nil {
		return nil, err
	}

	machineOpts := []core.Option{core.WithClock(o.now)}
	if o.logger != nil {
		reg.Actions = extensibility.LogActions(o.logger, reg.Actions)
		machineOpts = append(machineOpts, core.WithLogger(o.logger))
	}
	if o.publisher != nil {
		machineOpts = append(machineOpts, core.WithPublisher(o.publisher))
	}

	m, err := core.NewMachine(def.MachineConfig, reg, machineOpts...)
	if err != nil {
		return nil, err
	}
	return &Chart{def: def, machine: m}, nil
}

func addNew[V any](dst, src map[string]V, kind string) error {
	for name := range src {
		if _, taken := dst[name]; taken {
			return fmt.Errorf("%s %q is already registered", kind, name)
		}
	}
	maps.Copy(dst, src)
	return nil
}

// Machine returns the compiled machine.
func (c *Chart) Machine() *core.Machine[Context] {
	return c.machine
}

// Definition returns the document the chart was compiled from.
func (c *Chart) Definition() Definition {
	return c.def
}

// Tasks returns the task ids in order.
func (c *Chart) Tasks() []string {
	return c.def.TaskIDs()
}

// NewContext returns a fresh progress context for the chart's tasks.
func (c *Chart) NewContext() Context {
	return progress.NewContext(c.Tasks()...)
}

// NewEngine starts a new session.
func (c *Chart) NewEngine() *Engine[Context] {
	e := core.NewEngine(c.machine, c.NewContext())
	e.Start()
	return e
}

// Resume rebuilds a session from a stored record.
func (c *Chart) Resume(rec SnapshotRecord[Context]) (*Engine[Context], error) {
	e := core.NewEngine(c.machine, c.NewContext())
	if err := e.Restore(rec); err != nil {
		return nil, err
	}
	return e, nil
}

// DOT renders the chart with the given active paths highlighted.
func (c *Chart) DOT(active []string) (string, error) {
	return production.ExportDOT(c.def.MachineConfig, active)
}
