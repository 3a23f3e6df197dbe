// Package primitives includes builder helpers for MachineConfig.
package primitives

// MachineBuilder builds hierarchical MachineConfig fluently.
//
//	mb := NewMachineBuilder("apply", "identity")
//	id := mb.Compound("identity", "name")
//	id.Atomic("name").Transition("ANSWER", "dob")
//	id.Atomic("dob")
//	cfg, err := mb.Build()
type MachineBuilder struct {
	config *MachineConfig
}

// NewMachineBuilder creates a new MachineBuilder with a compound root.
func NewMachineBuilder(id, initial string) *MachineBuilder {
	return &MachineBuilder{
		config: &MachineConfig{ID: id, Type: Compound, Initial: initial},
	}
}

// ParallelRoot turns the root into a parallel node: every top-level state is a region.
func (b *MachineBuilder) ParallelRoot() *MachineBuilder {
	b.config.Type = Parallel
	b.config.Initial = ""
	return b
}

// On adds a root-level transition candidate.
func (b *MachineBuilder) On(event, target string, opts ...TransitionConfig) *MachineBuilder {
	trans := TransitionConfig{}
	if len(opts) > 0 {
		trans = opts[0]
	}
	trans.Target = target
	if b.config.On == nil {
		b.config.On = make(map[string][]TransitionConfig)
	}
	b.config.On[event] = append(b.config.On[event], trans)
	return b
}

// Entry sets root entry actions.
func (b *MachineBuilder) Entry(actions ...string) *MachineBuilder {
	b.config.Entry = actions
	return b
}

// Compound starts a top-level compound state.
func (b *MachineBuilder) Compound(id, initial string) *StateBuilder {
	return b.add(NewStateConfig(id, Compound).WithInitial(initial))
}

// Parallel starts a top-level parallel state.
func (b *MachineBuilder) Parallel(id string) *StateBuilder {
	return b.add(NewStateConfig(id, Parallel))
}

// Atomic starts a top-level atomic state.
func (b *MachineBuilder) Atomic(id string) *StateBuilder {
	return b.add(NewStateConfig(id, Atomic))
}

func (b *MachineBuilder) add(s *StateConfig) *StateBuilder {
	b.config.States = append(b.config.States, s)
	return &StateBuilder{state: s, mb: b}
}

// Build validates and returns the configuration.
func (b *MachineBuilder) Build() (MachineConfig, error) {
	if err := b.config.Validate(); err != nil {
		return MachineConfig{}, err
	}
	return *b.config, nil
}

// MustBuild is Build for static definitions; it panics on an invalid configuration.
func (b *MachineBuilder) MustBuild() MachineConfig {
	cfg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return cfg
}

// StateBuilder for fluent transitions/nesting.
type StateBuilder struct {
	state  *StateConfig
	parent *StateBuilder
	mb     *MachineBuilder
}

// Config exposes the state being built.
func (sb *StateBuilder) Config() *StateConfig {
	return sb.state
}

// Transition adds a transition candidate.
func (sb *StateBuilder) Transition(event, target string, opts ...TransitionConfig) *StateBuilder {
	sb.state.Transition(event, target, opts...)
	return sb
}

// Entry appends entry actions.
func (sb *StateBuilder) Entry(actions ...string) *StateBuilder {
	sb.state.Entry = append(sb.state.Entry, actions...)
	return sb
}

// Exit appends exit actions.
func (sb *StateBuilder) Exit(actions ...string) *StateBuilder {
	sb.state.Exit = append(sb.state.Exit, actions...)
	return sb
}

// Compound nests a compound child.
func (sb *StateBuilder) Compound(id, initial string) *StateBuilder {
	child := sb.state.State(id, Compound).WithInitial(initial)
	return &StateBuilder{state: child, parent: sb, mb: sb.mb}
}

// Parallel nests a parallel child.
func (sb *StateBuilder) Parallel(id string) *StateBuilder {
	child := sb.state.State(id, Parallel)
	return &StateBuilder{state: child, parent: sb, mb: sb.mb}
}

// Atomic nests an atomic child.
func (sb *StateBuilder) Atomic(id string) *StateBuilder {
	child := sb.state.State(id)
	return &StateBuilder{state: child, parent: sb, mb: sb.mb}
}

// Up returns the parent builder (itself for top-level states).
func (sb *StateBuilder) Up() *StateBuilder {
	if sb.parent != nil {
		return sb.parent
	}
	return sb
}

// Machine returns the owning MachineBuilder.
func (sb *StateBuilder) Machine() *MachineBuilder {
	return sb.mb
}
