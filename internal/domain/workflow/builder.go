package workflow

import "fmt"

// Builder assembles the transition table once at startup. Build hands
// out independent machines over a snapshot of it, so one builder can
// serve every request in the system.
type Builder struct {
	configs map[State]*StateConfig
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{configs: make(map[State]*StateConfig)}
}

// StateConfig collects the outgoing transitions of one state
type StateConfig struct {
	edges map[Trigger][]edge
}

// Configure returns the configuration for state, creating it on first
// use. Calling Configure twice for the same state returns the same
// configuration. Panics on an unknown state; the lifecycle is fixed at
// compile time and a typo here is a programming error.
func (b *Builder) Configure(state State) *StateConfig {
	if !state.IsValid() {
		panic(fmt.Sprintf("workflow: configure unknown state %q", state))
	}

	cfg, ok := b.configs[state]
	if !ok {
		cfg = &StateConfig{edges: make(map[Trigger][]edge)}
		b.configs[state] = cfg
	}
	return cfg
}

// Permit registers an unconditional transition
func (c *StateConfig) Permit(trigger Trigger, target State) *StateConfig {
	return c.PermitIf(trigger, target, nil)
}

// PermitIf registers a guarded transition. Several edges may share a
// trigger; Fire takes the first whose guard passes, in registration
// order.
func (c *StateConfig) PermitIf(trigger Trigger, target State, guard GuardFunc) *StateConfig {
	if !target.IsValid() {
		panic(fmt.Sprintf("workflow: permit unknown target state %q", target))
	}

	c.edges[trigger] = append(c.edges[trigger], edge{target: target, guard: guard})
	return c
}

// Build returns a machine positioned at initial. The transition table
// is copied so later Configure calls and other machines never leak into
// it.
func (b *Builder) Build(initial State) *Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("workflow: build from unknown state %q", initial))
	}

	table := make(map[State]map[Trigger][]edge, len(b.configs))
	for state, cfg := range b.configs {
		byTrigger := make(map[Trigger][]edge, len(cfg.edges))
		for trigger, edges := range cfg.edges {
			byTrigger[trigger] = append([]edge(nil), edges...)
		}
		table[state] = byTrigger
	}

	return &Machine{current: initial, table: table}
}
