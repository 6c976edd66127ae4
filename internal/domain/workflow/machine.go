package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides at fire time whether a configured transition may be
// taken. Guards read their inputs from the context.
type GuardFunc func(ctx context.Context) bool

// edge is one permitted transition out of a state. A nil guard always
// passes.
type edge struct {
	target State
	guard  GuardFunc
}

// Machine tracks the position of a single request in the lifecycle and
// enforces which triggers may fire from it. A Machine is not safe for
// concurrent use; callers serialize access per request.
type Machine struct {
	current State
	table   map[State]map[Trigger][]edge
}

// State returns the current state
func (m *Machine) State() State {
	return m.current
}

// CanFire reports whether the trigger has at least one configured edge
// from the current state. Guards need a context to evaluate, so a
// guarded edge counts here; Fire may still reject it.
func (m *Machine) CanFire(trigger Trigger) bool {
	return len(m.table[m.current][trigger]) > 0
}

// Fire advances the machine along the first edge for trigger whose
// guard passes. The state is unchanged on error.
func (m *Machine) Fire(ctx context.Context, trigger Trigger) error {
	edges := m.table[m.current][trigger]
	if len(edges) == 0 {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, e := range edges {
		if e.guard == nil || e.guard(ctx) {
			m.current = e.target
			return nil
		}
	}

	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

// PermittedTriggers lists the triggers with at least one edge out of
// the current state, in a stable order.
func (m *Machine) PermittedTriggers() []Trigger {
	byTrigger := m.table[m.current]

	triggers := make([]Trigger, 0, len(byTrigger))
	for trigger := range byTrigger {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })

	return triggers
}
