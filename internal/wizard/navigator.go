package wizard

import "math"

// Navigator computes sequence arithmetic over a Registry. It holds no state
// of its own and is safe for concurrent use. Unknown step keys never error:
// they yield no neighbours and zero progress so callers can fall back to the
// first step.
type Navigator struct {
	registry *Registry
}

// NewNavigator wraps a registry.
func NewNavigator(registry *Registry) *Navigator {
	return &Navigator{registry: registry}
}

// Registry exposes the underlying catalogue.
func (n *Navigator) Registry() *Registry {
	return n.registry
}

// Next returns the step after current. False when current is last or unknown.
func (n *Navigator) Next(current string) (Step, bool) {
	i := n.registry.IndexOf(current)
	if i < 0 {
		return Step{}, false
	}
	return n.registry.StepAt(i + 1)
}

// Previous returns the step before current. False when current is first or unknown.
func (n *Navigator) Previous(current string) (Step, bool) {
	i := n.registry.IndexOf(current)
	if i <= 0 {
		return Step{}, false
	}
	return n.registry.StepAt(i - 1)
}

// Progress returns round(100*(index+1)/count), or 0 for an unknown key.
func (n *Navigator) Progress(current string) int {
	i := n.registry.IndexOf(current)
	if i < 0 {
		return 0
	}
	return int(math.Round(100 * float64(i+1) / float64(n.registry.Count())))
}

// CanTransition reports whether moving from one step to another is legal:
// forward only to the immediate next step, backward to any earlier step, or
// staying in place. Whether the current section is complete is for the form
// layer to decide.
func (n *Navigator) CanTransition(from, to string) bool {
	i, j := n.registry.IndexOf(from), n.registry.IndexOf(to)
	if i < 0 || j < 0 {
		return false
	}
	return j <= i+1
}

// Position bundles everything a page needs to render navigation.
type Position struct {
	Known    bool
	Current  Step
	Next     *Step
	Previous *Step
	Progress int
}

// Position resolves current and its neighbours in one call.
func (n *Navigator) Position(current string) Position {
	step, ok := n.registry.Lookup(current)
	if !ok {
		return Position{}
	}
	pos := Position{Known: true, Current: step, Progress: n.Progress(current)}
	if next, ok := n.Next(current); ok {
		pos.Next = &next
	}
	if prev, ok := n.Previous(current); ok {
		pos.Previous = &prev
	}
	return pos
}
