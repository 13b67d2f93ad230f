// Package wizard sequences an applicant through the ordered profile sections
// of an admission application.
package wizard

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRegistry is returned when no steps are supplied.
	ErrEmptyRegistry = errors.New("wizard registry needs at least one step")
	// ErrInvalidStep is returned for a step without an id.
	ErrInvalidStep = errors.New("wizard step id is required")
	// ErrDuplicateStep is returned when two steps share an id.
	ErrDuplicateStep = errors.New("duplicate wizard step id")
)

// Step is one logical section of the wizard. Several steps may share a Path
// when they are rendered on the same page.
type Step struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

// Registry is the immutable ordered catalogue of steps.
type Registry struct {
	steps []Step
}

// NewRegistry copies steps in order and assigns each its Order.
func NewRegistry(steps ...Step) (*Registry, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyRegistry
	}
	seen := make(map[string]struct{}, len(steps))
	out := make([]Step, len(steps))
	for i, s := range steps {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: position %d", ErrInvalidStep, i)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, s.ID)
		}
		seen[s.ID] = struct{}{}
		s.Order = i
		out[i] = s
	}
	return &Registry{steps: out}, nil
}

// MustRegistry is NewRegistry for static catalogues; it panics on error.
func MustRegistry(steps ...Step) *Registry {
	r, err := NewRegistry(steps...)
	if err != nil {
		panic(err)
	}
	return r
}

// Count returns the number of steps.
func (r *Registry) Count() int {
	return len(r.steps)
}

// StepAt returns the step at index i.
func (r *Registry) StepAt(i int) (Step, bool) {
	if i < 0 || i >= len(r.steps) {
		return Step{}, false
	}
	return r.steps[i], true
}

// IndexOf resolves a step id or path to its position, or -1. Ids take
// precedence over paths. When several steps share a path the first one wins,
// so a page hosting two sections always maps to the earlier section.
func (r *Registry) IndexOf(key string) int {
	if key == "" {
		return -1
	}
	for i, s := range r.steps {
		if s.ID == key {
			return i
		}
	}
	for i, s := range r.steps {
		if s.Path == key {
			return i
		}
	}
	return -1
}

// Lookup returns the step for an id or path.
func (r *Registry) Lookup(key string) (Step, bool) {
	return r.StepAt(r.IndexOf(key))
}

// First returns the opening step.
func (r *Registry) First() Step {
	return r.steps[0]
}

// Last returns the closing step.
func (r *Registry) Last() Step {
	return r.steps[len(r.steps)-1]
}

// Steps returns a copy of the catalogue.
func (r *Registry) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}
