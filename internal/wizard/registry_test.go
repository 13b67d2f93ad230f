package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryValidation(t *testing.T) {
	_, err := NewRegistry()
	assert.ErrorIs(t, err, ErrEmptyRegistry)

	_, err = NewRegistry(Step{ID: "a"}, Step{Path: "/b"})
	assert.ErrorIs(t, err, ErrInvalidStep)

	_, err = NewRegistry(Step{ID: "a"}, Step{ID: "a"})
	assert.ErrorIs(t, err, ErrDuplicateStep)

	assert.Panics(t, func() { MustRegistry() })
}

func TestRegistryAssignsOrderAndCopies(t *testing.T) {
	in := []Step{{ID: "a", Order: 9}, {ID: "b"}, {ID: "c"}}
	r, err := NewRegistry(in...)
	require.NoError(t, err)

	for i, s := range r.Steps() {
		assert.Equal(t, i, s.Order)
	}
	in[0].ID = "mutated"
	assert.Equal(t, "a", r.First().ID)

	steps := r.Steps()
	steps[0].ID = "mutated"
	assert.Equal(t, "a", r.First().ID)
	assert.Equal(t, "c", r.Last().ID)
}

func TestIndexOfResolvesIDsAndPaths(t *testing.T) {
	r := AdmissionRegistry()
	require.Equal(t, 12, r.Count())

	assert.Equal(t, 0, r.IndexOf("personal"))
	assert.Equal(t, 1, r.IndexOf("address"))
	assert.Equal(t, 2, r.IndexOf("contact"))
	assert.Equal(t, 0, r.IndexOf("/profile/personal"), "shared path resolves to the first step")
	assert.Equal(t, 3, r.IndexOf("/profile/qualification"))
	assert.Equal(t, 11, r.IndexOf("success"))
	assert.Equal(t, -1, r.IndexOf(""))
	assert.Equal(t, -1, r.IndexOf("/profile/unknown"))

	s, ok := r.Lookup("/profile/bank")
	require.True(t, ok)
	assert.Equal(t, "bank", s.ID)
	assert.Equal(t, "Bank Details", s.Title)

	_, ok = r.StepAt(12)
	assert.False(t, ok)
	_, ok = r.StepAt(-1)
	assert.False(t, ok)
}

func TestIndexOfPrefersIDsOverPaths(t *testing.T) {
	r := MustRegistry(Step{ID: "a", Path: "b"}, Step{ID: "b", Path: "/b"})

	assert.Equal(t, 1, r.IndexOf("b"))
	assert.Equal(t, 1, r.IndexOf("/b"))
	assert.Equal(t, 0, r.IndexOf("a"))

	nav := NewNavigator(r)
	_, ok := nav.Next("b")
	assert.False(t, ok)
	next, ok := nav.Next("a")
	require.True(t, ok)
	assert.Equal(t, "b", next.ID)
}
