package requirement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequirement() *Requirement {
	return &Requirement{
		ID:     "REQ-001",
		Title:  "Generate reports",
		Level:  LevelPRD,
		Status: StatusActive,
	}
}

func TestRequirement_Validate(t *testing.T) {
	assert.NoError(t, validRequirement().Validate())

	cases := []struct {
		name   string
		mutate func(*Requirement)
	}{
		{"missing id", func(r *Requirement) { r.ID = "" }},
		{"missing title", func(r *Requirement) { r.Title = "" }},
		{"unknown level", func(r *Requirement) { r.Level = "EPIC" }},
		{"unknown status", func(r *Requirement) { r.Status = "Done" }},
		{"empty implements reference", func(r *Requirement) { r.Implements = []string{""} }},
		{"duplicate implements reference", func(r *Requirement) { r.Implements = []string{"A", "A"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRequirement()
			tc.mutate(r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("OPS")
	require.NoError(t, err)
	assert.Equal(t, LevelOPS, lvl)

	_, err = ParseLevel("ops")
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("Deprecated")
	require.NoError(t, err)
	assert.Equal(t, StatusDeprecated, st)

	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestFileRef_String(t *testing.T) {
	assert.Equal(t, "graph/resolver.go:70", FileRef{Path: "graph/resolver.go", Line: 70}.String())
	assert.Equal(t, "graph/resolver.go", FileRef{Path: "graph/resolver.go"}.String())
}

func TestMemStore(t *testing.T) {
	child := validRequirement()
	child.ID = "REQ-002"
	child.Implements = []string{"REQ-001"}

	store, err := NewMemStore([]*Requirement{validRequirement(), child})
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, []string{"REQ-001", "REQ-002"}, store.IDs())

	got, err := store.Get("REQ-002")
	require.NoError(t, err)
	assert.Equal(t, "REQ-002", got.ID)

	_, err = store.Get("REQ-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStore_RejectsDuplicates(t *testing.T) {
	_, err := NewMemStore([]*Requirement{validRequirement(), validRequirement()})
	assert.Error(t, err)
}

func TestRequirement_Predicates(t *testing.T) {
	r := validRequirement()
	assert.True(t, r.IsRoot())
	assert.False(t, r.HasImplementation())

	r.Implements = []string{"REQ-000"}
	r.ImplementationFiles = []FileRef{{Path: "main.go", Line: 1}}
	assert.False(t, r.IsRoot())
	assert.True(t, r.HasImplementation())
}
