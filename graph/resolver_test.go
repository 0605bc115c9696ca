package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/requirement"
)

// newReq builds a minimal valid requirement for graph tests.
func newReq(id string, parents ...string) *requirement.Requirement {
	return &requirement.Requirement{
		ID:         id,
		Title:      "Requirement " + id,
		Level:      requirement.LevelDEV,
		Status:     requirement.StatusActive,
		Implements: parents,
	}
}

// withFile attaches an implementation file reference.
func withFile(r *requirement.Requirement, path string, line int) *requirement.Requirement {
	r.ImplementationFiles = append(r.ImplementationFiles, requirement.FileRef{Path: path, Line: line})
	return r
}

func reqMap(reqs ...*requirement.Requirement) map[string]*requirement.Requirement {
	m := make(map[string]*requirement.Requirement, len(reqs))
	for _, r := range reqs {
		m[r.ID] = r
	}
	return m
}

func TestResolver_SimpleTree(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		newReq("B", "A"),
		newReq("C", "A"),
		newReq("D", "B"),
	)

	res := NewResolver().Resolve(reqs)

	assert.Equal(t, []string{"A"}, res.Roots)
	assert.Equal(t, []string{"B", "C"}, res.Children["A"])
	assert.Equal(t, []string{"D"}, res.Children["B"])
	assert.Empty(t, res.Orphans)
	assert.Empty(t, res.Cycles)
}

func TestResolver_ChildrenSortedByID(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		newReq("Z", "A"),
		newReq("M", "A"),
		newReq("B", "A"),
	)

	res := NewResolver().Resolve(reqs)
	assert.Equal(t, []string{"B", "M", "Z"}, res.Children["A"])
}

func TestResolver_MultiParent(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		newReq("B"),
		newReq("C", "A", "B"),
	)

	res := NewResolver().Resolve(reqs)

	assert.Equal(t, []string{"A", "B"}, res.Roots)
	assert.Equal(t, []string{"C"}, res.Children["A"])
	assert.Equal(t, []string{"C"}, res.Children["B"])
	assert.Empty(t, res.Orphans)
}

func TestResolver_OrphanDanglingParent(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		newReq("Z", "missing"),
	)

	res := NewResolver().Resolve(reqs)

	assert.Equal(t, []string{"A"}, res.Roots)
	assert.Equal(t, []string{"Z"}, res.Orphans)
	assert.NotContains(t, res.Roots, "Z")
}

func TestResolver_TwoNodeCycle(t *testing.T) {
	reqs := reqMap(
		newReq("A", "B"),
		newReq("B", "A"),
	)

	res := NewResolver().Resolve(reqs)

	// Neither node is a root; both are only reachable through the cycle.
	assert.Empty(t, res.Roots)
	assert.Equal(t, []string{"A", "B"}, res.Orphans)

	require.Len(t, res.Cycles, 1)
	assert.ElementsMatch(t, []string{"A", "B"}, res.Cycles[0])
}

func TestResolver_CycleBelowRoot(t *testing.T) {
	reqs := reqMap(
		newReq("R"),
		newReq("A", "R", "B"),
		newReq("B", "A"),
	)

	res := NewResolver().Resolve(reqs)

	assert.Equal(t, []string{"R"}, res.Roots)
	assert.Empty(t, res.Orphans)
	require.Len(t, res.Cycles, 1)
	assert.Equal(t, []string{"A", "B"}, res.Cycles[0])
}

func TestResolver_SelfLoop(t *testing.T) {
	reqs := reqMap(
		newReq("A", "A"),
	)

	res := NewResolver().Resolve(reqs)

	assert.Empty(t, res.Roots)
	assert.Equal(t, []string{"A"}, res.Orphans)
	require.Len(t, res.Cycles, 1)
	assert.Equal(t, []string{"A"}, res.Cycles[0])
}

func TestResolver_DepthCap(t *testing.T) {
	// A chain deeper than the cap terminates without recursion faults and
	// without reporting a cycle.
	reqs := map[string]*requirement.Requirement{}
	const n = 10
	reqs["R00"] = newReq("R00")
	for i := 1; i < n; i++ {
		id := fmt.Sprintf("R%02d", i)
		parent := fmt.Sprintf("R%02d", i-1)
		reqs[id] = newReq(id, parent)
	}

	res := NewResolver().WithMaxDepth(5).Resolve(reqs)

	assert.Empty(t, res.Cycles)
	require.NotEmpty(t, res.DepthExceeded)
	assert.Len(t, res.DepthExceeded[0], 6)
	// Every node below the cap is unreached from the root, so it surfaces
	// as an orphan rather than disappearing from the report.
	assert.NotEmpty(t, res.Orphans)
}

func TestResolver_Idempotent(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		newReq("B", "A"),
		newReq("C", "A", "B"),
		newReq("X", "gone"),
		newReq("P", "Q"),
		newReq("Q", "P"),
	)

	first := NewResolver().Resolve(reqs)
	second := NewResolver().Resolve(reqs)

	assert.Equal(t, first.Children, second.Children)
	assert.Equal(t, first.Roots, second.Roots)
	assert.Equal(t, first.Orphans, second.Orphans)
	assert.Equal(t, first.Cycles, second.Cycles)
}

func TestResolver_TraversalRootsOrder(t *testing.T) {
	reqs := reqMap(
		newReq("B"),
		newReq("A"),
		newReq("Z", "missing"),
		newReq("Y", "missing"),
	)

	res := NewResolver().Resolve(reqs)
	assert.Equal(t, []string{"A", "B", "Y", "Z"}, res.TraversalRoots())
}
