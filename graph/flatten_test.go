package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/requirement"
)

func flattenAll(t *testing.T, reqs map[string]*requirement.Requirement) []Instance {
	t.Helper()
	res := NewResolver().Resolve(reqs)
	coverage := ComputeCoverage(reqs, res.Children)
	return NewFlattener().Flatten(reqs, res, coverage)
}

// instancesOf filters requirement-kind instances for one requirement ID.
func instancesOf(instances []Instance, id string) []Instance {
	var out []Instance
	for _, in := range instances {
		if in.Kind == KindRequirement && in.RequirementID == id {
			out = append(out, in)
		}
	}
	return out
}

func TestFlatten_PreOrderSimpleTree(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		newReq("B", "A"),
		newReq("C", "A"),
	)

	instances := flattenAll(t, reqs)
	require.Len(t, instances, 3)

	assert.Equal(t, "A", instances[0].RequirementID)
	assert.Equal(t, "B", instances[1].RequirementID)
	assert.Equal(t, "C", instances[2].RequirementID)

	assert.Equal(t, 0, instances[0].Indent)
	assert.Equal(t, 1, instances[1].Indent)
	assert.Equal(t, 1, instances[2].Indent)

	assert.Zero(t, instances[0].ParentInstanceID)
	assert.Equal(t, instances[0].InstanceID, instances[1].ParentInstanceID)
	assert.Equal(t, instances[0].InstanceID, instances[2].ParentInstanceID)

	assert.True(t, instances[0].HasChildren)
	assert.False(t, instances[1].HasChildren)
}

func TestFlatten_InstanceIDsUniqueAndMonotone(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		withFile(newReq("B", "A"), "b.go", 3),
		newReq("C", "A", "B"),
	)

	instances := flattenAll(t, reqs)

	seen := make(map[int]bool)
	last := 0
	for _, in := range instances {
		assert.Greater(t, in.InstanceID, last, "instance IDs must be monotonically increasing")
		assert.False(t, seen[in.InstanceID], "instance IDs must never be reused")
		seen[in.InstanceID] = true
		last = in.InstanceID
	}
}

func TestFlatten_MultiParentFanOut(t *testing.T) {
	// C implements both roots, so it is fully re-expanded under each with
	// fresh identities for independent collapse state.
	reqs := reqMap(
		newReq("A"),
		newReq("B"),
		newReq("C", "A", "B"),
	)

	instances := flattenAll(t, reqs)

	cs := instancesOf(instances, "C")
	require.Len(t, cs, 2)
	assert.NotEqual(t, cs[0].InstanceID, cs[1].InstanceID)
	assert.NotEqual(t, cs[0].ParentInstanceID, cs[1].ParentInstanceID)

	as := instancesOf(instances, "A")
	bs := instancesOf(instances, "B")
	require.Len(t, as, 1)
	require.Len(t, bs, 1)
	assert.Equal(t, as[0].InstanceID, cs[0].ParentInstanceID)
	assert.Equal(t, bs[0].InstanceID, cs[1].ParentInstanceID)
}

func TestFlatten_ImplementationFilePseudoInstances(t *testing.T) {
	r := newReq("A")
	withFile(r, "impl/a.go", 12)
	withFile(r, "impl/a_helper.go", 40)
	reqs := reqMap(r)

	instances := flattenAll(t, reqs)
	require.Len(t, instances, 3)

	root := instances[0]
	assert.Equal(t, KindRequirement, root.Kind)
	assert.True(t, root.HasChildren)

	for i, in := range instances[1:] {
		assert.Equal(t, KindImplementationFile, in.Kind)
		assert.Empty(t, in.RequirementID)
		assert.Equal(t, root.InstanceID, in.ParentInstanceID)
		assert.Equal(t, 1, in.Indent)
		assert.False(t, in.HasChildren)
		require.NotNil(t, in.File)
		assert.Equal(t, r.ImplementationFiles[i].Path, in.File.Path)
	}
}

func TestFlatten_NoSilentDrops(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		newReq("B", "A"),
		newReq("C", "A", "B"),
		newReq("Z", "missing"),
		newReq("P", "Q"),
		newReq("Q", "P"),
	)

	instances := flattenAll(t, reqs)

	counts := make(map[string]int)
	for _, in := range instances {
		if in.Kind == KindRequirement {
			counts[in.RequirementID]++
		}
	}
	for id := range reqs {
		assert.GreaterOrEqual(t, counts[id], 1, "requirement %s must appear at least once", id)
	}
}

func TestFlatten_RequirementInstanceCountAtLeastDistinct(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		newReq("B"),
		newReq("C", "A", "B"),
		newReq("D", "C"),
	)

	instances := flattenAll(t, reqs)

	total := 0
	for _, in := range instances {
		if in.Kind == KindRequirement {
			total++
		}
	}
	// C and its subtree expand under both parents.
	assert.GreaterOrEqual(t, total, len(reqs))
	assert.Equal(t, 6, total)
}

func TestFlatten_CycleMarker(t *testing.T) {
	reqs := reqMap(
		newReq("R"),
		newReq("A", "R", "B"),
		newReq("B", "A"),
	)

	instances := flattenAll(t, reqs)

	var markers []Instance
	for _, in := range instances {
		if in.Kind == KindCycleMarker {
			markers = append(markers, in)
		}
	}
	require.Len(t, markers, 1)
	assert.Equal(t, []string{"A", "B", "A"}, markers[0].Path)

	// The rest of the tree still renders.
	assert.NotEmpty(t, instancesOf(instances, "R"))
	assert.NotEmpty(t, instancesOf(instances, "A"))
	assert.NotEmpty(t, instancesOf(instances, "B"))
}

func TestFlatten_OrphanIsOwnTraversalRoot(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		newReq("Z", "missing"),
	)

	res := NewResolver().Resolve(reqs)
	require.Equal(t, []string{"Z"}, res.Orphans)

	coverage := ComputeCoverage(reqs, res.Children)
	instances := NewFlattener().Flatten(reqs, res, coverage)

	zs := instancesOf(instances, "Z")
	require.Len(t, zs, 1)
	assert.Equal(t, 0, zs[0].Indent)
	assert.Zero(t, zs[0].ParentInstanceID)
	// Orphans come after all roots.
	assert.Equal(t, "A", instances[0].RequirementID)
}

func TestFlatten_DepthMarker(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		newReq("B", "A"),
		newReq("C", "B"),
		newReq("D", "C"),
	)

	res := NewResolver().WithMaxDepth(2).Resolve(reqs)
	coverage := ComputeCoverage(reqs, res.Children)
	instances := NewFlattener().WithMaxDepth(2).Flatten(reqs, res, coverage)

	var marker *Instance
	for i := range instances {
		if instances[i].Kind == KindDepthMarker {
			marker = &instances[i]
			break
		}
	}
	require.NotNil(t, marker, "expected a depth marker instance")
	assert.Equal(t, []string{"A", "B", "C"}, marker.Path)
}

func TestFlatten_IdempotentStructure(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		withFile(newReq("B", "A"), "b.go", 1),
		newReq("C", "A", "B"),
		newReq("Z", "missing"),
	)

	res := NewResolver().Resolve(reqs)
	coverage := ComputeCoverage(reqs, res.Children)

	first := NewFlattener().Flatten(reqs, res, coverage)
	second := NewFlattener().Flatten(reqs, res, coverage)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].RequirementID, second[i].RequirementID)
		assert.Equal(t, first[i].Kind, second[i].Kind)
		assert.Equal(t, first[i].Indent, second[i].Indent)
	}
}

func TestFlatten_CoverageCarriedOnInstances(t *testing.T) {
	reqs := reqMap(
		newReq("A"),
		withFile(newReq("B", "A"), "x.py", 1),
	)

	instances := flattenAll(t, reqs)

	as := instancesOf(instances, "A")
	bs := instancesOf(instances, "B")
	require.Len(t, as, 1)
	require.Len(t, bs, 1)
	assert.Equal(t, requirement.CoveragePartial, as[0].Coverage)
	assert.Equal(t, requirement.CoverageFull, bs[0].Coverage)
}
