package graph

import (
	"github.com/reqtrace/reqtrace/requirement"
)

// Kind discriminates the instance records in the flattened view.
type Kind string

// Instance kinds.
const (
	// KindRequirement is one occurrence of a requirement.
	KindRequirement Kind = "requirement"

	// KindImplementationFile is a leaf pseudo-instance for one
	// implementation file reference under a requirement occurrence.
	KindImplementationFile Kind = "implementationFile"

	// KindCycleMarker flags a back-edge that terminated a branch.
	KindCycleMarker Kind = "cycleMarker"

	// KindDepthMarker flags a branch that hit the depth cap.
	KindDepthMarker Kind = "depthMarker"
)

// Instance is one occurrence of a requirement (or a marker) at a specific
// position in the flattened traversal. A requirement reachable through N
// parents yields N instances, each with a fresh identity so the consumer can
// collapse them independently. Instance identities are never reused within
// one run.
type Instance struct {
	// RequirementID references the requirement. Empty for file
	// pseudo-instances and markers.
	RequirementID string `json:"requirement_id,omitempty"`

	// InstanceID is the fresh per-occurrence identity, monotonically
	// increasing from 1 across one run.
	InstanceID int `json:"instance_id"`

	// ParentInstanceID is the parent occurrence's identity, 0 for roots.
	ParentInstanceID int `json:"parent_instance_id,omitempty"`

	// Indent is the nesting depth: parent indent + 1, 0 for roots.
	Indent int `json:"indent"`

	// HasChildren reports whether anything nests under this instance.
	HasChildren bool `json:"has_children,omitempty"`

	// Kind discriminates requirement, implementationFile, cycleMarker, and
	// depthMarker records.
	Kind Kind `json:"kind"`

	// Coverage carries the requirement's computed coverage, for
	// requirement-kind instances.
	Coverage requirement.CoverageStatus `json:"coverage,omitempty"`

	// File is the referenced source location, for implementationFile kind.
	File *requirement.FileRef `json:"file,omitempty"`

	// Path is the offending ancestor path, for marker kinds.
	Path []string `json:"path,omitempty"`
}

// Flattener performs the pre-order walk that produces the instance list.
// A Flattener is single-use per run; the instance counter is not reset.
type Flattener struct {
	maxDepth int
	nextID   int
}

// NewFlattener creates a Flattener with the default depth cap. The cap must
// match the Resolver's so both stages terminate branches at the same point.
func NewFlattener() *Flattener {
	return &Flattener{maxDepth: DefaultMaxDepth}
}

// WithMaxDepth overrides the traversal depth cap.
func (f *Flattener) WithMaxDepth(n int) *Flattener {
	if n > 0 {
		f.maxDepth = n
	}
	return f
}

// Flatten walks the graph depth-first from every root, then every orphan,
// and returns the ordered instance sequence: each requirement occurrence
// followed by its implementation-file pseudo-instances, then its children in
// ID-sorted order. Cycles and depth overflows terminate their branch with a
// marker instance carrying the offending path; one malformed relationship
// never aborts report generation for the whole requirement set.
func (f *Flattener) Flatten(reqs map[string]*requirement.Requirement, res *Resolution, coverage map[string]requirement.CoverageStatus) []Instance {
	var out []Instance
	for _, root := range res.TraversalRoots() {
		out = f.visit(out, reqs, res, coverage, root, 0, 0, ancestry{})
	}
	return out
}

func (f *Flattener) allocate() int {
	f.nextID++
	return f.nextID
}

func (f *Flattener) visit(out []Instance, reqs map[string]*requirement.Requirement, res *Resolution, coverage map[string]requirement.CoverageStatus, id string, parentInstance, indent int, a ancestry) []Instance {
	req := reqs[id]
	children := res.ChildrenOf(id)

	instID := f.allocate()
	out = append(out, Instance{
		RequirementID:    id,
		InstanceID:       instID,
		ParentInstanceID: parentInstance,
		Indent:           indent,
		HasChildren:      len(children) > 0 || (req != nil && req.HasImplementation()),
		Kind:             KindRequirement,
		Coverage:         coverage[id],
	})

	if req != nil {
		for i := range req.ImplementationFiles {
			file := req.ImplementationFiles[i]
			out = append(out, Instance{
				InstanceID:       f.allocate(),
				ParentInstanceID: instID,
				Indent:           indent + 1,
				Kind:             KindImplementationFile,
				File:             &file,
			})
		}
	}

	chain := a.push(id)
	for _, child := range children {
		switch {
		case chain.contains(child):
			out = append(out, Instance{
				InstanceID:       f.allocate(),
				ParentInstanceID: instID,
				Indent:           indent + 1,
				Kind:             KindCycleMarker,
				Path:             chain.cyclePath(child),
			})
		case chain.depth() >= f.maxDepth:
			path := append(append([]string{}, chain.ids...), child)
			out = append(out, Instance{
				InstanceID:       f.allocate(),
				ParentInstanceID: instID,
				Indent:           indent + 1,
				Kind:             KindDepthMarker,
				Path:             path,
			})
		default:
			out = f.visit(out, reqs, res, coverage, child, instID, indent+1, chain)
		}
	}
	return out
}
