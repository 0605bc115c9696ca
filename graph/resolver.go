package graph

import (
	"sort"

	"github.com/reqtrace/reqtrace/requirement"
)

// Resolution is the derived graph structure for one requirement collection.
// It is built once per run and read-only afterwards.
type Resolution struct {
	// Children maps a requirement ID to its child IDs, sorted by ID.
	// Requirements without children have no entry.
	Children map[string][]string `json:"children"`

	// Roots lists requirements with no implements references, sorted by ID.
	Roots []string `json:"roots"`

	// Orphans lists requirements never reached when traversing from every
	// root, sorted by ID. Each orphan becomes an additional traversal root
	// so no requirement is silently dropped from the report.
	Orphans []string `json:"orphans,omitempty"`

	// Cycles lists detected cycles, each as the ordered IDs forming the
	// cycle, rotated so the smallest ID comes first. The same cycle reached
	// from several entry points is reported once.
	Cycles [][]string `json:"cycles,omitempty"`

	// DepthExceeded lists ancestor paths that hit the traversal depth cap.
	// Like a cycle, the offending branch is terminated rather than failing
	// the run.
	DepthExceeded [][]string `json:"depth_exceeded,omitempty"`
}

// ChildrenOf returns the sorted child IDs of a requirement.
func (r *Resolution) ChildrenOf(id string) []string {
	return r.Children[id]
}

// TraversalRoots returns the flattening entry points: all roots followed by
// all orphans, each already sorted by ID.
func (r *Resolution) TraversalRoots() []string {
	out := make([]string, 0, len(r.Roots)+len(r.Orphans))
	out = append(out, r.Roots...)
	out = append(out, r.Orphans...)
	return out
}

// Resolver derives a Resolution from a requirement collection.
type Resolver struct {
	maxDepth int
}

// NewResolver creates a Resolver with the default depth cap.
func NewResolver() *Resolver {
	return &Resolver{maxDepth: DefaultMaxDepth}
}

// WithMaxDepth overrides the traversal depth cap.
func (r *Resolver) WithMaxDepth(n int) *Resolver {
	if n > 0 {
		r.maxDepth = n
	}
	return r
}

// Resolve builds adjacency from implements edges, identifies roots and
// orphans, and detects cycles. Cycles and dangling parent references are
// modeling errors in the source data, not crash conditions: the rest of the
// graph is still processed.
func (r *Resolver) Resolve(reqs map[string]*requirement.Requirement) *Resolution {
	res := &Resolution{
		Children: make(map[string][]string, len(reqs)),
	}

	// One linear pass over the implements sets builds the reverse map.
	// Edges to parents that do not exist in the store are skipped here;
	// such children surface as orphans below.
	for id, req := range reqs {
		for _, parent := range req.Implements {
			if _, ok := reqs[parent]; ok {
				res.Children[parent] = append(res.Children[parent], id)
			}
		}
	}
	for parent := range res.Children {
		sort.Strings(res.Children[parent])
	}

	for id, req := range reqs {
		if req.IsRoot() {
			res.Roots = append(res.Roots, id)
		}
	}
	sort.Strings(res.Roots)

	d := &discovery{
		children:  res.Children,
		maxDepth:  r.maxDepth,
		visited:   make(map[string]bool, len(reqs)),
		cycleSeen: make(map[string]bool),
	}
	for _, root := range res.Roots {
		d.discover(root, ancestry{})
	}

	// Anything unreached from the roots is an orphan: a dangling parent
	// reference or a node reachable only through a cycle.
	for _, id := range sortedIDs(reqs) {
		if !d.visited[id] {
			res.Orphans = append(res.Orphans, id)
		}
	}
	for _, orphan := range res.Orphans {
		d.discover(orphan, ancestry{})
	}

	res.Cycles = d.cycles
	res.DepthExceeded = d.depthExceeded
	return res
}

// discovery is the shared traversal used by Resolve. It is the same walk the
// flattener performs, in discovery-only mode: it records visited IDs and
// structural anomalies without emitting instances.
type discovery struct {
	children      map[string][]string
	maxDepth      int
	visited       map[string]bool
	cycles        [][]string
	cycleSeen     map[string]bool
	depthExceeded [][]string
}

func (d *discovery) discover(id string, a ancestry) {
	d.visited[id] = true
	chain := a.push(id)
	for _, child := range d.children[id] {
		switch {
		case chain.contains(child):
			// Back-edge: record the cycle and treat the edge as terminal.
			cycle := canonicalCycle(chain.cyclePath(child))
			if key := cycleKey(cycle); !d.cycleSeen[key] {
				d.cycleSeen[key] = true
				d.cycles = append(d.cycles, cycle)
			}
		case chain.depth() >= d.maxDepth:
			path := append(append([]string{}, chain.ids...), child)
			d.depthExceeded = append(d.depthExceeded, path)
		default:
			d.discover(child, chain)
		}
	}
}
