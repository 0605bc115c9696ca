package graph

import (
	"github.com/reqtrace/reqtrace/requirement"
)

// ComputeCoverage classifies every requirement as full, partial, or
// unimplemented from its own implementation files and its children's
// already-computed coverage.
//
// The computation is a memoized post-order walk over the adjacency, so
// children are classified before their parents regardless of how often a
// node is visited during flattening. On graphs containing cycles, the
// back-edge is treated as absent for this computation only: a node whose
// remaining children are all on its own ancestor chain is classified as a
// leaf from its own files.
func ComputeCoverage(reqs map[string]*requirement.Requirement, children map[string][]string) map[string]requirement.CoverageStatus {
	c := &coverageComputer{
		reqs:     reqs,
		children: children,
		memo:     make(map[string]requirement.CoverageStatus, len(reqs)),
	}
	// Seed in sorted order so memoized values are deterministic even when
	// cycle-breaking makes a node's classification entry-point dependent.
	for _, id := range sortedIDs(reqs) {
		c.compute(id, ancestry{})
	}
	return c.memo
}

type coverageComputer struct {
	reqs     map[string]*requirement.Requirement
	children map[string][]string
	memo     map[string]requirement.CoverageStatus
}

// compute returns the coverage for id, with a the ancestor chain excluding id.
func (c *coverageComputer) compute(id string, a ancestry) requirement.CoverageStatus {
	if status, ok := c.memo[id]; ok {
		return status
	}

	req := c.reqs[id]
	own := req != nil && req.HasImplementation()
	chain := a.push(id)

	var childStates []requirement.CoverageStatus
	for _, child := range c.children[id] {
		if chain.contains(child) {
			continue
		}
		childStates = append(childStates, c.compute(child, chain))
	}

	status := classify(own, childStates)
	c.memo[id] = status
	return status
}

// classify applies the per-node rollup rule.
//
// A node with no children is full iff it has its own implementation, and
// never partial. A node with children needs its own implementation and all
// children full to be full; any own implementation or any covered child
// yields partial; otherwise unimplemented. The "any full/partial child means
// partial" tie-break is the conservative reading chosen for mixed subtrees.
func classify(own bool, childStates []requirement.CoverageStatus) requirement.CoverageStatus {
	if len(childStates) == 0 {
		if own {
			return requirement.CoverageFull
		}
		return requirement.CoverageUnimplemented
	}

	allFull := true
	anyCovered := false
	for _, s := range childStates {
		if s != requirement.CoverageFull {
			allFull = false
		}
		if s != requirement.CoverageUnimplemented {
			anyCovered = true
		}
	}

	switch {
	case own && allFull:
		return requirement.CoverageFull
	case own || anyCovered:
		return requirement.CoveragePartial
	default:
		return requirement.CoverageUnimplemented
	}
}
