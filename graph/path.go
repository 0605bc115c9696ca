package graph

import (
	"sort"
	"strings"
)

// DefaultMaxDepth bounds traversal depth as a second line of defense against
// pathological or mis-modeled inputs. Hitting the cap terminates the branch
// the same way a detected cycle does.
const DefaultMaxDepth = 50

// ancestry is the DFS ancestor chain from the active traversal root to the
// current node. It is copied on descent rather than mutated in place, so a
// recorded path is never aliased by deeper recursion. A global visited set
// cannot replace it: that would suppress the legitimate re-expansion of a
// requirement under each of its parents.
type ancestry struct {
	ids []string
}

// contains reports whether id already appears in the ancestor chain.
func (a ancestry) contains(id string) bool {
	for _, v := range a.ids {
		if v == id {
			return true
		}
	}
	return false
}

// push returns a new ancestry extended with id.
func (a ancestry) push(id string) ancestry {
	ids := make([]string, len(a.ids)+1)
	copy(ids, a.ids)
	ids[len(a.ids)] = id
	return ancestry{ids: ids}
}

// depth returns the number of ancestors in the chain.
func (a ancestry) depth() int {
	return len(a.ids)
}

// cyclePath returns the offending path for a back-edge to id: the chain from
// the first occurrence of id through the current node, closed with id again.
func (a ancestry) cyclePath(id string) []string {
	start := 0
	for i, v := range a.ids {
		if v == id {
			start = i
			break
		}
	}
	path := make([]string, 0, len(a.ids)-start+1)
	path = append(path, a.ids[start:]...)
	path = append(path, id)
	return path
}

// canonicalCycle rotates a closed cycle path (first element repeated at the
// end) so the smallest ID comes first, preserving cyclic order. The same
// cycle entered from different roots then reduces to one representation.
func canonicalCycle(closed []string) []string {
	loop := closed[:len(closed)-1]
	min := 0
	for i, id := range loop {
		if id < loop[min] {
			min = i
		}
	}
	rotated := make([]string, 0, len(loop))
	rotated = append(rotated, loop[min:]...)
	rotated = append(rotated, loop[:min]...)
	return rotated
}

// cycleKey builds a dedup key for a canonical cycle.
func cycleKey(cycle []string) string {
	return strings.Join(cycle, "\x00")
}

// sortedIDs returns the keys of a requirement map in sorted order.
func sortedIDs[T any](m map[string]T) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
