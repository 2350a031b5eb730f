package mctstree

import "github.com/yourorg/paramsearch/internal/mctsparam"

// Backpropagate updates every interned node whose assignment set is a
// subset of leaf's full assignment set: node.Visits += 1, node.Value +=
// value. This intentionally broadens the update beyond the path from
// root to leaf (an all-moves-as-first-like policy); see DESIGN.md's
// Open Question decision for why this is not path-only.
func Backpropagate(store *Store, leaf *Leaf, value float64) {
	leafSet := make(map[mctsparam.Assignment]struct{}, len(leaf.FullAssignment))
	for _, a := range leaf.FullAssignment {
		leafSet[a] = struct{}{}
	}

	for _, node := range store.All() {
		if isSubset(node.Assignments, leafSet) {
			node.Visits++
			node.Value += value
		}
	}
}

func isSubset(assignments []mctsparam.Assignment, set map[mctsparam.Assignment]struct{}) bool {
	for _, a := range assignments {
		if _, ok := set[a]; !ok {
			return false
		}
	}
	return true
}
