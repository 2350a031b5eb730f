package mctstree

import (
	"github.com/yourorg/paramsearch/internal/mctsparam"
)

// Leaf is a runtime-only result of a tree descent: the single interned
// Node the descent landed on (the freshly created child picked after
// expansion, or the terminal node itself when it has no free parameters
// left), plus the full assignment reached
// after the random rollout extended it. Unlike Node, a Leaf is never
// interned: the rollout's extra assignments are thrown away once the
// measured value has been back-propagated.
type Leaf struct {
	Node           *Node
	FullAssignment []mctsparam.Assignment
}

// SelectLeaf descends the tree from root, taking the UCT-maximizing child
// at every already-expanded node, expanding the first unexpanded node it
// reaches exactly once, and then performing a random rollout from the
// chosen child until no parameter remains free.
func SelectLeaf(store *Store, registry *mctsparam.Registry) *Leaf {
	node := store.Root()

	for node.Expanded() && len(node.Children) > 0 {
		node = bestChild(node)
	}

	// A node can already be expanded-with-zero-children (terminal: no free
	// parameters) from a prior descent; reuse it directly instead of
	// calling expand again, which would violate "expansion happens at most
	// once per node".
	child := node
	if !node.Expanded() {
		child = expand(store, registry, node)
	}

	full := append([]mctsparam.Assignment{}, child.Assignments...)
	full = rollout(registry, full)

	return &Leaf{Node: child, FullAssignment: full}
}

// bestChild returns the child of an expanded node with the highest UCT
// score, breaking ties via UCT's own jitter term.
func bestChild(node *Node) *Node {
	best := node.Children[0]
	bestScore := UCT(node, best)
	for _, c := range node.Children[1:] {
		score := UCT(node, c)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// expand materializes every (free parameter × value) child of node,
// interns each, marks node expanded, and returns one uniformly chosen at
// random. Expansion happens at most once per node: Children is set here
// and SelectLeaf never revisits an already-expanded node through this
// path.
func expand(store *Store, registry *mctsparam.Registry, node *Node) *Node {
	assigned := mctsparam.AssignmentMap(node.Assignments)
	free := registry.FreeParameters(assigned)

	var children []*Node
	for _, p := range free {
		for _, v := range p.Values {
			next := append(append([]mctsparam.Assignment{}, node.Assignments...), mctsparam.Assignment{Name: p.Name, Value: v})
			children = append(children, store.Intern(next))
		}
	}

	if len(children) == 0 {
		// Terminal node: no free parameters remain. Mark it expanded with
		// an empty (non-nil) child set and treat the node itself as the
		// expansion target.
		node.Children = []*Node{}
		return node
	}

	node.Children = children
	return children[pseudoRand.Intn(len(children))]
}

// rollout repeatedly samples one free parameter and one of its values,
// appending to assignments without interning, until no parameter remains
// free given the growing assignment set.
func rollout(registry *mctsparam.Registry, assignments []mctsparam.Assignment) []mctsparam.Assignment {
	for {
		assigned := mctsparam.AssignmentMap(assignments)
		free := registry.FreeParameters(assigned)
		if len(free) == 0 {
			return assignments
		}
		p := free[pseudoRand.Intn(len(free))]
		v := p.Values[pseudoRand.Intn(len(p.Values))]
		assignments = append(assignments, mctsparam.Assignment{Name: p.Name, Value: v})
	}
}

// BestAssignment deterministically descends the tree, scoring zero-visit
// children as 0 (see DeterministicUCT) rather than as maximal, until it
// reaches an unexpanded node, and returns that node's assignments as the
// space-joined "name=value" string.
func BestAssignment(store *Store) string {
	node := store.Root()
	for node.Expanded() && len(node.Children) > 0 {
		best := node.Children[0]
		bestScore := DeterministicUCT(node, best)
		for _, c := range node.Children[1:] {
			score := DeterministicUCT(node, c)
			if score > bestScore {
				best, bestScore = c, score
			}
		}
		node = best
	}
	return node.AssignmentString()
}
