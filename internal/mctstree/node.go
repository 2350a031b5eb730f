// Package mctstree implements the search tree: interned Node storage, UCT
// selection, single-shot expansion, rollout, and the broadened
// back-propagation described for this configurator (every interned node
// whose assignment set is a subset of the leaf's, not just the path to
// root; see DESIGN.md for why this departs from a textbook path-only
// update).
package mctstree

import (
	"sync"

	"github.com/yourorg/paramsearch/internal/mctsparam"
)

// Node is a point in the configuration tree: an ordered sequence of
// assignments, the set of children produced by a single expansion (nil
// until expanded), and its accumulated MCTS statistics. Nodes are
// interned by the set of their Assignments; two equal assignment sets
// always resolve to the same *Node.
type Node struct {
	Assignments []mctsparam.Assignment
	Children    []*Node // nil until expand has run once
	Value       float64
	Visits      int
}

// Key returns this node's interning key.
func (n *Node) Key() string { return mctsparam.Key(n.Assignments) }

// Expanded reports whether this node has already been expanded.
func (n *Node) Expanded() bool { return n.Children != nil }

// AssignmentString renders the node's assignments as the space-joined
// "name=value" string used for the deterministic best-assignment readout.
func (n *Node) AssignmentString() string {
	s := ""
	for i, a := range n.Assignments {
		if i > 0 {
			s += " "
		}
		s += a.Name + "=" + a.Value
	}
	return s
}

// Store interns Nodes by assignment-set key and owns the unique Root.
type Store struct {
	mu    sync.Mutex
	nodes map[string]*Node
	root  *Node
}

// NewStore creates a Store with a fresh, empty-assignment Root already
// interned.
func NewStore() *Store {
	root := &Node{Assignments: nil}
	s := &Store{nodes: make(map[string]*Node)}
	s.nodes[root.Key()] = root
	s.root = root
	return s
}

// Root returns the unique root node.
func (s *Store) Root() *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Intern returns the existing node for this assignment set, creating and
// storing one if it isn't present yet. Assignment order on a freshly
// created node is whatever the caller passed in; lookups are order
// independent.
func (s *Store) Intern(assignments []mctsparam.Assignment) *Node {
	key := mctsparam.Key(assignments)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.nodes[key]; ok {
		return existing
	}
	node := &Node{Assignments: assignments}
	s.nodes[key] = node
	return node
}

// Count returns the number of interned nodes.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// All returns every interned node. The slice is a copy.
func (s *Store) All() []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	return out
}

// Clear removes every interned node and reinstalls a fresh root.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	root := &Node{Assignments: nil}
	s.nodes = map[string]*Node{root.Key(): root}
	s.root = root
}

// Replace atomically swaps the interned node set, used when restoring a
// checkpointed tree. The caller supplies which node (identified by key)
// is the root.
func (s *Store) Replace(nodes map[string]*Node, rootKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nodes
	s.root = nodes[rootKey]
}

// Snapshot returns a shallow copy of the key->node map, suitable for
// checkpoint serialization, along with the root's key.
func (s *Store) Snapshot() (nodes map[string]*Node, rootKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*Node, len(s.nodes))
	for k, v := range s.nodes {
		out[k] = v
	}
	return out, s.root.Key()
}
