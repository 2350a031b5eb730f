package mctstree

import (
	"testing"

	"github.com/yourorg/paramsearch/internal/mctsparam"
)

func newTestRegistry() *mctsparam.Registry {
	r := mctsparam.NewRegistry()
	r.Intern(&mctsparam.Parameter{Name: "solver", Values: []string{"svm", "nn"}})
	r.Intern(&mctsparam.Parameter{
		Name:   "kernel",
		Values: []string{"rbf", "linear"},
		Conditions: [][]mctsparam.Clause{
			{{DepName: "solver", Values: []string{"svm"}}},
		},
	})
	return r
}

func TestStore_Interning(t *testing.T) {
	store := NewStore()
	a := []mctsparam.Assignment{{Name: "x", Value: "1"}}
	b := []mctsparam.Assignment{{Name: "x", Value: "1"}}

	n1 := store.Intern(a)
	n2 := store.Intern(b)
	if n1 != n2 {
		t.Fatal("equal assignment sets must intern to the same node")
	}
}

func TestRoot_IsUniqueAndEmpty(t *testing.T) {
	store := NewStore()
	root := store.Root()
	if len(root.Assignments) != 0 {
		t.Fatalf("root must have no assignments, got %v", root.Assignments)
	}
	if store.Root() != root {
		t.Fatal("Root() must be stable across calls")
	}
}

func TestExpand_IsMonotonic(t *testing.T) {
	store := NewStore()
	registry := newTestRegistry()

	root := store.Root()
	first := expand(store, registry, root)
	if !root.Expanded() {
		t.Fatal("root should be expanded after first expand()")
	}
	childrenAfterFirst := root.Children

	// A second expand() rebuilds the child set from the same interned
	// nodes, so the child count must stay the same.
	second := expand(store, registry, root)
	if len(root.Children) != len(childrenAfterFirst) {
		t.Fatal("re-expanding an already-expanded node must not add children")
	}
	_ = first
	_ = second
}

func TestExpand_OnlyFreeParameters(t *testing.T) {
	store := NewStore()
	registry := newTestRegistry()

	root := store.Root()
	expand(store, registry, root)

	// Root has only "solver" free (kernel requires solver=svm), so exactly
	// two children: solver=svm, solver=nn.
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children at root, got %d", len(root.Children))
	}
	for _, c := range root.Children {
		if len(c.Assignments) != 1 || c.Assignments[0].Name != "solver" {
			t.Errorf("unexpected child assignment: %v", c.Assignments)
		}
	}
}

func TestRollout_StopsWhenNoFreeParameters(t *testing.T) {
	registry := newTestRegistry()
	assignments := []mctsparam.Assignment{{Name: "solver", Value: "nn"}}

	full := rollout(registry, assignments)

	// solver=nn leaves kernel permanently unsatisfiable, so rollout should
	// terminate immediately without adding anything.
	if len(full) != 1 {
		t.Fatalf("expected rollout to add nothing when no parameter is free, got %v", full)
	}
}

func TestRollout_CompletesAllFreeParameters(t *testing.T) {
	registry := newTestRegistry()
	assignments := []mctsparam.Assignment{{Name: "solver", Value: "svm"}}

	full := rollout(registry, assignments)
	if len(full) != 2 {
		t.Fatalf("expected rollout to assign kernel too, got %v", full)
	}
	m := mctsparam.AssignmentMap(full)
	if m["kernel"] == "" {
		t.Fatal("expected kernel to be assigned")
	}
}

func TestExpand_TerminalNodeDoesNotPanic(t *testing.T) {
	store := NewStore()
	registry := mctsparam.NewRegistry()
	registry.Intern(&mctsparam.Parameter{Name: "solver", Values: []string{"svm"}})

	root := store.Root()
	first := SelectLeaf(store, registry)
	if first.Node == nil {
		t.Fatal("expected a node")
	}

	// Second descent reaches the same node again, still unexpanded; it has
	// no free parameters, so expand() marks it terminal (zero children) and
	// returns the node itself. Must not panic.
	second := SelectLeaf(store, registry)
	if second.Node != first.Node {
		t.Fatalf("expected repeated descent to reuse the terminal node")
	}

	// A third descent finds the node already expanded with zero children
	// and must reuse it without calling expand() a second time.
	third := SelectLeaf(store, registry)
	if third.Node != first.Node {
		t.Fatalf("expected third descent to still reuse the terminal node")
	}
	_ = root
}

func TestSelectLeaf_NotInterned(t *testing.T) {
	store := NewStore()
	registry := newTestRegistry()

	leaf := SelectLeaf(store, registry)
	if leaf.Node == nil {
		t.Fatal("expected a node")
	}
	// The leaf's full assignment may be longer than the interned node's
	// own assignments (rollout additions are not interned).
	if len(leaf.FullAssignment) < len(leaf.Node.Assignments) {
		t.Fatal("full assignment must extend the node's own assignments")
	}
	// Only the root and its two solver children are interned; a kernel
	// assignment added by the rollout is not.
	if store.Count() != 3 {
		t.Fatalf("Store.Count() = %d, want 3 (rollout must not intern nodes)", store.Count())
	}
}

func TestBackpropagate_UpdatesAllSubsetNodes(t *testing.T) {
	store := NewStore()
	registry := newTestRegistry()
	root := store.Root()

	solverSVM := store.Intern([]mctsparam.Assignment{{Name: "solver", Value: "svm"}})
	solverNN := store.Intern([]mctsparam.Assignment{{Name: "solver", Value: "nn"}})
	full := store.Intern([]mctsparam.Assignment{{Name: "solver", Value: "svm"}, {Name: "kernel", Value: "rbf"}})

	leaf := &Leaf{Node: full, FullAssignment: full.Assignments}
	Backpropagate(store, leaf, 10.0)

	if root.Visits != 1 || root.Value != 10.0 {
		t.Errorf("root should be updated (empty set is a subset of everything): visits=%d value=%v", root.Visits, root.Value)
	}
	if solverSVM.Visits != 1 || solverSVM.Value != 10.0 {
		t.Errorf("solver=svm is a subset of the leaf and should be updated")
	}
	if solverNN.Visits != 0 {
		t.Errorf("solver=nn is not a subset of the leaf and must not be updated, got visits=%d", solverNN.Visits)
	}

	_ = registry
}

func TestBackpropagate_Additive(t *testing.T) {
	store := NewStore()
	root := store.Root()

	leaf := &Leaf{Node: root, FullAssignment: nil}
	Backpropagate(store, leaf, 5.0)
	Backpropagate(store, leaf, 3.0)

	if root.Visits != 2 {
		t.Errorf("Visits = %d, want 2", root.Visits)
	}
	if root.Value != 8.0 {
		t.Errorf("Value = %v, want 8.0", root.Value)
	}
}

func TestDeterministicUCT_SkipsUnvisited(t *testing.T) {
	parent := &Node{Visits: 4, Value: 40}
	unvisited := &Node{Visits: 0, Value: 0}

	if got := DeterministicUCT(parent, unvisited); got != 0 {
		t.Errorf("DeterministicUCT for unvisited child = %v, want 0", got)
	}
}

func TestBestAssignment_DescendsToUnexpanded(t *testing.T) {
	store := NewStore()
	registry := newTestRegistry()
	root := store.Root()

	svm := store.Intern([]mctsparam.Assignment{{Name: "solver", Value: "svm"}})
	root.Children = []*Node{svm, store.Intern([]mctsparam.Assignment{{Name: "solver", Value: "nn"}})}
	root.Visits = 10
	root.Value = 50
	svm.Visits = 8
	svm.Value = 20 // lower mean runtime than its sibling, should be preferred

	nn := root.Children[1]
	nn.Visits = 2
	nn.Value = 18

	best := BestAssignment(store)
	if best != "solver=svm" {
		t.Errorf("BestAssignment() = %q, want solver=svm", best)
	}
	_ = registry
}
