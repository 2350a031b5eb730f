package dotgraph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yourorg/paramsearch/internal/mctsparam"
	"github.com/yourorg/paramsearch/internal/mctstree"
)

func buildTree(t *testing.T) *mctstree.Store {
	t.Helper()
	store := mctstree.NewStore()
	registry := mctsparam.NewRegistry()
	registry.Intern(&mctsparam.Parameter{Name: "a", Values: []string{"1", "2"}})

	root := store.Root()
	child1 := store.Intern([]mctsparam.Assignment{{Name: "a", Value: "1"}})
	child2 := store.Intern([]mctsparam.Assignment{{Name: "a", Value: "2"}})
	root.Children = []*mctstree.Node{child1, child2}

	root.Visits = 2
	root.Value = 10
	child1.Visits = 1
	child1.Value = 3
	// child2 left unvisited (Visits == 0) to exercise the visits>0 filter.

	return store
}

func TestRender_IncludesVisitedChildrenOnly(t *testing.T) {
	store := buildTree(t)
	dot := Render(store.Root())

	if !strings.HasPrefix(dot, `digraph "paramMCTS" {`) {
		t.Fatalf("unexpected dot header: %q", dot[:40])
	}
	if !strings.Contains(dot, "a=1") {
		t.Errorf("expected visited child a=1 to appear, got:\n%s", dot)
	}
	if strings.Contains(dot, "a=2") {
		t.Errorf("expected unvisited child a=2 to be excluded, got:\n%s", dot)
	}
	if !strings.Contains(dot, "value:10") {
		t.Errorf("expected root value in label, got:\n%s", dot)
	}
}

func TestRender_RootLabelledRoot(t *testing.T) {
	store := mctstree.NewStore()
	dot := Render(store.Root())
	if !strings.Contains(dot, "root") {
		t.Errorf("expected root node labelled \"root\", got:\n%s", dot)
	}
}

func TestWriteFile_WritesToPath(t *testing.T) {
	store := buildTree(t)
	path := filepath.Join(t.TempDir(), "tree.dot")

	if err := WriteFile(path, store.Root()); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written dot file: %v", err)
	}
	if !strings.Contains(string(data), "digraph") {
		t.Errorf("expected written file to contain a dot graph, got: %s", data)
	}
}
