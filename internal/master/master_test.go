package master

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/paramsearch/internal/bus"
	"github.com/yourorg/paramsearch/internal/checkpoint"
	"github.com/yourorg/paramsearch/internal/instanceselect"
	"github.com/yourorg/paramsearch/internal/mctsparam"
	"github.com/yourorg/paramsearch/internal/mctstree"
)

// fakeTransport answers every SendCommand with an immediate, successful
// Result carrying a fixed value, and records every command it receives.
type fakeTransport struct {
	mu       sync.Mutex
	commands []bus.Command
	value    float64
	resultCh chan bus.Result
}

func newFakeTransport(value float64) *fakeTransport {
	return &fakeTransport{value: value, resultCh: make(chan bus.Result, 64)}
}

func (f *fakeTransport) SendCommand(cmd bus.Command) error {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()

	if cmd.Kind == bus.CmdRun {
		v := f.value
		f.resultCh <- bus.Result{NodeKey: cmd.NodeKey, Value: &v}
	}
	return nil
}

func (f *fakeTransport) ReceiveResult() (bus.Result, error) {
	return <-f.resultCh, nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.commands {
		if c.Kind == bus.CmdStop {
			n++
		}
	}
	return n
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSearchSpace(t *testing.T) (*mctstree.Store, *mctsparam.Registry, *instanceselect.Selector) {
	t.Helper()
	store := mctstree.NewStore()
	registry := mctsparam.NewRegistry()
	registry.Intern(&mctsparam.Parameter{Name: "solver", Values: []string{"a", "b"}})

	dir := t.TempDir()
	selector, err := instanceselect.New([]string{dir}, "instance", false)
	if err != nil {
		t.Fatalf("instanceselect.New() error: %v", err)
	}
	return store, registry, selector
}

func TestRun_DispatchesBackpropagatesAndStopsAllExecutors(t *testing.T) {
	store, registry, selector := newTestSearchSpace(t)

	t1 := newFakeTransport(5.0)
	t2 := newFakeTransport(7.0)

	statePath := filepath.Join(t.TempDir(), "run.save")
	m := New(Config{
		Store:            store,
		Registry:         registry,
		InstanceSelector: selector,
		InstanceVariable: "instance",
		Timeout:          600,
		Penalty:          3,
		StatePath:        statePath,
		ResultPoll:       20 * time.Millisecond,
		Log:              testLogger(),
	}, []Transport{t1, t2})

	best := m.Run(80 * time.Millisecond)

	if t1.stopCount() != 1 || t2.stopCount() != 1 {
		t.Fatalf("expected exactly one stop command per executor, got t1=%d t2=%d", t1.stopCount(), t2.stopCount())
	}

	root := store.Root()
	if root.Visits == 0 {
		t.Error("expected root to have accumulated visits from back-propagation")
	}

	if _, err := checkpoint.Load(statePath, checkpoint.Master); err != nil {
		t.Fatalf("expected a final checkpoint to be loadable: %v", err)
	}

	_ = best // deterministic only once the space is exhausted; just confirm it doesn't panic
}

func TestUpdate_SubstitutesPenaltyTimeoutForNilValue(t *testing.T) {
	store, registry, selector := newTestSearchSpace(t)

	m := New(Config{
		Store:            store,
		Registry:         registry,
		InstanceSelector: selector,
		InstanceVariable: "instance",
		Timeout:          10,
		Penalty:          3,
		StatePath:        filepath.Join(t.TempDir(), "run.save"),
		Log:              testLogger(),
	}, nil)

	leaf := mctstree.SelectLeaf(store, registry)
	m.update(masterResult{Leaf: leaf, Value: nil})

	root := store.Root()
	if root.Visits != 1 || root.Value != 30 {
		t.Errorf("expected penalty*timeout=30 applied to root, got visits=%d value=%v", root.Visits, root.Value)
	}
}
