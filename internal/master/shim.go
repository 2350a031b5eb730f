package master

import (
	"log/slog"

	"github.com/yourorg/paramsearch/internal/bus"
	"github.com/yourorg/paramsearch/internal/instanceselect"
	"github.com/yourorg/paramsearch/internal/mctsparam"
	"github.com/yourorg/paramsearch/internal/mctstree"
)

// Transport is the subset of *bus.Endpoint a shim needs, narrowed for
// testability.
type Transport interface {
	SendCommand(bus.Command) error
	ReceiveResult() (bus.Result, error)
	Close() error
}

// shim is the in-process worker bound one-to-one to a remote executor
// rank: a goroutine that repeatedly dequeues a task, stamps it with a
// fresh random instance draw, ships it to its executor, and forwards the
// reply to the shared result queue.
type shim struct {
	rank             int
	transport        Transport
	instanceSelector *instanceselect.Selector
	results          *resultQueue
	log              *slog.Logger
}

func (s *shim) run(taskCh <-chan *mctstree.Leaf) {
	for leaf := range taskCh {
		full := append(append([]mctsparam.Assignment{}, leaf.FullAssignment...),
			s.instanceSelector.RandomAssignment())

		cmd := bus.Command{
			Kind:       bus.CmdRun,
			NodeKey:    leaf.Node.Key(),
			Assignment: mctsparam.AssignmentMap(full),
		}

		if err := s.transport.SendCommand(cmd); err != nil {
			s.log.Error("send task failed", "rank", s.rank, "error", err)
			continue
		}

		result, err := s.transport.ReceiveResult()
		if err != nil {
			s.log.Error("receive result failed", "rank", s.rank, "error", err)
			continue
		}

		s.results.Push(masterResult{Leaf: leaf, Value: result.Value})
	}
}
