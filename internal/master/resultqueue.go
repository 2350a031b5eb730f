package master

import (
	"sync"
	"time"

	"github.com/yourorg/paramsearch/internal/mctstree"
)

// masterResult pairs a dispatched leaf with the value its shim received;
// nil means the executor reported a timeout (the penalty substitution
// happens in update, not here).
type masterResult struct {
	Leaf  *mctstree.Leaf
	Value *float64
}

// resultQueue is the unbounded multi-producer/single-consumer result
// queue: any number of shims push, the main loop polls with a timeout. A
// mutex-guarded slice plus a one-slot wake-up channel is enough here; Go
// channels alone can't express "unbounded" without an arbitrary capacity
// guess.
type resultQueue struct {
	mu     sync.Mutex
	items  []masterResult
	signal chan struct{}
}

func newResultQueue() *resultQueue {
	return &resultQueue{signal: make(chan struct{}, 1)}
}

// Push enqueues a result and wakes up a waiting Get.
func (q *resultQueue) Push(r masterResult) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Get waits up to timeout for a result, returning ok=false on timeout;
// a timed-out poll is not an error.
func (q *resultQueue) Get(timeout time.Duration) (masterResult, bool) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return masterResult{}, false
		}
		select {
		case <-q.signal:
		case <-time.After(remaining):
			return masterResult{}, false
		}
	}
}
