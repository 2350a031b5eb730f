// Package master owns the search tree and drives the configuration run:
// a bounded task queue fed by UCT leaf selection, an unbounded result
// queue drained with a high-/low-water discipline, one in-process worker
// shim per executor rank, a wall-clock deadline, and periodic
// checkpointing.
package master

import (
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/yourorg/paramsearch/internal/bus"
	"github.com/yourorg/paramsearch/internal/checkpoint"
	"github.com/yourorg/paramsearch/internal/instanceselect"
	"github.com/yourorg/paramsearch/internal/mctsparam"
	"github.com/yourorg/paramsearch/internal/mctstree"
)

func stopCommand() bus.Command {
	return bus.Command{Kind: bus.CmdStop}
}

// Config bundles everything the master needs to run one configuration
// search to completion.
type Config struct {
	Store            *mctstree.Store
	Registry         *mctsparam.Registry
	InstanceSelector *instanceselect.Selector
	InstanceVariable string
	Timeout          float64
	Penalty          float64 // multiplied by Timeout for interrupted runs, default 3
	StatePath        string
	Compress         bool
	ResultPoll       time.Duration // default 5s
	Log              *slog.Logger
}

// Master runs the main producer loop: select a leaf, enqueue it, drain
// results past the high-water mark, back-propagate, checkpoint.
type Master struct {
	store            *mctstree.Store
	registry         *mctsparam.Registry
	instanceSelector *instanceselect.Selector
	instanceVariable string
	timeout          float64
	penalty          float64
	statePath        string
	compress         bool
	resultPoll       time.Duration
	log              *slog.Logger

	numExecutors int
	taskCh       chan *mctstree.Leaf
	results      *resultQueue
	transports   []Transport
}

// New creates a Master with one shim per transport (the executor ranks,
// in rank order starting at 1) and starts the shim goroutines.
func New(cfg Config, transports []Transport) *Master {
	w := len(transports)
	if cfg.ResultPoll <= 0 {
		cfg.ResultPoll = 5 * time.Second
	}
	if cfg.Penalty <= 0 {
		cfg.Penalty = 3
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	m := &Master{
		store:            cfg.Store,
		registry:         cfg.Registry,
		instanceSelector: cfg.InstanceSelector,
		instanceVariable: cfg.InstanceVariable,
		timeout:          cfg.Timeout,
		penalty:          cfg.Penalty,
		statePath:        cfg.StatePath,
		compress:         cfg.Compress,
		resultPoll:       cfg.ResultPoll,
		log:              cfg.Log,
		numExecutors:     w,
		taskCh:           make(chan *mctstree.Leaf, 2*w),
		results:          newResultQueue(),
		transports:       transports,
	}

	for i, t := range transports {
		s := &shim{
			rank:             i + 1,
			transport:        t,
			instanceSelector: cfg.InstanceSelector,
			results:          m.results,
			log:              cfg.Log,
		}
		go s.run(m.taskCh)
	}

	return m
}

// Run executes the main loop until limit elapses, then shuts down every
// executor, writes a final checkpoint, and returns the deterministic
// best-assignment string. limit is the already-resolved
// wall-clock budget for the search (the CLI layer converts --limit
// minutes into a Duration before calling Run).
func (m *Master) Run(limit time.Duration) string {
	var terminate atomic.Bool
	timer := time.AfterFunc(limit, func() { terminate.Store(true) })
	defer timer.Stop()

	upperBound := m.numExecutors
	lowerBound := int(math.Ceil(float64(m.numExecutors) / 2))

	for !terminate.Load() {
		leaf := mctstree.SelectLeaf(m.store, m.registry)
		m.log.Debug("leaf selected", "node_key", leaf.Node.Key())
		m.taskCh <- leaf

		if len(m.taskCh) < upperBound {
			continue
		}

		for len(m.taskCh) > lowerBound && !terminate.Load() {
			if result, ok := m.results.Get(m.resultPoll); ok {
				m.update(result)
			}
		}
		m.checkpoint()
	}

	m.stopAll()
	m.checkpoint()
	return mctstree.BestAssignment(m.store)
}

// update back-propagates one result, substituting penalty*timeout for a
// timed-out (nil-value) run.
func (m *Master) update(result masterResult) {
	value := m.penalty * m.timeout
	if result.Value != nil {
		value = *result.Value
	}
	m.log.Debug("updating tree", "node_key", result.Leaf.Node.Key(), "value", value)
	mctstree.Backpropagate(m.store, result.Leaf, value)
}

func (m *Master) checkpoint() {
	cfg := checkpoint.ConfigSnapshot{InstanceVariable: m.instanceVariable, Timeout: m.timeout}
	if err := checkpoint.SaveTo(m.statePath, m.compress, cfg, m.registry, m.store); err != nil {
		m.log.Error("checkpoint failed", "error", err, "path", m.statePath)
	}
}

// stopAll sends a stop command directly to every executor, bypassing the
// task queue so shutdown isn't delayed by queued work.
func (m *Master) stopAll() {
	for i, t := range m.transports {
		rank := i + 1
		if err := t.SendCommand(stopCommand()); err != nil {
			m.log.Error("failed to stop executor", "rank", rank, "error", err)
		}
	}
	close(m.taskCh)
}

// NodeCount and ParameterCount report the sizes of the node store and the
// parameter registry.
func (m *Master) NodeCount() int      { return m.store.Count() }
func (m *Master) ParameterCount() int { return m.registry.Count() }
