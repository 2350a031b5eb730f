package mctstree

import (
	"math/rand"
	"sync"
)

// pseudoRand is the package-wide random source for UCT jitter, expansion
// child choice, and rollout sampling. math/rand's top-level functions are
// already safe for concurrent use, but the tree is only ever touched by
// the master goroutine (per the concurrency model), so a plain source
// guarded by a mutex is enough and keeps the output reproducible when
// seeded in tests.
var pseudoRand = newLockedRand()

type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func newLockedRand() *lockedRand {
	return &lockedRand{src: rand.New(rand.NewSource(1))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}

// Seed reseeds the package-wide random source. Exposed for tests and for
// wiring a scenario's configured seed (scenarioSpace.parameters.seed.
// default) through to rollout/selection randomness.
func Seed(seed int64) {
	pseudoRand.mu.Lock()
	defer pseudoRand.mu.Unlock()
	pseudoRand.src = rand.New(rand.NewSource(seed))
}
