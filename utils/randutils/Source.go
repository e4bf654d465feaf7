// Package randutils provides the uniform random source shared by all
// per-core controllers
package randutils

import (
	"sync"

	"golang.org/x/exp/rand"
)

// Source is a uniform random source. Implementations must be safe for
// concurrent use since a single Source is shared by every core.
type Source interface {
	// Float64 returns a uniform sample in [0, 1)
	Float64() float64

	// Intn returns a uniform sample in [0, n). It panics if n <= 0.
	Intn(n int) int
}

// locked guards a rand.Rand with a mutex so that the Rand can be
// shared between goroutines
type locked struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLocked returns a new concurrency-safe Source seeded with seed
func NewLocked(seed uint64) Source {
	return &locked{rng: rand.New(rand.NewSource(seed))}
}

func (l *locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

func (l *locked) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}

// Coin flips a fair coin using the Source
func Coin(s Source) bool {
	return s.Intn(2) == 1
}
