package randutil

import (
	rand "math/rand/v2"
	"sync"
	"time"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Both PCG seeds are derived from the one value so a single --seed flag
// reproduces every secret number and every agent guess.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Locked is a *rand.Rand that may be shared between goroutines.
type Locked struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLocked wraps a seeded generator. A nil seed picks one from the wall clock.
func NewLocked(seed *int64) *Locked {
	s := time.Now().UnixNano()
	if seed != nil {
		s = *seed
	}
	return &Locked{rng: New(s)}
}

// IntN returns a value in [0, n). It panics if n <= 0, like rand.IntN.
func (l *Locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

// IntRange returns a value in the closed interval [lo, hi].
func (l *Locked) IntRange(lo, hi int) int {
	return lo + l.IntN(hi-lo+1)
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
