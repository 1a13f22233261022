package muzgo

import (
	"math/rand"

	rng "github.com/leesper/go_rng"
)

// Stream is a small splittable source of randomness. A Stream is a value:
// it never advances in place. Derived generators are made by folding salts
// into it, so the same (seed, salt...) path always produces the same draws
// no matter what other parts of the pipeline consumed.
type Stream struct {
	state uint64
}

// NewStream makes the root stream for a run.
func NewStream(seed int64) Stream {
	return Stream{state: splitmix(uint64(seed))}
}

// FoldIn derives an independent child stream. Distinct salts give
// decorrelated children; the same salt always gives the same child.
func (s Stream) FoldIn(salt uint64) Stream {
	return Stream{state: splitmix(s.state ^ splitmix(salt+0x9e3779b97f4a7c15))}
}

// Int63 exposes the stream as a non-negative seed.
func (s Stream) Int63() int64 {
	return int64(s.state >> 1)
}

// Rand makes a deterministic math/rand generator seeded from the stream.
func (s Stream) Rand() *rand.Rand {
	return rand.New(rand.NewSource(s.Int63()))
}

// Uniform makes a deterministic uniform variate generator seeded from the
// stream.
func (s Stream) Uniform() *rng.UniformGenerator {
	return rng.NewUniformGenerator(s.Int63())
}

// splitmix is the finalizer of splitmix64. One round is enough to spread
// small consecutive salts over the whole state space.
func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
