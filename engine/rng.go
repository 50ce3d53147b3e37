package engine

import "math/rand"

// countingSource counts every draw from the underlying source so the exact
// stream position can be saved and replayed.
type countingSource struct {
	src rand.Source
	n   int64
}

func (s *countingSource) Int63() int64 {
	s.n++
	return s.src.Int63()
}

func (s *countingSource) Seed(seed int64) {
	s.src.Seed(seed)
	s.n = 0
}

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position counts source draws, enabling save/restore.
type RNG struct {
	seed int64
	src  *countingSource
	rand *rand.Rand
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	src := &countingSource{src: rand.NewSource(seed)}
	return &RNG{
		seed: seed,
		src:  src,
		rand: rand.New(src),
	}
}

// Chance returns true with probability p.
func (r *RNG) Chance(p float64) bool {
	return r.rand.Float64() < p
}

// Between returns a float uniformly distributed in [lo, hi).
func (r *RNG) Between(lo, hi float64) float64 {
	return lo + r.rand.Float64()*(hi-lo)
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of source draws made since creation.
func (r *RNG) Position() int64 {
	return r.src.n
}

// RestoreRNG creates an RNG and advances it to the given position.
// This reproduces the exact RNG state for save/load.
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		rng.src.Int63()
	}
	return rng
}
