package engine

import (
	"math/rand/v2"
	"time"
)

// Clock supplies monotonic time to the engine and the gravity driver
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RandomSource draws uniform integers in [0, n)
type RandomSource interface {
	IntN(n int) int
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the wall clock. time.Now carries a monotonic reading,
// so durations computed from it are immune to wall clock jumps.
func SystemClock() Clock {
	return systemClock{}
}

// NewRandomSource returns a PCG generator. A zero seed draws a random seed.
func NewRandomSource(seed int64) RandomSource {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}
