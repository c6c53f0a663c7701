package engine

import (
	"sync"
	"time"
)

// fakeClock is a manually advanced Clock
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []fakeWaiter
	last    time.Duration
}

type fakeWaiter struct {
	at time.Time
	ch chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = d
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, fakeWaiter{at: c.now.Add(d), ch: ch})
	return ch
}

// Advance moves time forward and fires every due timer
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.at.After(c.now) {
			w.ch <- c.now
			continue
		}
		kept = append(kept, w)
	}
	c.waiters = kept
}

func (c *fakeClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *fakeClock) LastDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// seqRandom replays a fixed sequence of draws
type seqRandom struct {
	seq []int
	i   int
}

func (r *seqRandom) IntN(n int) int {
	v := r.seq[r.i%len(r.seq)] % n
	r.i++
	return v
}

func createTestConfig() *GameConfig {
	config := DefaultGameConfig()
	config.Name = "engine-test"
	config.Description = "Configuration for engine tests"
	return config
}

// newTestEngine builds an engine on a fake clock with a scripted piece sequence.
// Kinds are indexes into AllPieceKinds.
func newTestEngine(config *GameConfig, seq ...int) (*GameEngine, *fakeClock) {
	clock := newFakeClock()
	if len(seq) == 0 {
		seq = []int{2}
	}
	e, err := NewEngine(config, WithClock(clock), WithRandom(&seqRandom{seq: seq}))
	if err != nil {
		panic(err)
	}
	return e, clock
}

func emptyRows(width, height int) []string {
	rows := make([]string, height)
	for i := range rows {
		rows[i] = repeat('.', width)
	}
	return rows
}

func repeat(ch byte, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ch
	}
	return string(b)
}
