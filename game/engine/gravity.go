package engine

import (
	"context"
)

// GravityScheduler drives automatic falling for one engine. It waits one
// gravity period, then asks the engine for a tick; the engine re-checks
// paused and running under its lock, so a pause or game over that happened
// during the sleep is honoured. While gravity is inactive the loop parks on
// the engine's change channel instead of polling.
type GravityScheduler struct {
	engine Engine
	clock  Clock

	// OnTick, when set, receives the result and snapshot of every tick that acted
	OnTick func(TickResult, *GameState)
}

// NewGravityScheduler creates a scheduler for engine. A nil clock uses the system clock.
func NewGravityScheduler(engine Engine, clock Clock) *GravityScheduler {
	if clock == nil {
		clock = SystemClock()
	}
	return &GravityScheduler{engine: engine, clock: clock}
}

// Run blocks until ctx is cancelled
func (g *GravityScheduler) Run(ctx context.Context) {
	for {
		active, period, changed := g.engine.GravityStatus()
		if !active {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-changed:
			// Paused, reset or restored while sleeping; start a fresh period
			continue
		case <-g.clock.After(period):
		}

		res := g.engine.Tick()
		if res.Acted && g.OnTick != nil {
			g.OnTick(res, g.engine.GetState())
		}
	}
}
