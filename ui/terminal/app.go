package terminal

import (
	"context"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
	"github.com/wricardo/mcp-training/tetrisgame/logx"
)

// DefaultRefresh is how often the screen is redrawn without input, which
// keeps the play clock moving
const DefaultRefresh = 250 * time.Millisecond

// App plays one local game on a terminal screen
type App struct {
	screen  tcell.Screen
	engine  *engine.GameEngine
	clock   engine.Clock
	log     logx.Logger
	sound   Sound
	refresh time.Duration
}

// Option configures an App
type Option func(*App)

// WithLogger sets the logger. Logging to the terminal being drawn on garbles
// the screen, so pass a file backed logger or none.
func WithLogger(l logx.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.log = l
		}
	}
}

// WithSound plays effects on line clears and game over
func WithSound(s Sound) Option {
	return func(a *App) {
		if s != nil {
			a.sound = s
		}
	}
}

// WithClock sets the clock of the gravity driver
func WithClock(c engine.Clock) Option {
	return func(a *App) {
		a.clock = c
	}
}

// WithRefresh sets the idle redraw interval
func WithRefresh(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.refresh = d
		}
	}
}

// New creates an App. The screen must already be initialized; the caller
// keeps ownership and calls Fini.
func New(screen tcell.Screen, eng *engine.GameEngine, opts ...Option) *App {
	a := &App{
		screen:  screen,
		engine:  eng,
		log:     logx.Nop(),
		sound:   noSound{},
		refresh: DefaultRefresh,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// actionForKey maps a key press to a game action
func actionForKey(ev *tcell.EventKey) (engine.Action, bool) {
	switch ev.Key() {
	case tcell.KeyLeft:
		return engine.ActionLeft, true
	case tcell.KeyRight:
		return engine.ActionRight, true
	case tcell.KeyDown:
		return engine.ActionDown, true
	case tcell.KeyUp:
		return engine.ActionRotate, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'x', 'X':
			return engine.ActionRotate, true
		case ' ':
			return engine.ActionDrop, true
		case 'c', 'C':
			return engine.ActionHold, true
		case 'p', 'P':
			return engine.ActionPause, true
		case 't', 'T':
			return engine.ActionTick, true
		}
	}
	return "", false
}

func isQuit(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q' || ev.Rune() == 'Q'
	}
	return false
}

func isReset(ev *tcell.EventKey) bool {
	return ev.Key() == tcell.KeyRune && (ev.Rune() == 'r' || ev.Rune() == 'R')
}

// Run plays until the player quits or ctx is cancelled. Gravity runs on its
// own goroutine unless the config asks for manual gravity, in which case
// 't' advances the piece.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	if !a.engine.GetConfig().Gravity.Manual {
		gravity := engine.NewGravityScheduler(a.engine, a.clock)
		gravity.OnTick = func(res engine.TickResult, _ *engine.GameState) {
			a.react(res.Lock)
			// Wake the event loop so the fall is drawn right away
			a.screen.PostEvent(tcell.NewEventInterrupt(nil))
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			gravity.Run(ctx)
		}()
	}

	events := make(chan tcell.Event, 64)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(a.refresh)
	defer ticker.Stop()

	a.log.Infof("terminal game started config=%s", a.engine.GetConfig().Name)
	a.draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if !a.handleEvent(ev) {
				state := a.engine.GetState()
				a.log.Infof("terminal game ended score=%d lines=%d level=%d", state.Score, state.LinesCleared, state.Level)
				return nil
			}
		case <-ticker.C:
			a.draw()
		}
	}
}

// handleEvent returns false when the player quits
func (a *App) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if isQuit(ev) {
			return false
		}
		if isReset(ev) {
			if _, err := a.engine.Reset(); err != nil {
				a.log.Warnf("reset failed: %v", err)
			} else {
				a.log.Debug("game reset")
			}
			a.draw()
			return true
		}
		if action, ok := actionForKey(ev); ok {
			out := a.engine.Apply(action)
			a.react(out.Lock)
			a.draw()
		}
	case *tcell.EventResize:
		a.screen.Sync()
		a.draw()
	case *tcell.EventInterrupt:
		a.draw()
	}
	return true
}

func (a *App) react(lock *engine.LockResult) {
	if lock == nil {
		return
	}
	if lock.LinesCleared > 0 {
		a.log.Debugf("cleared %d lines score=%d", lock.LinesCleared, lock.ScoreAwarded)
		a.sound.LineClear(lock.LinesCleared)
	}
	if lock.GameOver {
		a.sound.GameOver()
	}
}

func (a *App) draw() {
	a.screen.Clear()
	drawGame(a.screen, a.engine.GetState())
	a.screen.Show()
}
