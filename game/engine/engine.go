package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Piece control
	Spawn() bool
	Move(dx, dy int) bool
	Rotate() bool
	HardDrop() bool
	Hold() bool
	TogglePause() bool

	// Gravity
	Tick() TickResult
	GravityPeriod() time.Duration
	GravityStatus() (active bool, period time.Duration, changed <-chan struct{})

	// Game state management
	Apply(action Action) Outcome
	GetState() *GameState
	SetState(state *GameState) error
	Reset() (*GameState, error)
	IsGameOver() bool
	GetConfig() *GameConfig
}

// Option customises a GameEngine at construction
type Option func(*GameEngine) error

// WithClock injects the time source used for elapsed time and history timestamps
func WithClock(clock Clock) Option {
	return func(e *GameEngine) error {
		if clock == nil {
			return errors.New("engine: clock is nil")
		}
		e.clock = clock
		return nil
	}
}

// WithRandom injects the source of piece kinds
func WithRandom(rng RandomSource) Option {
	return func(e *GameEngine) error {
		if rng == nil {
			return errors.New("engine: random source is nil")
		}
		e.rng = rng
		return nil
	}
}

// GameEngine implements the Engine interface. A single mutex guards every
// field; each exported method holds it for its full duration.
type GameEngine struct {
	mu     sync.Mutex
	config *GameConfig
	clock  Clock
	rng    RandomSource
	reseed bool // rng is rebuilt from config.Seed on every new game

	board    *Board
	queue    *PieceQueue
	active   *ActivePiece
	hold     PieceKind
	holdUsed bool

	score  int
	level  int
	lines  int
	pieces int

	running  bool
	paused   bool
	gameOver bool
	phase    Phase
	message  string

	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	endedAt     time.Time

	history        []ActionHistoryEntry
	totalActions   int
	currentActions int

	// changed is closed and replaced whenever pause, reset or restore
	// alters whether gravity should run
	changed chan struct{}
}

// NewEngine creates a new game engine with the provided configuration and
// spawns the first piece
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config:  config,
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.clock == nil {
		e.clock = SystemClock()
	}
	if e.rng == nil {
		e.reseed = true
	}

	if err := e.init(); err != nil {
		return nil, err
	}
	return e, nil
}

// init rebuilds the per-game state from config. Caller holds mu or owns e.
// On error nothing is modified.
func (e *GameEngine) init() error {
	board := NewBoard(e.config.BoardWidth, e.config.BoardHeight)
	if len(e.config.Layout) > 0 {
		if err := board.LoadRows(e.config.Layout); err != nil {
			return fmt.Errorf("engine: layout: %w", err)
		}
	}

	if e.reseed {
		e.rng = NewRandomSource(e.config.Seed)
	}
	e.board = board
	e.queue = NewPieceQueue(e.rng, e.config.PreviewCount)
	e.active = nil
	e.hold = NoPiece
	e.holdUsed = false
	e.score = 0
	e.level = e.config.StartLevel
	e.lines = 0
	e.pieces = 0
	e.running = true
	e.paused = false
	e.gameOver = false
	e.phase = PhaseSpawning
	e.message = e.config.Messages.Welcome
	e.startedAt = e.clock.Now()
	e.pausedAt = time.Time{}
	e.pausedTotal = 0
	e.endedAt = time.Time{}
	e.currentActions = 0

	e.spawn()
	return nil
}

// GetConfig returns the game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// IsGameOver reports whether the last spawn collided
func (e *GameEngine) IsGameOver() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gameOver
}

// Spawn draws the next kind and places it at the top center.
// It only acts when no piece is live; a colliding spawn ends the game.
func (e *GameEngine) Spawn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || e.paused || e.active != nil {
		return false
	}
	return e.spawn()
}

// Move shifts the active piece by (dx, dy) if the target is valid
func (e *GameEngine) Move(dx, dy int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.move(dx, dy)
}

// Rotate turns the active piece clockwise in place. Collisions reject the
// rotation outright; there are no wall kicks.
func (e *GameEngine) Rotate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rotate()
}

// HardDrop drops the active piece to its ghost position and locks it
func (e *GameEngine) HardDrop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hardDrop() != nil
}

// Hold stores or swaps the active piece, once per spawn
func (e *GameEngine) Hold() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.holdPiece()
}

// TogglePause flips the paused flag. It has no effect once the game is over.
func (e *GameEngine) TogglePause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.togglePause()
}

// Tick runs one gravity step: move down, or lock when the piece cannot fall.
// Paused or finished games are left untouched.
func (e *GameEngine) Tick() TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick()
}

// Reset reinitialises the game from config. Action history stays cumulative.
// A seeded config replays the same piece sequence. If the config layout no
// longer fits the board the current game is kept and an error is returned.
func (e *GameEngine) Reset() (*GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.init(); err != nil {
		return e.snapshot(), err
	}
	e.notify()
	return e.snapshot(), nil
}

// GravityPeriod returns the fall interval for the current level
func (e *GameEngine) GravityPeriod() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config.GravityPeriod(e.level)
}

// GravityStatus reports, in one consistent read, whether gravity should be
// running, the current period, and a channel closed on the next change.
func (e *GameEngine) GravityStatus() (bool, time.Duration, <-chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	active := e.running && !e.paused && !e.gameOver
	return active, e.config.GravityPeriod(e.level), e.changed
}

// Apply performs one player action, records it in the history and returns
// the outcome with a snapshot taken under the same lock
func (e *GameEngine) Apply(action Action) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := Outcome{Action: action}
	if !action.Valid() {
		out.State = e.snapshot()
		return out
	}

	var piece PieceKind
	var pos Position
	if e.active != nil {
		piece = e.active.Kind
		pos = Position{X: e.active.X, Y: e.active.Y}
	}

	switch action {
	case ActionLeft:
		out.Success = e.move(-1, 0)
	case ActionRight:
		out.Success = e.move(1, 0)
	case ActionDown:
		out.Success = e.move(0, 1)
	case ActionRotate:
		out.Success = e.rotate()
	case ActionDrop:
		out.Lock = e.hardDrop()
		out.Success = out.Lock != nil
	case ActionHold:
		out.Success = e.holdPiece()
		if out.Success {
			out.Held = e.hold
		}
	case ActionPause:
		out.Success = e.togglePause()
	case ActionTick:
		res := e.tick()
		out.Success = res.Acted
		out.Lock = res.Lock
	}

	if e.active != nil && out.Lock == nil {
		pos = Position{X: e.active.X, Y: e.active.Y}
	} else if out.Lock != nil {
		pos = out.Lock.Position
	}
	lines := 0
	if out.Lock != nil {
		lines = out.Lock.LinesCleared
	}
	e.addHistory(ActionHistoryEntry{
		Action:       action,
		Success:      out.Success,
		Piece:        piece,
		Position:     pos,
		LinesCleared: lines,
		Score:        e.score,
		Level:        e.level,
	})

	out.State = e.snapshot()
	return out
}

func (e *GameEngine) canControl() bool {
	return e.running && !e.paused && !e.gameOver && e.active != nil && e.phase == PhaseFalling
}

func (e *GameEngine) spawnOrigin(shape Shape) (int, int) {
	return e.board.Width()/2 - shape.Width()/2, 0
}

// spawn draws the next kind from the queue and places it
func (e *GameEngine) spawn() bool {
	if e.spawnKind(e.queue.Next()) {
		e.holdUsed = false
		return true
	}
	return false
}

// spawnKind places kind in canonical orientation at the spawn origin.
// An invalid origin is the only game over trigger.
func (e *GameEngine) spawnKind(kind PieceKind) bool {
	e.phase = PhaseSpawning
	shape := kind.Shape()
	x, y := e.spawnOrigin(shape)
	if !e.board.IsValid(shape, x, y) {
		e.active = nil
		e.running = false
		e.gameOver = true
		e.phase = PhaseGameOver
		e.endedAt = e.clock.Now()
		e.message = fmt.Sprintf(e.config.Messages.GameOver, e.score)
		e.notify()
		return false
	}
	e.active = &ActivePiece{Kind: kind, Shape: shape, X: x, Y: y}
	e.phase = PhaseFalling
	return true
}

func (e *GameEngine) move(dx, dy int) bool {
	if !e.canControl() {
		return false
	}
	nx, ny := e.active.X+dx, e.active.Y+dy
	if !e.board.IsValid(e.active.Shape, nx, ny) {
		return false
	}
	e.active.X, e.active.Y = nx, ny
	return true
}

func (e *GameEngine) rotate() bool {
	if !e.canControl() {
		return false
	}
	rotated := RotateCW(e.active.Shape)
	if !e.board.IsValid(rotated, e.active.X, e.active.Y) {
		return false
	}
	e.active.Shape = rotated
	return true
}

func (e *GameEngine) hardDrop() *LockResult {
	if !e.canControl() {
		return nil
	}
	e.active.Y = e.board.GhostY(e.active.Shape, e.active.X, e.active.Y)
	return e.lock()
}

func (e *GameEngine) holdPiece() bool {
	if !e.config.HoldEnabled || !e.canControl() || e.holdUsed {
		return false
	}

	current := e.active.Kind
	if e.hold == NoPiece {
		e.hold = current
		e.active = nil
		e.spawnKind(e.queue.Next())
	} else {
		swapped := e.hold
		e.hold = current
		e.active = nil
		e.spawnKind(swapped)
	}
	e.holdUsed = true
	return true
}

func (e *GameEngine) togglePause() bool {
	if !e.running || e.gameOver {
		return false
	}
	now := e.clock.Now()
	if e.paused {
		e.pausedTotal += now.Sub(e.pausedAt)
		e.pausedAt = time.Time{}
		e.paused = false
		e.message = e.config.Messages.Resumed
	} else {
		e.pausedAt = now
		e.paused = true
		e.message = e.config.Messages.Paused
	}
	e.notify()
	return true
}

func (e *GameEngine) tick() TickResult {
	if !e.canControl() {
		return TickResult{}
	}
	if e.board.IsValid(e.active.Shape, e.active.X, e.active.Y+1) {
		e.active.Y++
		return TickResult{Acted: true, Moved: true}
	}
	return TickResult{Acted: true, Lock: e.lock()}
}

// lock freezes the active piece, clears lines, updates score and level and
// spawns the next piece
func (e *GameEngine) lock() *LockResult {
	piece := e.active
	e.phase = PhaseLocking
	e.board.Freeze(piece.Shape, piece.X, piece.Y, piece.Kind)
	e.active = nil
	e.pieces++

	res := &LockResult{
		Kind:        piece.Kind,
		Position:    Position{X: piece.X, Y: piece.Y},
		LevelBefore: e.level,
	}

	cleared := e.board.ClearLines()
	res.LinesCleared = cleared
	res.ScoreAwarded = e.config.ScoreFor(cleared, e.level)
	e.lines += cleared
	e.score += res.ScoreAwarded
	e.level = e.config.LevelFor(e.lines)
	res.LevelAfter = e.level

	if res.LeveledUp() && e.config.Messages.LevelUp != "" {
		e.message = fmt.Sprintf(e.config.Messages.LevelUp, e.level)
	} else if cleared > 0 && e.config.Messages.LineClear != "" {
		e.message = fmt.Sprintf(e.config.Messages.LineClear, cleared)
	}

	if e.spawn() {
		res.Spawned = e.active.Kind
	} else {
		res.GameOver = true
	}
	return res
}

func (e *GameEngine) addHistory(entry ActionHistoryEntry) {
	e.totalActions++
	e.currentActions++
	entry.Timestamp = e.clock.Now().UnixMilli()
	entry.ActionNumber = e.totalActions
	e.history = append(e.history, entry)
	if over := len(e.history) - MaxHistoryEntries; over > 0 {
		e.history = append(e.history[:0], e.history[over:]...)
	}
}

// notify wakes anyone waiting on GravityStatus. Caller holds mu.
func (e *GameEngine) notify() {
	close(e.changed)
	e.changed = make(chan struct{})
}

// elapsed returns active play time: wall time minus paused time, frozen at game over
func (e *GameEngine) elapsed() time.Duration {
	end := e.clock.Now()
	switch {
	case e.gameOver:
		end = e.endedAt
	case e.paused:
		end = e.pausedAt
	}
	d := end.Sub(e.startedAt) - e.pausedTotal
	if d < 0 {
		return 0
	}
	return d
}
