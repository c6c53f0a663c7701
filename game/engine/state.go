package engine

import (
	"errors"
	"fmt"
	"time"
)

// GetState returns a detached snapshot of the game. The caller may keep or
// modify it freely.
func (e *GameEngine) GetState() *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// snapshot copies the current state. Caller holds mu.
func (e *GameEngine) snapshot() *GameState {
	s := &GameState{
		Width:          e.board.Width(),
		Height:         e.board.Height(),
		Board:          e.board.Rows(),
		Active:         e.active.Clone(),
		GhostY:         -1,
		Hold:           e.hold,
		HoldUsed:       e.holdUsed,
		Next:           e.queue.Peek(),
		Score:          e.score,
		Level:          e.level,
		LinesCleared:   e.lines,
		PiecesPlaced:   e.pieces,
		Running:        e.running,
		Paused:         e.paused,
		GameOver:       e.gameOver,
		Phase:          e.phase,
		ElapsedMs:      e.elapsed().Milliseconds(),
		GravityMs:      e.config.GravityPeriod(e.level).Milliseconds(),
		Message:        e.message,
		ConfigName:     e.config.Name,
		ActionHistory:  append([]ActionHistoryEntry{}, e.history...),
		TotalActions:   e.totalActions,
		CurrentActions: e.currentActions,
	}
	if e.active != nil {
		s.GhostY = e.board.GhostY(e.active.Shape, e.active.X, e.active.Y)
	}
	return s
}

// SetState restores a snapshot, typically one loaded from persistence.
// The board size must match the configuration and any active piece must
// sit on a valid placement.
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return errors.New("state cannot be nil")
	}
	if state.Width != e.config.BoardWidth || state.Height != e.config.BoardHeight {
		return fmt.Errorf("state board is %dx%d, config %q expects %dx%d",
			state.Width, state.Height, e.config.Name, e.config.BoardWidth, e.config.BoardHeight)
	}
	if len(state.Board) != state.Height {
		return fmt.Errorf("state board has %d rows, expected %d", len(state.Board), state.Height)
	}
	if state.Score < 0 || state.LinesCleared < 0 || state.Level < 1 {
		return fmt.Errorf("state counters out of range: score=%d lines=%d level=%d",
			state.Score, state.LinesCleared, state.Level)
	}
	if state.Hold != NoPiece && !state.Hold.Valid() {
		return fmt.Errorf("state hold piece %d is invalid", state.Hold)
	}

	board := NewBoard(state.Width, state.Height)
	if err := board.LoadRows(state.Board); err != nil {
		return fmt.Errorf("state board: %w", err)
	}

	var active *ActivePiece
	if state.Active != nil && !state.GameOver {
		if !state.Active.Kind.Valid() {
			return fmt.Errorf("state active piece kind %d is invalid", state.Active.Kind)
		}
		active = state.Active.Clone()
		if len(active.Shape) == 0 {
			active.Shape = active.Kind.Shape()
		}
		if !board.IsValid(active.Shape, active.X, active.Y) {
			return fmt.Errorf("state active piece %s at (%d,%d) overlaps the board",
				active.Kind, active.X, active.Y)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.board = board
	e.queue.Restore(state.Next)
	e.active = active
	e.hold = state.Hold
	e.holdUsed = state.HoldUsed
	e.score = state.Score
	e.level = state.Level
	e.lines = state.LinesCleared
	e.pieces = state.PiecesPlaced
	e.gameOver = state.GameOver
	e.running = !state.GameOver
	e.paused = state.Paused && !state.GameOver
	e.message = state.Message

	switch {
	case e.gameOver:
		e.phase = PhaseGameOver
	case e.active != nil:
		e.phase = PhaseFalling
	default:
		e.phase = PhaseSpawning
	}

	now := e.clock.Now()
	e.startedAt = now.Add(-time.Duration(state.ElapsedMs) * time.Millisecond)
	e.pausedTotal = 0
	e.pausedAt = time.Time{}
	e.endedAt = time.Time{}
	if e.paused {
		e.pausedAt = now
	}
	if e.gameOver {
		e.endedAt = now
	}

	e.history = append([]ActionHistoryEntry{}, state.ActionHistory...)
	if over := len(e.history) - MaxHistoryEntries; over > 0 {
		e.history = e.history[over:]
	}
	e.totalActions = state.TotalActions
	if e.totalActions < len(e.history) {
		e.totalActions = len(e.history)
	}
	e.currentActions = state.CurrentActions

	e.notify()
	return nil
}
