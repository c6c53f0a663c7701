package engine

import "time"

// Phase is the position of the engine in the spawn/fall/lock cycle
type Phase string

const (
	PhaseSpawning Phase = "spawning"
	PhaseFalling  Phase = "falling"
	PhaseLocking  Phase = "locking"
	PhaseGameOver Phase = "game_over"
)

// Action is a player input understood by Apply
type Action string

const (
	ActionLeft   Action = "left"
	ActionRight  Action = "right"
	ActionDown   Action = "down"
	ActionRotate Action = "rotate"
	ActionDrop   Action = "drop"
	ActionHold   Action = "hold"
	ActionPause  Action = "pause"
	ActionTick   Action = "tick"
)

// AllActions lists every accepted action
var AllActions = []Action{ActionLeft, ActionRight, ActionDown, ActionRotate, ActionDrop, ActionHold, ActionPause, ActionTick}

// Valid reports whether a is a known action
func (a Action) Valid() bool {
	for _, known := range AllActions {
		if a == known {
			return true
		}
	}
	return false
}

const (
	// Validation constants
	MinBoardWidth      = 4
	MaxBoardWidth      = 40
	MinBoardHeight     = 4
	MaxBoardHeight     = 60
	MinPreviewCount    = 3
	MaxPreviewCount    = 7
	MaxStartLevel      = 30
	ScoreTableSize     = 5
	MaxBulkActions     = 50
	MaxHistoryEntries  = 1000
	DefaultBoardWidth  = 10
	DefaultBoardHeight = 22
	DefaultPreview     = 3
	DefaultLinesPerLvl = 10
	DefaultGravityBase = 800
	DefaultGravityStep = 70
	DefaultGravityMin  = 50
)

// DefaultScoreTable awards points by lines cleared at once, before the level multiplier
var DefaultScoreTable = []int{0, 100, 300, 500, 800}

// GravityConfig controls the automatic fall cadence
type GravityConfig struct {
	BaseMillis int  `json:"base_ms"`
	StepMillis int  `json:"step_ms"`
	MinMillis  int  `json:"min_ms"`
	Manual     bool `json:"manual,omitempty"` // no background driver; pieces fall on "tick"
}

// GameMessages are the texts shown on notable transitions
type GameMessages struct {
	Welcome   string `json:"welcome"`
	Paused    string `json:"paused"`
	Resumed   string `json:"resumed"`
	LineClear string `json:"line_clear"` // %d lines
	LevelUp   string `json:"level_up"`   // %d level
	GameOver  string `json:"game_over"`  // %d final score
}

// GameConfig holds the rules of a game session loaded from JSON
type GameConfig struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	BoardWidth    int           `json:"board_width"`
	BoardHeight   int           `json:"board_height"`
	PreviewCount  int           `json:"preview_count"`
	HoldEnabled   bool          `json:"hold_enabled"`
	StartLevel    int           `json:"start_level"`
	LinesPerLevel int           `json:"lines_per_level"`
	ScoreTable    []int         `json:"score_table"`
	Seed          int64         `json:"seed,omitempty"`
	Layout        []string      `json:"layout,omitempty"` // pre-filled bottom rows
	Gravity       GravityConfig `json:"gravity"`
	Messages      GameMessages  `json:"messages"`
}

// ActivePiece is the falling, player controlled piece
type ActivePiece struct {
	Kind  PieceKind `json:"kind"`
	Shape Shape     `json:"shape"`
	X     int       `json:"x"`
	Y     int       `json:"y"`
}

// Clone returns a deep copy
func (p *ActivePiece) Clone() *ActivePiece {
	if p == nil {
		return nil
	}
	return &ActivePiece{Kind: p.Kind, Shape: p.Shape.Clone(), X: p.X, Y: p.Y}
}

// Cells returns the absolute board coordinates covered by the piece
func (p *ActivePiece) Cells() []Position {
	if p == nil {
		return nil
	}
	var out []Position
	for i, row := range p.Shape {
		for j, filled := range row {
			if filled {
				out = append(out, Position{X: p.X + j, Y: p.Y + i})
			}
		}
	}
	return out
}

// Position represents x,y board coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// LockResult describes one completed lock sequence
type LockResult struct {
	Kind         PieceKind `json:"kind"`
	Position     Position  `json:"position"`
	LinesCleared int       `json:"lines_cleared"`
	ScoreAwarded int       `json:"score_awarded"`
	LevelBefore  int       `json:"level_before"`
	LevelAfter   int       `json:"level_after"`
	Spawned      PieceKind `json:"spawned,omitempty"`
	GameOver     bool      `json:"game_over"`
}

// LeveledUp reports whether the lock advanced the level
func (r *LockResult) LeveledUp() bool {
	return r != nil && r.LevelAfter > r.LevelBefore
}

// TickResult describes one gravity step
type TickResult struct {
	Acted bool        `json:"acted"` // false when paused, over or not falling
	Moved bool        `json:"moved"`
	Lock  *LockResult `json:"lock,omitempty"`
}

// Outcome is the result of Apply
type Outcome struct {
	Action  Action      `json:"action"`
	Success bool        `json:"success"`
	Lock    *LockResult `json:"lock,omitempty"`
	Held    PieceKind   `json:"held,omitempty"`
	State   *GameState  `json:"-"`
}

// ActionHistoryEntry records one player action
type ActionHistoryEntry struct {
	Action       Action    `json:"action"`
	Success      bool      `json:"success"`
	Piece        PieceKind `json:"piece,omitempty"`
	Position     Position  `json:"position"`
	LinesCleared int       `json:"lines_cleared,omitempty"`
	Score        int       `json:"score"`
	Level        int       `json:"level"`
	Timestamp    int64     `json:"timestamp"`
	ActionNumber int       `json:"action_number"`
}

// GameState is a consistent, detached snapshot of a session
type GameState struct {
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	Board        []string     `json:"board"`
	Active       *ActivePiece `json:"active,omitempty"`
	GhostY       int          `json:"ghost_y"`
	Hold         PieceKind    `json:"hold,omitempty"`
	HoldUsed     bool         `json:"hold_used"`
	Next         []PieceKind  `json:"next"`
	Score        int          `json:"score"`
	Level        int          `json:"level"`
	LinesCleared int          `json:"lines_cleared"`
	PiecesPlaced int          `json:"pieces_placed"`
	Running      bool         `json:"running"`
	Paused       bool         `json:"paused"`
	GameOver     bool         `json:"game_over"`
	Phase        Phase        `json:"phase"`
	ElapsedMs    int64        `json:"elapsed_ms"`
	GravityMs    int64        `json:"gravity_ms"`
	Message      string       `json:"message"`
	ConfigName   string       `json:"config_name"`

	// ActionHistory is cumulative across resets; CurrentActions counts since the last reset
	ActionHistory  []ActionHistoryEntry `json:"action_history"`
	TotalActions   int                  `json:"total_actions"`
	CurrentActions int                  `json:"current_actions"`
}

// Elapsed returns the active play time as a duration
func (s *GameState) Elapsed() time.Duration {
	return time.Duration(s.ElapsedMs) * time.Millisecond
}

// GhostChar marks the landing position of the active piece in Overlay
const GhostChar = '+'

// Overlay returns the board rows with the active piece drawn in its letter
// and its landing position drawn with GhostChar.
func (s *GameState) Overlay() []string {
	rows := make([][]byte, len(s.Board))
	for y, row := range s.Board {
		rows[y] = []byte(row)
	}
	inside := func(p Position) bool {
		return p.Y >= 0 && p.Y < len(rows) && p.X >= 0 && p.X < len(rows[p.Y])
	}
	if s.Active != nil {
		if s.GhostY > s.Active.Y {
			ghost := ActivePiece{Shape: s.Active.Shape, X: s.Active.X, Y: s.GhostY}
			for _, c := range ghost.Cells() {
				if inside(c) && rows[c.Y][c.X] == '.' {
					rows[c.Y][c.X] = GhostChar
				}
			}
		}
		for _, c := range s.Active.Cells() {
			if inside(c) {
				rows[c.Y][c.X] = s.Active.Kind.Letter()
			}
		}
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = string(r)
	}
	return out
}
