package service

import (
	"time"

	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// ActionResult contains the result of a single action
type ActionResult struct {
	Action    engine.Action      `json:"action"`
	Success   bool               `json:"success"`
	GameState *engine.GameState  `json:"game_state"`
	Message   string             `json:"message"`
	Events    []GameEvent        `json:"events,omitempty"`
	Lock      *engine.LockResult `json:"lock,omitempty"`
	Held      engine.PieceKind   `json:"held,omitempty"`
}

// BulkActionResult contains the result of multiple actions
type BulkActionResult struct {
	// Summary
	ActionsExecuted  int               `json:"actions_executed"`
	RequestedActions int               `json:"requested_actions"`
	Succeeded        int               `json:"succeeded"`
	Success          bool              `json:"success"` // every executed action succeeded
	GameState        *engine.GameState `json:"game_state"`
	Events           []GameEvent       `json:"events"`
	StoppedReason    string            `json:"stopped_reason,omitempty"`
	StopReasonCode   string            `json:"stop_reason_code,omitempty"` // game_over
	StoppedOnAction  int               `json:"stopped_on_action,omitempty"`
	Truncated        bool              `json:"truncated,omitempty"`
	Limit            int               `json:"limit,omitempty"`

	// Start/end deltas
	StartScore  int `json:"start_score"`
	EndScore    int `json:"end_score"`
	ScoreDelta  int `json:"score_delta"`
	LinesDelta  int `json:"lines_delta"`
	PiecesDelta int `json:"pieces_delta"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	GameOver bool   `json:"game_over"`
	Message  string `json:"message,omitempty"`
}

// StepInfo is a compact record for each executed action in the bulk call
type StepInfo struct {
	Idx          int              `json:"idx"`
	Action       engine.Action    `json:"action"`
	Success      bool             `json:"success"`
	Piece        engine.PieceKind `json:"piece,omitempty"`
	Position     engine.Position  `json:"position"`
	LinesCleared int              `json:"lines_cleared,omitempty"`
	Score        int              `json:"score"`
	Locked       bool             `json:"locked,omitempty"`
}

// Event types
const (
	EventSpawn     = "spawn"
	EventLock      = "lock"
	EventLineClear = "line_clear"
	EventLevelUp   = "level_up"
	EventHold      = "hold"
	EventPause     = "pause"
	EventResume    = "resume"
	EventGameOver  = "game_over"
	EventReset     = "reset"
)

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string           `json:"type"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Position  *engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures action history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated action history
type HistoryResponse struct {
	Actions      []engine.ActionHistoryEntry `json:"actions"`
	TotalActions int                         `json:"total_actions"`
	Page         int                         `json:"page"`
	PageSize     int                         `json:"page_size"`
	TotalPages   int                         `json:"total_pages"`
	HasNext      bool                        `json:"has_next"`
	HasPrevious  bool                        `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename      string `json:"filename"`
	ConfigID      string `json:"config_id"` // The identifier to use for session creation
	Name          string `json:"name"`      // Display name
	Description   string `json:"description"`
	BoardWidth    int    `json:"board_width"`
	BoardHeight   int    `json:"board_height"`
	StartLevel    int    `json:"start_level"`
	HoldEnabled   bool   `json:"hold_enabled"`
	ManualGravity bool   `json:"manual_gravity"`
}
