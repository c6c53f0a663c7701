package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
	"github.com/wricardo/mcp-training/tetrisgame/logx"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	log      logx.Logger
	mu       sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithLogger sets the logger used for persistence warnings
func WithLogger(l logx.Logger) Option {
	return func(s *gameServiceImpl) {
		if l != nil {
			s.log = l
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		log:      logx.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseAction normalizes and validates an action name
func ParseAction(name string) (engine.Action, error) {
	action := engine.Action(strings.ToLower(strings.TrimSpace(name)))
	if !action.Valid() {
		valid := make([]string, len(engine.AllActions))
		for i, a := range engine.AllActions {
			valid[i] = string(a)
		}
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrInvalidAction, name, strings.Join(valid, ", "))
	}
	return action, nil
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return s.configs.DefaultID()
	}
	return configName
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	configID := sess.ConfigID
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		GameConfig:     sess.Config,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	configID := strings.TrimSuffix(configName, ".json")
	if configID != "" {
		config, err = s.configs.LoadConfig(configID)
		if err != nil {
			availableConfigs, listErr := s.configs.ListConfigs()
			if listErr == nil && len(availableConfigs) > 0 {
				var configIDs []string
				for _, cfg := range availableConfigs {
					configIDs = append(configIDs, cfg.ConfigID)
				}
				return nil, fmt.Errorf("config '%s' not available (%w). Available configs: %v", configName, err, configIDs)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.configs.DefaultID()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return s.sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Act applies one action to a session
func (s *gameServiceImpl) Act(ctx context.Context, sessionID, action string, reset bool) (*ActionResult, error) {
	act, err := ParseAction(action)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	events := []GameEvent{}
	if reset {
		if _, err := sess.Engine.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset game: %w", err)
		}
		events = append(events, newEvent(EventReset, "Game reset to initial state", nil))
	}

	out := sess.Engine.Apply(act)
	events = append(events, outcomeEvents(out)...)

	result := &ActionResult{
		Action:    out.Action,
		Success:   out.Success,
		GameState: out.State,
		Message:   out.State.Message,
		Events:    events,
		Lock:      out.Lock,
		Held:      out.Held,
	}

	s.autosave(sessionID, "action")
	return result, nil
}

// BulkAct applies a sequence of actions. Rejected moves do not stop the
// sequence; game over does.
func (s *gameServiceImpl) BulkAct(ctx context.Context, sessionID string, actions []string, reset bool) (*BulkActionResult, error) {
	if len(actions) == 0 {
		return nil, ErrNoActions
	}

	parsed := make([]engine.Action, len(actions))
	for i, name := range actions {
		act, err := ParseAction(name)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i+1, err)
		}
		parsed[i] = act
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := &BulkActionResult{
		RequestedActions: len(parsed),
		Events:           make([]GameEvent, 0),
		Success:          true,
	}

	if reset {
		if _, err := sess.Engine.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset game: %w", err)
		}
		result.Events = append(result.Events, newEvent(EventReset, "Game reset to initial state", nil))
	}

	start := sess.Engine.GetState()
	result.StartScore = start.Score

	if len(parsed) > engine.MaxBulkActions {
		result.Truncated = true
		result.Limit = engine.MaxBulkActions
		parsed = parsed[:engine.MaxBulkActions]
	}

	for i, act := range parsed {
		if err := ctx.Err(); err != nil {
			result.StoppedReason = "request cancelled"
			result.StopReasonCode = "cancelled"
			result.StoppedOnAction = i + 1
			break
		}
		if sess.Engine.IsGameOver() {
			result.StoppedReason = "game over"
			result.StopReasonCode = "game_over"
			result.StoppedOnAction = i + 1
			break
		}

		out := sess.Engine.Apply(act)
		result.ActionsExecuted++
		if out.Success {
			result.Succeeded++
		} else {
			result.Success = false
		}
		result.Events = append(result.Events, outcomeEvents(out)...)
		result.Steps = append(result.Steps, stepInfo(i+1, out))
	}

	end := sess.Engine.GetState()
	result.GameState = end
	result.EndScore = end.Score
	result.ScoreDelta = end.Score - start.Score
	result.LinesDelta = end.LinesCleared - start.LinesCleared
	result.PiecesDelta = end.PiecesPlaced - start.PiecesPlaced
	result.GameOver = end.GameOver
	result.Message = end.Message
	if end.GameOver && result.StopReasonCode == "" {
		result.StopReasonCode = "game_over"
	}

	s.autosave(sessionID, "bulk actions")
	return result, nil
}

// Reset restarts the game of a session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	state, err := sess.Engine.Reset()
	if err != nil {
		return nil, fmt.Errorf("failed to reset game: %w", err)
	}

	s.autosave(sessionID, "reset")
	return state, nil
}

// GetGameState returns a snapshot of the session's game
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.GetState(), nil
}

// GetActionHistory returns a page of the action log, newest first by default
func (s *gameServiceImpl) GetActionHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetState().ActionHistory
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	actions := []engine.ActionHistoryEntry{}
	if opts.Order == "desc" {
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			actions = append(actions, history[i])
		}
	} else if start < total {
		actions = append(actions, history[start:end]...)
	}

	return &HistoryResponse{
		Actions:      actions,
		TotalActions: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if config == nil {
		return errors.New("config cannot be nil")
	}
	return s.configs.SaveConfig(configName, config)
}

func (s *gameServiceImpl) autosave(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.log.Warnf("failed to persist session %s after %s: %v", sessionID, after, err)
	}
}

func newEvent(kind, message string, pos *engine.Position) GameEvent {
	return GameEvent{Type: kind, Message: message, Timestamp: time.Now(), Position: pos}
}

// outcomeEvents derives the notable transitions of one applied action
func outcomeEvents(out engine.Outcome) []GameEvent {
	var events []GameEvent
	state := out.State

	if out.Action == engine.ActionPause && out.Success {
		if state.Paused {
			events = append(events, newEvent(EventPause, "Game paused", nil))
		} else {
			events = append(events, newEvent(EventResume, "Game resumed", nil))
		}
	}

	if out.Action == engine.ActionHold && out.Success {
		events = append(events, newEvent(EventHold, fmt.Sprintf("Holding %s", out.Held), nil))
	}

	if lock := out.Lock; lock != nil {
		pos := lock.Position
		events = append(events, newEvent(EventLock, fmt.Sprintf("Locked %s at (%d,%d)", lock.Kind, pos.X, pos.Y), &pos))
		if lock.LinesCleared > 0 {
			events = append(events, newEvent(EventLineClear,
				fmt.Sprintf("Cleared %d line(s) for %d points", lock.LinesCleared, lock.ScoreAwarded), nil))
		}
		if lock.LeveledUp() {
			events = append(events, newEvent(EventLevelUp, fmt.Sprintf("Reached level %d", lock.LevelAfter), nil))
		}
		if !lock.GameOver && lock.Spawned.Valid() {
			events = append(events, newEvent(EventSpawn, fmt.Sprintf("Spawned %s", lock.Spawned), nil))
		}
	}

	if state.GameOver && (out.Lock != nil || out.Action == engine.ActionHold) {
		events = append(events, newEvent(EventGameOver, state.Message, nil))
	}

	return events
}

func stepInfo(idx int, out engine.Outcome) StepInfo {
	step := StepInfo{
		Idx:     idx,
		Action:  out.Action,
		Success: out.Success,
		Score:   out.State.Score,
		Locked:  out.Lock != nil,
	}
	if out.Lock != nil {
		step.Piece = out.Lock.Kind
		step.Position = out.Lock.Position
		step.LinesCleared = out.Lock.LinesCleared
	} else if active := out.State.Active; active != nil {
		step.Piece = active.Kind
		step.Position = engine.Position{X: active.X, Y: active.Y}
	}
	return step
}
