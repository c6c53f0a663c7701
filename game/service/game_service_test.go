package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
	"github.com/wricardo/mcp-training/tetrisgame/game/service"
)

var errMockNotFound = errors.New("session not found")

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	saves    int
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("t%03d", len(m.sessions)+1)
	}

	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         config,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	session, exists := m.sessions[id]
	if !exists {
		return nil, errMockNotFound
	}
	return session, nil
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errMockNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
		return nil
	}
	return errMockNotFound
}

func (m *MockSessionManager) Save(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errMockNotFound
	}
	m.saves++
	return nil
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.GameConfig
}

func NewMockConfigManager() *MockConfigManager {
	test := engine.DefaultGameConfig()
	test.Name = "Test"
	test.Description = "Test configuration"
	test.Seed = 7
	test.Gravity.Manual = true

	noHold := engine.DefaultGameConfig()
	noHold.Name = "No Hold"
	noHold.Description = "Hold disabled"
	noHold.HoldEnabled = false
	noHold.Gravity.Manual = true

	return &MockConfigManager{
		configs: map[string]*engine.GameConfig{
			"test":    test,
			"no_hold": noHold,
		},
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.GameConfig, error) {
	if config, exists := m.configs[name]; exists {
		return config, nil
	}
	return nil, errors.New("configuration not found")
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	var result []*service.ConfigInfo
	for id, config := range m.configs {
		result = append(result, &service.ConfigInfo{
			Filename: id + ".json",
			ConfigID: id,
			Name:     config.Name,
		})
	}
	return result, nil
}

func (m *MockConfigManager) GetDefault() *engine.GameConfig {
	return m.configs["test"]
}

func (m *MockConfigManager) DefaultID() string {
	return "test"
}

func (m *MockConfigManager) SaveConfig(name string, config *engine.GameConfig) error {
	if err := engine.ValidateGameConfig(config); err != nil {
		return err
	}
	m.configs[name] = config
	return nil
}

func newTestService(t *testing.T) (service.GameService, *MockSessionManager) {
	t.Helper()
	sessions := NewMockSessionManager()
	return service.NewGameService(sessions, NewMockConfigManager()), sessions
}

func createSession(t *testing.T, svc service.GameService, configName string) *service.SessionInfo {
	t.Helper()
	info, err := svc.CreateSession(context.Background(), configName)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return info
}

func hasEvent(events []service.GameEvent, kind string) bool {
	for _, ev := range events {
		if ev.Type == kind {
			return true
		}
	}
	return false
}

func TestGameService_CreateSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("default config", func(t *testing.T) {
		info := createSession(t, svc, "")
		if info.ConfigName != "test" {
			t.Errorf("Expected config 'test', got '%s'", info.ConfigName)
		}
		if info.GameState == nil || info.GameState.Active == nil {
			t.Fatal("Expected a spawned piece")
		}
		if info.GameState.Width != 10 || info.GameState.Height != 22 {
			t.Errorf("Unexpected board %dx%d", info.GameState.Width, info.GameState.Height)
		}
	})

	t.Run("named config", func(t *testing.T) {
		info := createSession(t, svc, "no_hold.json")
		if info.ConfigName != "no_hold" {
			t.Errorf("Expected config 'no_hold', got '%s'", info.ConfigName)
		}
		if info.GameConfig.HoldEnabled {
			t.Error("Expected hold disabled")
		}
	})

	t.Run("unknown config lists alternatives", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, "nope")
		if err == nil {
			t.Fatal("Expected error for unknown config")
		}
		if !strings.Contains(err.Error(), "Available configs") {
			t.Errorf("Expected available configs in error, got: %v", err)
		}
	})
}

func TestGameService_Act(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()
	info := createSession(t, svc, "")

	t.Run("move left", func(t *testing.T) {
		before := info.GameState.Active.X
		result, err := svc.Act(ctx, info.ID, "LEFT", false)
		if err != nil {
			t.Fatalf("Act failed: %v", err)
		}
		if !result.Success {
			t.Fatal("Expected left to succeed on an empty board")
		}
		if result.GameState.Active.X != before-1 {
			t.Errorf("Expected x=%d, got %d", before-1, result.GameState.Active.X)
		}
		if result.Action != engine.ActionLeft {
			t.Errorf("Expected normalized action 'left', got '%s'", result.Action)
		}
	})

	t.Run("invalid action", func(t *testing.T) {
		_, err := svc.Act(ctx, info.ID, "jump", false)
		if !errors.Is(err, service.ErrInvalidAction) {
			t.Errorf("Expected ErrInvalidAction, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Act(ctx, "zzzz", "left", false)
		if !errors.Is(err, errMockNotFound) {
			t.Errorf("Expected wrapped not-found error, got %v", err)
		}
	})

	t.Run("drop locks and spawns", func(t *testing.T) {
		result, err := svc.Act(ctx, info.ID, "drop", false)
		if err != nil {
			t.Fatal(err)
		}
		if result.Lock == nil {
			t.Fatal("Expected lock result")
		}
		if !hasEvent(result.Events, service.EventLock) || !hasEvent(result.Events, service.EventSpawn) {
			t.Errorf("Expected lock and spawn events, got %+v", result.Events)
		}
		if result.GameState.PiecesPlaced != 1 {
			t.Errorf("Expected 1 piece placed, got %d", result.GameState.PiecesPlaced)
		}
	})

	t.Run("hold", func(t *testing.T) {
		result, err := svc.Act(ctx, info.ID, "hold", false)
		if err != nil {
			t.Fatal(err)
		}
		if !result.Success || !result.Held.Valid() {
			t.Fatal("Expected hold to succeed")
		}
		if !hasEvent(result.Events, service.EventHold) {
			t.Error("Expected hold event")
		}

		again, _ := svc.Act(ctx, info.ID, "hold", false)
		if again.Success {
			t.Error("Second hold before lock should fail")
		}
	})

	t.Run("pause and resume", func(t *testing.T) {
		paused, _ := svc.Act(ctx, info.ID, "pause", false)
		if !paused.GameState.Paused || !hasEvent(paused.Events, service.EventPause) {
			t.Error("Expected pause event")
		}
		blocked, _ := svc.Act(ctx, info.ID, "left", false)
		if blocked.Success {
			t.Error("Moves should be rejected while paused")
		}
		resumed, _ := svc.Act(ctx, info.ID, "pause", false)
		if resumed.GameState.Paused || !hasEvent(resumed.Events, service.EventResume) {
			t.Error("Expected resume event")
		}
	})

	t.Run("reset before action", func(t *testing.T) {
		result, err := svc.Act(ctx, info.ID, "down", true)
		if err != nil {
			t.Fatal(err)
		}
		if len(result.Events) == 0 || result.Events[0].Type != service.EventReset {
			t.Fatalf("Expected reset event first, got %+v", result.Events)
		}
		if result.GameState.PiecesPlaced != 0 || result.GameState.CurrentActions != 1 {
			t.Errorf("Expected fresh game with one action, got pieces=%d current=%d",
				result.GameState.PiecesPlaced, result.GameState.CurrentActions)
		}
	})

	if sessions.saves == 0 {
		t.Error("Expected autosave after actions")
	}
}

func TestGameService_ActLineClear(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()
	info := createSession(t, svc, "")

	eng := sessions.sessions[info.ID].Engine
	state := eng.GetState()
	for y := range state.Board {
		state.Board[y] = ".........."
	}
	state.Board[21] = "IIIIIIIII."
	state.Active = &engine.ActivePiece{Kind: engine.PieceI, Shape: engine.RotateCW(engine.PieceI.Shape()), X: 9, Y: 0}
	state.LinesCleared = 9
	if err := eng.SetState(state); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	result, err := svc.Act(ctx, info.ID, "drop", false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Lock == nil || result.Lock.LinesCleared != 1 {
		t.Fatalf("Expected one cleared line, got %+v", result.Lock)
	}
	if !hasEvent(result.Events, service.EventLineClear) {
		t.Error("Expected line_clear event")
	}
	if !hasEvent(result.Events, service.EventLevelUp) {
		t.Error("Expected level_up event at 10 lines")
	}
	if result.GameState.Level != 2 {
		t.Errorf("Expected level 2, got %d", result.GameState.Level)
	}
}

func TestGameService_BulkAct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("executes all actions", func(t *testing.T) {
		info := createSession(t, svc, "")
		result, err := svc.BulkAct(ctx, info.ID, []string{"left", "rotate", "drop", "right", "drop"}, false)
		if err != nil {
			t.Fatalf("BulkAct failed: %v", err)
		}
		if result.ActionsExecuted != 5 || result.RequestedActions != 5 {
			t.Errorf("Expected 5/5 actions, got %d/%d", result.ActionsExecuted, result.RequestedActions)
		}
		if result.PiecesDelta != 2 {
			t.Errorf("Expected 2 pieces placed, got %d", result.PiecesDelta)
		}
		if len(result.Steps) != 5 {
			t.Fatalf("Expected 5 steps, got %d", len(result.Steps))
		}
		if !result.Steps[2].Locked || result.Steps[2].Idx != 3 {
			t.Errorf("Expected step 3 to lock, got %+v", result.Steps[2])
		}
	})

	t.Run("rejected moves do not stop the sequence", func(t *testing.T) {
		info := createSession(t, svc, "")
		actions := []string{}
		for i := 0; i < 12; i++ {
			actions = append(actions, "left")
		}
		actions = append(actions, "drop")

		result, err := svc.BulkAct(ctx, info.ID, actions, false)
		if err != nil {
			t.Fatal(err)
		}
		if result.ActionsExecuted != len(actions) {
			t.Errorf("Expected all %d actions executed, got %d", len(actions), result.ActionsExecuted)
		}
		if result.Success {
			t.Error("Expected Success=false when a move was rejected")
		}
		if result.Succeeded >= result.ActionsExecuted {
			t.Errorf("Expected some failures, succeeded=%d", result.Succeeded)
		}
		if result.PiecesDelta != 1 {
			t.Errorf("Expected final drop to lock, pieces delta %d", result.PiecesDelta)
		}
	})

	t.Run("invalid action rejects whole request", func(t *testing.T) {
		info := createSession(t, svc, "")
		_, err := svc.BulkAct(ctx, info.ID, []string{"left", "warp"}, false)
		if !errors.Is(err, service.ErrInvalidAction) {
			t.Fatalf("Expected ErrInvalidAction, got %v", err)
		}
		state, _ := svc.GetGameState(ctx, info.ID)
		if state.TotalActions != 0 {
			t.Errorf("No action should run, got %d", state.TotalActions)
		}
	})

	t.Run("empty request", func(t *testing.T) {
		info := createSession(t, svc, "")
		_, err := svc.BulkAct(ctx, info.ID, nil, false)
		if !errors.Is(err, service.ErrNoActions) {
			t.Errorf("Expected ErrNoActions, got %v", err)
		}
	})

	t.Run("truncates long requests", func(t *testing.T) {
		info := createSession(t, svc, "")
		actions := make([]string, engine.MaxBulkActions+10)
		for i := range actions {
			actions[i] = "rotate"
		}
		result, err := svc.BulkAct(ctx, info.ID, actions, false)
		if err != nil {
			t.Fatal(err)
		}
		if !result.Truncated || result.Limit != engine.MaxBulkActions {
			t.Errorf("Expected truncation at %d", engine.MaxBulkActions)
		}
		if result.ActionsExecuted != engine.MaxBulkActions {
			t.Errorf("Expected %d executed, got %d", engine.MaxBulkActions, result.ActionsExecuted)
		}
	})

	t.Run("stops at game over", func(t *testing.T) {
		info := createSession(t, svc, "")
		actions := make([]string, engine.MaxBulkActions)
		for i := range actions {
			actions[i] = "drop"
		}
		result, err := svc.BulkAct(ctx, info.ID, actions, false)
		if err != nil {
			t.Fatal(err)
		}
		if !result.GameOver {
			t.Fatal("Expected stacked drops to top out")
		}
		if result.StopReasonCode != "game_over" {
			t.Errorf("Expected stop reason game_over, got '%s'", result.StopReasonCode)
		}
		if result.ActionsExecuted >= len(actions) {
			t.Errorf("Expected early stop, executed %d", result.ActionsExecuted)
		}
		if !hasEvent(result.Events, service.EventGameOver) {
			t.Error("Expected game_over event")
		}
	})

	t.Run("reset first", func(t *testing.T) {
		info := createSession(t, svc, "")
		svc.Act(ctx, info.ID, "drop", false)
		result, err := svc.BulkAct(ctx, info.ID, []string{"down"}, true)
		if err != nil {
			t.Fatal(err)
		}
		if result.GameState.PiecesPlaced != 0 {
			t.Errorf("Expected reset board, got %d pieces", result.GameState.PiecesPlaced)
		}
		if result.Events[0].Type != service.EventReset {
			t.Errorf("Expected reset event first")
		}
	})
}

func TestGameService_GetActionHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	info := createSession(t, svc, "")

	actions := []string{"left", "right", "rotate", "down", "down"}
	for i := 0; i < 5; i++ {
		if _, err := svc.BulkAct(ctx, info.ID, actions, false); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("default page is newest first", func(t *testing.T) {
		resp, err := svc.GetActionHistory(ctx, info.ID, service.HistoryOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if resp.TotalActions != 25 {
			t.Errorf("Expected 25 actions, got %d", resp.TotalActions)
		}
		if resp.PageSize != 20 || len(resp.Actions) != 20 {
			t.Errorf("Expected page of 20, got %d", len(resp.Actions))
		}
		if resp.Actions[0].ActionNumber != 25 {
			t.Errorf("Expected newest action first, got #%d", resp.Actions[0].ActionNumber)
		}
		if !resp.HasNext || resp.HasPrevious || resp.TotalPages != 2 {
			t.Errorf("Unexpected pagination %+v", resp)
		}
	})

	t.Run("ascending second page", func(t *testing.T) {
		resp, err := svc.GetActionHistory(ctx, info.ID, service.HistoryOptions{Page: 2, Limit: 10, Order: "asc"})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Actions) != 10 || resp.Actions[0].ActionNumber != 11 {
			t.Errorf("Expected actions 11..20, got first #%d", resp.Actions[0].ActionNumber)
		}
	})

	t.Run("page past the end", func(t *testing.T) {
		resp, err := svc.GetActionHistory(ctx, info.ID, service.HistoryOptions{Page: 9, Limit: 10})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Actions) != 0 {
			t.Errorf("Expected empty page, got %d", len(resp.Actions))
		}
	})

	t.Run("limit capped", func(t *testing.T) {
		resp, _ := svc.GetActionHistory(ctx, info.ID, service.HistoryOptions{Limit: 1000})
		if resp.PageSize != 100 {
			t.Errorf("Expected page size 100, got %d", resp.PageSize)
		}
	})
}

func TestGameService_ListAndDeleteSessions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := createSession(t, svc, "")
	createSession(t, svc, "no_hold")

	list, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(list))
	}

	if err := svc.DeleteSession(ctx, a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.GetSession(ctx, a.ID); err == nil {
		t.Error("Expected deleted session to be gone")
	}
}

func TestGameService_Reset(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	info := createSession(t, svc, "")

	svc.BulkAct(ctx, info.ID, []string{"drop", "drop", "drop"}, false)

	state, err := svc.Reset(ctx, info.ID)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if state.PiecesPlaced != 0 || state.Score != 0 {
		t.Errorf("Expected fresh counters, got pieces=%d score=%d", state.PiecesPlaced, state.Score)
	}
	if state.TotalActions != 3 || state.CurrentActions != 0 {
		t.Errorf("History should survive reset: total=%d current=%d", state.TotalActions, state.CurrentActions)
	}

	if _, err := svc.Reset(ctx, "zzzz"); err == nil {
		t.Error("Expected error for unknown session")
	}
}

func TestGameService_Configs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	configs, err := svc.ListConfigs(ctx)
	if err != nil || len(configs) != 2 {
		t.Fatalf("Expected 2 configs, got %d (%v)", len(configs), err)
	}

	custom := engine.DefaultGameConfig()
	custom.Name = "Custom"
	if err := svc.SaveConfig(ctx, "custom", custom); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := svc.LoadConfig(ctx, "custom")
	if err != nil || loaded.Name != "Custom" {
		t.Errorf("Expected saved config, got %v (%v)", loaded, err)
	}
	if err := svc.SaveConfig(ctx, "nil", nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestParseAction(t *testing.T) {
	for _, name := range []string{"left", " Right ", "DROP", "tick"} {
		if _, err := service.ParseAction(name); err != nil {
			t.Errorf("ParseAction(%q) failed: %v", name, err)
		}
	}
	if _, err := service.ParseAction("up"); !errors.Is(err, service.ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction for 'up', got %v", err)
	}
}
