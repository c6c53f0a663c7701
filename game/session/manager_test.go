package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
)

func createTestConfig() *engine.GameConfig {
	config := engine.DefaultGameConfig()
	config.Name = "Test Config"
	config.Description = "Test configuration"
	config.Gravity.Manual = true
	return config
}

func fastGravityConfig() *engine.GameConfig {
	config := engine.DefaultGameConfig()
	config.Name = "Fast"
	config.Description = "Gravity every few milliseconds"
	config.Gravity = engine.GravityConfig{BaseMillis: 5, StepMillis: 0, MinMillis: 1}
	return config
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	defer manager.Close()
	config := createTestConfig()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", "test", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.ConfigID != "test" {
			t.Errorf("Expected config ID 'test', got '%s'", session.ConfigID)
		}
		if session.Engine == nil {
			t.Error("Expected engine to be initialized")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", "test", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got '%s'", session.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", "test", config)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", "test", config)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("reject path-like ID", func(t *testing.T) {
		_, err := manager.Create("../etc", "test", config)
		if !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := createTestConfig()
		bad.BoardWidth = 1
		_, err := manager.Create("bad", "test", bad)
		if err == nil {
			t.Error("Expected error for invalid config")
		}
		if _, getErr := manager.Get("bad"); !errors.Is(getErr, ErrSessionNotFound) {
			t.Error("Failed create should not register a session")
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	defer manager.Close()
	created, err := manager.Create("abcd", "test", createTestConfig())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("abcd")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Error("Expected the same session instance")
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("ABCD")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session.ID != "abcd" {
			t.Errorf("Expected 'abcd', got '%s'", session.ID)
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("zzzz")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := NewManager()
	defer manager.Close()
	config := createTestConfig()

	first, err := manager.GetOrCreate("goc1", "test", config)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	second, err := manager.GetOrCreate("goc1", "test", config)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if first != second {
		t.Error("Expected existing session to be returned")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", manager.Count())
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	defer manager.Close()
	config := createTestConfig()

	t.Run("delete existing session", func(t *testing.T) {
		if _, err := manager.Create("del1", "test", config); err != nil {
			t.Fatal(err)
		}
		if err := manager.Delete("del1"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if _, err := manager.Get("del1"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Session should be gone after delete")
		}
	})

	t.Run("delete non-existent session", func(t *testing.T) {
		if err := manager.Delete("nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("case-insensitive delete", func(t *testing.T) {
		if _, err := manager.Create("Del2", "test", config); err != nil {
			t.Fatal(err)
		}
		if err := manager.Delete("DEL2"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if manager.Count() != 0 {
			t.Errorf("Expected 0 sessions, got %d", manager.Count())
		}
	})
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	defer manager.Close()
	config := createTestConfig()

	for i := 0; i < 3; i++ {
		if _, err := manager.Create(fmt.Sprintf("list%d", i), "test", config); err != nil {
			t.Fatal(err)
		}
	}

	sessions := manager.List()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	seen := map[string]bool{}
	for _, s := range sessions {
		seen[s.ID] = true
	}
	for i := 0; i < 3; i++ {
		if !seen[fmt.Sprintf("list%d", i)] {
			t.Errorf("Missing session list%d", i)
		}
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager()
	defer manager.Close()
	config := createTestConfig()

	old, _ := manager.Create("old1", "test", config)
	_, _ = manager.Create("new1", "test", config)
	old.LastAccessedAt = time.Now().Add(-2 * time.Hour)

	removed := manager.CleanupExpiredSessions(time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}
	if _, err := manager.Get("old1"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expired session should be removed")
	}
	if _, err := manager.Get("new1"); err != nil {
		t.Error("Fresh session should remain")
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()
	defer manager.Close()
	session, _ := manager.Create("upd1", "test", createTestConfig())
	before := session.LastAccessedAt

	time.Sleep(5 * time.Millisecond)
	if err := manager.UpdateLastAccessed("UPD1"); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if !session.LastAccessedAt.After(before) {
		t.Error("Expected LastAccessedAt to advance")
	}
	if err := manager.UpdateLastAccessed("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	defer manager.Close()
	config := createTestConfig()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%02d", i)
			if _, err := manager.Create(id, "test", config); err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			session, err := manager.Get(id)
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			session.Engine.Apply(engine.ActionLeft)
			_ = manager.List()
		}(i)
	}
	wg.Wait()

	if manager.Count() != 20 {
		t.Errorf("Expected 20 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()
	defer manager.Close()
	config := createTestConfig()

	a, _ := manager.Create("iso1", "test", config)
	b, _ := manager.Create("iso2", "test", config)

	a.Engine.Apply(engine.ActionDrop)

	if a.Engine.GetState().PiecesPlaced != 1 {
		t.Error("Expected one piece placed in first session")
	}
	if b.Engine.GetState().PiecesPlaced != 0 {
		t.Error("Second session should be unaffected")
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager()
	defer manager.Close()
	config := createTestConfig()

	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		session, err := manager.Create("", "test", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if ids[session.ID] {
			t.Errorf("Duplicate session ID generated: %s", session.ID)
		}
		ids[session.ID] = true
		if strings.Trim(session.ID, "0123456789abcdef") != "" {
			t.Errorf("Expected hex ID, got '%s'", session.ID)
		}
	}
}

func TestManager_Gravity(t *testing.T) {
	t.Run("manual config starts no goroutine", func(t *testing.T) {
		manager := NewManager()
		defer manager.Close()
		if _, err := manager.Create("man1", "test", createTestConfig()); err != nil {
			t.Fatal(err)
		}
		if manager.GravityCount() != 0 {
			t.Errorf("Expected no gravity goroutines, got %d", manager.GravityCount())
		}
	})

	t.Run("disabled gravity starts no goroutine", func(t *testing.T) {
		manager := NewManager(WithGravity(false))
		defer manager.Close()
		if _, err := manager.Create("off1", "fast", fastGravityConfig()); err != nil {
			t.Fatal(err)
		}
		if manager.GravityCount() != 0 {
			t.Errorf("Expected no gravity goroutines, got %d", manager.GravityCount())
		}
	})

	t.Run("ticks reach the listener", func(t *testing.T) {
		ticks := make(chan string, 16)
		manager := NewManager(WithTickListener(func(id string, res engine.TickResult, state *engine.GameState) {
			if !res.Acted || state == nil {
				t.Errorf("Listener received inactive tick")
			}
			select {
			case ticks <- id:
			default:
			}
		}))
		defer manager.Close()

		if _, err := manager.Create("grav", "fast", fastGravityConfig()); err != nil {
			t.Fatal(err)
		}
		if manager.GravityCount() != 1 {
			t.Fatalf("Expected 1 gravity goroutine, got %d", manager.GravityCount())
		}

		select {
		case id := <-ticks:
			if id != "grav" {
				t.Errorf("Expected tick for 'grav', got '%s'", id)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("No gravity tick within 2s")
		}
	})

	t.Run("delete stops gravity", func(t *testing.T) {
		manager := NewManager()
		defer manager.Close()
		if _, err := manager.Create("stop", "fast", fastGravityConfig()); err != nil {
			t.Fatal(err)
		}
		if err := manager.Delete("stop"); err != nil {
			t.Fatal(err)
		}
		if manager.GravityCount() != 0 {
			t.Errorf("Expected gravity to stop, got %d", manager.GravityCount())
		}
	})

	t.Run("close waits for goroutines", func(t *testing.T) {
		manager := NewManager()
		for i := 0; i < 3; i++ {
			if _, err := manager.Create(fmt.Sprintf("cl%d", i), "fast", fastGravityConfig()); err != nil {
				t.Fatal(err)
			}
		}

		done := make(chan struct{})
		go func() {
			manager.Close()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Close did not return")
		}

		// Sessions created after Close never start gravity
		if _, err := manager.Create("late", "fast", fastGravityConfig()); err != nil {
			t.Fatal(err)
		}
		if manager.GravityCount() != 0 {
			t.Errorf("Expected no gravity after close, got %d", manager.GravityCount())
		}
	})
}
