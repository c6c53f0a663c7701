package session

import (
	"errors"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
)

func TestManagerWithPersistence(t *testing.T) {
	persistence, configManager, _ := newTestPersistence(t)

	// Gravity off so snapshots are deterministic
	manager := NewManagerWithPersistence(persistence, WithGravity(false))
	defer manager.Close()

	gameConfig := configManager.GetDefault()
	configID := configManager.DefaultID()

	t.Run("Create Session Auto-Saves", func(t *testing.T) {
		session, err := manager.Create("auto1", configID, gameConfig)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if !persistence.Exists(session.ID) {
			t.Error("Session should be auto-saved on creation")
		}

		loaded, err := persistence.Load(session.ID)
		if err != nil {
			t.Fatalf("Failed to load auto-saved session: %v", err)
		}
		if loaded.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loaded.ID)
		}
	})

	t.Run("Get Session Loads from Persistence", func(t *testing.T) {
		manager2 := NewManagerWithPersistence(persistence, WithGravity(false))
		defer manager2.Close()

		session, err := manager2.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get persisted session: %v", err)
		}
		if session.ConfigID != configID {
			t.Errorf("Expected config ID %s, got %s", configID, session.ConfigID)
		}
		if manager2.Count() != 1 {
			t.Errorf("Expected loaded session cached in memory, count %d", manager2.Count())
		}
	})

	t.Run("Save Method Persists Changes", func(t *testing.T) {
		session, err := manager.Create("save1", configID, gameConfig)
		if err != nil {
			t.Fatal(err)
		}
		session.Engine.Apply(engine.ActionDrop)
		session.Engine.Apply(engine.ActionDrop)

		if err := manager.Save("save1"); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}

		loaded, err := persistence.Load("save1")
		if err != nil {
			t.Fatal(err)
		}
		if loaded.Engine.GetState().PiecesPlaced != 2 {
			t.Errorf("Expected 2 pieces placed, got %d", loaded.Engine.GetState().PiecesPlaced)
		}

		if err := manager.Save("nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Delete Removes from Persistence", func(t *testing.T) {
		if _, err := manager.Create("del1", configID, gameConfig); err != nil {
			t.Fatal(err)
		}
		if err := manager.Delete("del1"); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		if persistence.Exists("del1") {
			t.Error("Session file should be removed")
		}
	})

	t.Run("Delete From Memory Keeps File", func(t *testing.T) {
		if _, err := manager.Create("mem1", configID, gameConfig); err != nil {
			t.Fatal(err)
		}
		if err := manager.DeleteFromMemory("mem1"); err != nil {
			t.Fatal(err)
		}
		if !persistence.Exists("mem1") {
			t.Error("Session file should remain")
		}
		if _, err := manager.Get("mem1"); err != nil {
			t.Errorf("Expected session to reload from disk: %v", err)
		}
	})

	t.Run("Load Persisted Sessions on Startup", func(t *testing.T) {
		manager3 := NewManagerWithPersistence(persistence, WithGravity(false))
		defer manager3.Close()

		if err := manager3.LoadPersistedSessions(); err != nil {
			t.Fatalf("Failed to load persisted sessions: %v", err)
		}
		ids, _ := persistence.ListAll()
		if manager3.Count() != len(ids) {
			t.Errorf("Expected %d sessions loaded, got %d", len(ids), manager3.Count())
		}
	})

	t.Run("Update Last Accessed Persists", func(t *testing.T) {
		session, err := manager.Get("auto1")
		if err != nil {
			t.Fatal(err)
		}
		before := session.LastAccessedAt
		time.Sleep(5 * time.Millisecond)

		if err := manager.UpdateLastAccessed("auto1"); err != nil {
			t.Fatal(err)
		}
		loaded, err := persistence.Load("auto1")
		if err != nil {
			t.Fatal(err)
		}
		if !loaded.LastAccessedAt.After(before) {
			t.Error("Expected persisted LastAccessedAt to advance")
		}
	})

	t.Run("Save All Sessions", func(t *testing.T) {
		if err := manager.SaveAllSessions(); err != nil {
			t.Fatalf("Failed to save all: %v", err)
		}
		for _, s := range manager.List() {
			if !persistence.Exists(s.ID) {
				t.Errorf("Session %s not persisted", s.ID)
			}
		}
	})
}

func TestManagerWithPersistence_StartsGravityOnLoad(t *testing.T) {
	persistence, configManager, _ := newTestPersistence(t)

	writer := NewManagerWithPersistence(persistence, WithGravity(false))
	if _, err := writer.Create("grav1", configManager.DefaultID(), configManager.GetDefault()); err != nil {
		t.Fatal(err)
	}
	writer.Close()

	reader := NewManagerWithPersistence(persistence)
	defer reader.Close()
	if err := reader.LoadPersistedSessions(); err != nil {
		t.Fatal(err)
	}
	if reader.GravityCount() != 1 {
		t.Errorf("Expected gravity for restored session, got %d", reader.GravityCount())
	}
}
