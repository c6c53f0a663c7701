package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
)

func createValidConfig(name string) *engine.GameConfig {
	config := engine.DefaultGameConfig()
	config.Name = name
	config.Description = "Test configuration"
	return config
}

func writeConfigFile(t *testing.T, dir, name string, config interface{}) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "classic", createValidConfig("Classic"))

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Classic" {
			t.Errorf("Expected default config 'Classic', got '%s'", manager.GetDefault().Name)
		}
		if manager.DefaultID() != "classic" {
			t.Errorf("Expected default ID 'classic', got '%s'", manager.DefaultID())
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager(filepath.Join(t.TempDir(), "missing"))
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("falls back to first config", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "zeta", createValidConfig("Zeta"))
		writeConfigFile(t, dir, "alpha", createValidConfig("Alpha"))

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.DefaultID() != "alpha" {
			t.Errorf("Expected default ID 'alpha', got '%s'", manager.DefaultID())
		}
	})

	t.Run("empty directory uses built-in rules", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		def := manager.GetDefault()
		if def == nil {
			t.Fatal("Expected built-in default config")
		}
		if err := engine.ValidateGameConfig(def); err != nil {
			t.Errorf("Built-in default is invalid: %v", err)
		}
		if manager.DefaultID() != "default" {
			t.Errorf("Expected default ID 'default', got '%s'", manager.DefaultID())
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig("Classic"))
	writeConfigFile(t, dir, "sparse", map[string]interface{}{
		"name":        "Sparse",
		"description": "Only required fields",
	})
	writeConfigFile(t, dir, "invalid", map[string]interface{}{
		"name":        "Invalid",
		"description": "Board too narrow",
		"board_width": 2,
	})
	if err := os.WriteFile(filepath.Join(dir, "malformed.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("classic")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.BoardWidth != 10 || config.BoardHeight != 22 {
			t.Errorf("Expected 10x22 board, got %dx%d", config.BoardWidth, config.BoardHeight)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("classic.json")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Name != "Classic" {
			t.Errorf("Expected 'Classic', got '%s'", config.Name)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		first, _ := manager.LoadConfig("classic")
		second, _ := manager.LoadConfig("classic")
		if first != second {
			t.Error("Expected cached config instance")
		}
	})

	t.Run("missing fields get defaults", func(t *testing.T) {
		config, err := manager.LoadConfig("sparse")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.PreviewCount != engine.DefaultPreview {
			t.Errorf("Expected preview count %d, got %d", engine.DefaultPreview, config.PreviewCount)
		}
		if config.Gravity.BaseMillis != engine.DefaultGravityBase {
			t.Errorf("Expected gravity base %d, got %d", engine.DefaultGravityBase, config.Gravity.BaseMillis)
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("nope")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("reject path traversal", func(t *testing.T) {
		_, err := manager.LoadConfig("../classic")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		_, err := manager.LoadConfig("malformed")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig("Classic"))

	manual := createValidConfig("Turn Based")
	manual.Gravity.Manual = true
	manual.BoardWidth = 8
	writeConfigFile(t, dir, "manual", manual)

	writeConfigFile(t, dir, "broken", map[string]interface{}{"name": "Broken", "description": "x", "board_height": 1})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0755); err != nil {
		t.Fatal(err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}

	if len(configs) != 2 {
		t.Fatalf("Expected 2 valid configs, got %d", len(configs))
	}
	if configs[0].ConfigID != "classic" || configs[1].ConfigID != "manual" {
		t.Errorf("Expected sorted IDs [classic manual], got [%s %s]", configs[0].ConfigID, configs[1].ConfigID)
	}
	if !configs[1].ManualGravity {
		t.Error("Expected manual gravity flag")
	}
	if configs[1].BoardWidth != 8 {
		t.Errorf("Expected board width 8, got %d", configs[1].BoardWidth)
	}
	if configs[1].Filename != "manual.json" {
		t.Errorf("Expected filename manual.json, got %s", configs[1].Filename)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("save valid config", func(t *testing.T) {
		config := createValidConfig("Saved")
		if err := manager.SaveConfig("saved", config); err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
			t.Errorf("Expected config file on disk: %v", err)
		}

		manager.RefreshCache()
		loaded, err := manager.LoadConfig("saved")
		if err != nil {
			t.Fatalf("Failed to reload saved config: %v", err)
		}
		if loaded.Name != "Saved" {
			t.Errorf("Expected 'Saved', got '%s'", loaded.Name)
		}
	})

	t.Run("reject invalid config", func(t *testing.T) {
		config := createValidConfig("Bad")
		config.ScoreTable = []int{1, 2}
		err := manager.SaveConfig("bad", config)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
		if _, statErr := os.Stat(filepath.Join(dir, "bad.json")); !os.IsNotExist(statErr) {
			t.Error("Invalid config should not be written")
		}
	})

	t.Run("reject bad name", func(t *testing.T) {
		err := manager.SaveConfig("../escape", createValidConfig("Escape"))
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig("Classic"))
	writeConfigFile(t, dir, "wide", createValidConfig("Wide"))

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := manager.SetDefault("wide"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if manager.GetDefault().Name != "Wide" || manager.DefaultID() != "wide" {
		t.Errorf("Expected default 'wide', got '%s'", manager.DefaultID())
	}
	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig("Classic"))
	writeConfigFile(t, dir, "other", createValidConfig("Other"))

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "classic"
			if i%2 == 0 {
				name = "other"
			}
			if _, err := manager.LoadConfig(name); err != nil {
				t.Errorf("Concurrent load failed: %v", err)
			}
			if _, err := manager.ListConfigs(); err != nil {
				t.Errorf("Concurrent list failed: %v", err)
			}
			_ = manager.GetDefault()
		}(i)
	}
	wg.Wait()
}

func TestRepositoryConfigsAreValid(t *testing.T) {
	manager, err := NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to open repository configs: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configs) < 3 {
		t.Errorf("Expected at least 3 shipped configs, got %d", len(configs))
	}
	if manager.DefaultID() != DefaultConfigID {
		t.Errorf("Expected default '%s', got '%s'", DefaultConfigID, manager.DefaultID())
	}
}
