package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
	"github.com/wricardo/mcp-training/tetrisgame/game/service"
)

// FilePersistence implements SessionPersistence using file system storage
type FilePersistence struct {
	sessionsDir   string
	configManager service.ConfigManager
}

// NewFilePersistence creates a new file-based session persistence layer
func NewFilePersistence(sessionsDir string, configManager service.ConfigManager) (*FilePersistence, error) {
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FilePersistence{
		sessionsDir:   sessionsDir,
		configManager: configManager,
	}, nil
}

// Save writes the session snapshot to <dir>/<id>.json
func (fp *FilePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	configID := session.ConfigID
	if configID == "" {
		var err error
		configID, err = fp.getConfigIDFromName(session.Config.Name)
		if err != nil {
			return fmt.Errorf("failed to get config ID: %w", err)
		}
	}

	data := PersistedSessionData{
		ID:             session.ID,
		ConfigName:     configID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.GetState(),
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	// Write through a temp file so a crash never leaves a truncated snapshot
	// One temp file per writer, then an atomic rename
	tmp, err := os.CreateTemp(fp.sessionsDir, session.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	_, err = tmp.Write(jsonData)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), 0644)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), fp.getFilePath(session.ID))
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load rebuilds a session from its JSON snapshot
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	filePath := fp.getFilePath(id)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if data.GameState == nil {
		return nil, fmt.Errorf("session file %s has no game state", id)
	}

	gameConfig, err := fp.loadConfig(data.ConfigName)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigName, err)
	}

	gameEngine, err := engine.NewEngine(gameConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}

	if err := gameEngine.SetState(data.GameState); err != nil {
		return nil, fmt.Errorf("failed to set game state: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		ConfigID:       data.ConfigName,
		Engine:         gameEngine,
		Config:         gameConfig,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}

	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}

// ListAll returns all persisted session IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessionIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			sessionIDs = append(sessionIDs, strings.TrimSuffix(name, ".json"))
		}
	}

	return sessionIDs, nil
}

// Exists checks if a session file exists
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.sessionsDir, fmt.Sprintf("%s.json", strings.ToLower(id)))
}

func (fp *FilePersistence) loadConfig(configID string) (*engine.GameConfig, error) {
	if configID == "" || configID == fp.configManager.DefaultID() {
		if def := fp.configManager.GetDefault(); def != nil {
			return def, nil
		}
	}
	return fp.configManager.LoadConfig(configID)
}

// getConfigIDFromName returns the config ID (filename without extension) from display name
func (fp *FilePersistence) getConfigIDFromName(displayName string) (string, error) {
	configs, err := fp.configManager.ListConfigs()
	if err != nil {
		return "", fmt.Errorf("failed to list configs: %w", err)
	}

	for _, config := range configs {
		if config.Name == displayName {
			return config.ConfigID, nil
		}
	}

	// Assume the display name is already the config ID
	return displayName, nil
}
