package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
	"github.com/wricardo/mcp-training/tetrisgame/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultConfigID is the config preferred as the default when present
const DefaultConfigID = "classic"

// Manager handles game configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.GameConfig
	defaultID     string
	configs       map[string]*engine.GameConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.GameConfig),
	}

	m.loadDefaultConfig()
	return m, nil
}

// LoadConfig loads a configuration by name (file name without .json)
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, ErrConfigNotFound
	}

	m.mu.RLock()
	// Check cache first
	if config, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	// Load from file
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[name]; exists {
		return config, nil
	}

	configPath := filepath.Join(m.configDir, name+".json")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config engine.GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	engine.ApplyDefaults(&config)
	if err := engine.ValidateGameConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[name] = &config
	return &config, nil
}

// ListConfigs returns information about all available configurations,
// sorted by config ID. Invalid files are skipped.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		config, err := m.LoadConfig(name)
		if err != nil {
			continue
		}

		configs = append(configs, &service.ConfigInfo{
			Filename:      entry.Name(),
			ConfigID:      name,
			Name:          config.Name,
			Description:   config.Description,
			BoardWidth:    config.BoardWidth,
			BoardHeight:   config.BoardHeight,
			StartLevel:    config.StartLevel,
			HoldEnabled:   config.HoldEnabled,
			ManualGravity: config.Gravity.Manual,
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// DefaultID returns the config ID of the default configuration
func (m *Manager) DefaultID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	m.defaultID = strings.TrimSuffix(name, ".json")
	return nil
}

// RefreshCache drops all cached configurations and re-selects the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.configs = make(map[string]*engine.GameConfig)
	m.mu.Unlock()

	m.loadDefaultConfig()
}

// loadDefaultConfig picks classic, else the first valid config, else the built-in rules
func (m *Manager) loadDefaultConfig() {
	id := DefaultConfigID
	config, err := m.LoadConfig(id)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			config, id = engine.DefaultGameConfig(), "default"
		} else {
			id = configs[0].ConfigID
			config, err = m.LoadConfig(id)
			if err != nil {
				config, id = engine.DefaultGameConfig(), "default"
			}
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.defaultID = id
	m.mu.Unlock()
}

// SaveConfig validates and writes a configuration to disk
func (m *Manager) SaveConfig(name string, config *engine.GameConfig) error {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: invalid config name %q", ErrInvalidConfig, name)
	}

	engine.ApplyDefaults(config)
	if err := engine.ValidateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	configPath := filepath.Join(m.configDir, name+".json")

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = config
	m.mu.Unlock()

	return nil
}
