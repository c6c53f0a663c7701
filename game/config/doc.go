// Package config provides configuration management for the Tetris game server.
//
// The config package handles:
//   - Loading game rules from JSON files
//   - Filling optional fields with the built-in defaults
//   - Validation through engine.ValidateGameConfig
//   - Default configuration selection and listing
//
// Configuration Format:
//
// Game configurations are stored as JSON files in the configs directory.
// Each configuration defines:
//   - Board dimensions, preview length and whether hold is allowed
//   - Starting level, lines per level and the score table
//   - The gravity curve, or manual gravity for turn based play
//   - Optional pre-filled bottom rows for practice boards
//   - Messages for pause, line clears, level ups and game over
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("marathon")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// The default is classic.json when present, otherwise the first valid file,
// otherwise engine.DefaultGameConfig.
package config
