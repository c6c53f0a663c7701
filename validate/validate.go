// Command validate checks the game configuration JSON files in a directory
// (../configs by default). For every file it checks:
//   - JSON structure, rejecting unknown keys
//   - Board, preview, level and gravity ranges
//   - Score table shape
//   - Layout width, allowed characters and spawn headroom
//   - Required message keys and their %d placeholders
//   - Playability: the first piece spawns and a run of hard drops places pieces
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
)

// smokeDropLimit bounds the hard drop run of the playability check
const smokeDropLimit = 500

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single configuration JSON file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config engine.GameConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	defaulted := defaultedFields(&config)
	engine.ApplyDefaults(&config)

	if err := engine.ValidateGameConfig(&config); err != nil {
		result.fail("%s", strings.TrimPrefix(err.Error(), "config validation: "))
		return result
	}

	play := validatePlayability(&config)
	if !play.Valid {
		result.Valid = false
	}
	result.Errors = append(result.Errors, play.Errors...)

	if result.Valid {
		gravity := fmt.Sprintf("%v at start level", config.GravityPeriod(config.StartLevel))
		if config.Gravity.Manual {
			gravity = "manual (tick)"
		}
		result.info("Name: %s", config.Name)
		result.info("Board: %dx%d", config.BoardWidth, config.BoardHeight)
		result.info("Preview: %d, Hold: %t", config.PreviewCount, config.HoldEnabled)
		result.info("Start level: %d, Lines per level: %d", config.StartLevel, config.LinesPerLevel)
		result.info("Gravity: %s", gravity)
		result.info("Layout rows: %d", len(config.Layout))
		if len(defaulted) > 0 {
			result.info("Defaults used for: %s", strings.Join(defaulted, ", "))
		}
	}

	return result
}

// defaultedFields lists the optional keys that ApplyDefaults will fill
func defaultedFields(config *engine.GameConfig) []string {
	var fields []string
	check := func(name string, zero bool) {
		if zero {
			fields = append(fields, name)
		}
	}
	check("board_width", config.BoardWidth == 0)
	check("board_height", config.BoardHeight == 0)
	check("preview_count", config.PreviewCount == 0)
	check("start_level", config.StartLevel == 0)
	check("lines_per_level", config.LinesPerLevel == 0)
	check("score_table", len(config.ScoreTable) == 0)
	check("gravity.base_ms", config.Gravity.BaseMillis == 0)
	check("gravity.step_ms", config.Gravity.StepMillis == 0)
	check("gravity.min_ms", config.Gravity.MinMillis == 0)
	m := config.Messages
	check("messages.welcome", m.Welcome == "")
	check("messages.paused", m.Paused == "")
	check("messages.resumed", m.Resumed == "")
	check("messages.line_clear", m.LineClear == "")
	check("messages.level_up", m.LevelUp == "")
	check("messages.game_over", m.GameOver == "")
	return fields
}

// validatePlayability starts a game with the config and hard drops pieces
// where they spawn until the stack tops out. A config whose first piece
// cannot spawn is unplayable.
func validatePlayability(config *engine.GameConfig) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	seed := config.Seed
	if seed == 0 {
		seed = 1
	}
	e, err := engine.NewEngine(config, engine.WithRandom(engine.NewRandomSource(seed)))
	if err != nil {
		result.fail("Cannot start game: %v", err)
		return result
	}
	if e.IsGameOver() {
		result.fail("First piece cannot spawn over the layout")
		return result
	}

	for i := 0; i < smokeDropLimit && !e.IsGameOver(); i++ {
		e.HardDrop()
	}
	state := e.GetState()
	if state.PiecesPlaced == 0 {
		result.fail("No piece could be placed")
		return result
	}

	if state.GameOver {
		result.info("Smoke run: %d pieces placed before topping out, %d lines", state.PiecesPlaced, state.LinesCleared)
	} else {
		result.info("Smoke run: %d pieces placed without topping out", state.PiecesPlaced)
	}
	return result
}

// validateDir validates every *.json file in dir, printing a concise report.
// It returns an error if any file is invalid.
func validateDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("finding config files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no config files found in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		return fmt.Errorf("some configurations have errors")
	}
	fmt.Println("✅ All configurations are valid!")
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "validate",
		Usage: "validate game configuration files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "../configs",
				Usage:   "directory containing *.json configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return validateDir(c.String("dir"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println("❌ " + err.Error())
		os.Exit(1)
	}
}
