package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultGameConfig returns the built-in rules: a 10x22 board, three previews,
// hold enabled and the classic gravity curve.
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:          "default",
		Description:   "Built-in classic rules",
		BoardWidth:    DefaultBoardWidth,
		BoardHeight:   DefaultBoardHeight,
		PreviewCount:  DefaultPreview,
		HoldEnabled:   true,
		StartLevel:    1,
		LinesPerLevel: DefaultLinesPerLvl,
		ScoreTable:    append([]int(nil), DefaultScoreTable...),
		Gravity: GravityConfig{
			BaseMillis: DefaultGravityBase,
			StepMillis: DefaultGravityStep,
			MinMillis:  DefaultGravityMin,
		},
		Messages: GameMessages{
			Welcome:   "Welcome! Clear lines to level up.",
			Paused:    "PAUSED - press P to continue",
			Resumed:   "Resumed",
			LineClear: "Cleared %d line(s)!",
			LevelUp:   "Level up! Now on level %d",
			GameOver:  "GAME OVER - final score %d",
		},
	}
}

// ApplyDefaults fills zero valued optional fields from DefaultGameConfig.
// Explicit values are left untouched so validation still catches bad input.
func ApplyDefaults(config *GameConfig) {
	def := DefaultGameConfig()
	if config.BoardWidth == 0 {
		config.BoardWidth = def.BoardWidth
	}
	if config.BoardHeight == 0 {
		config.BoardHeight = def.BoardHeight
	}
	if config.PreviewCount == 0 {
		config.PreviewCount = def.PreviewCount
	}
	if config.StartLevel == 0 {
		config.StartLevel = def.StartLevel
	}
	if config.LinesPerLevel == 0 {
		config.LinesPerLevel = def.LinesPerLevel
	}
	if len(config.ScoreTable) == 0 {
		config.ScoreTable = def.ScoreTable
	}
	if config.Gravity.BaseMillis == 0 {
		config.Gravity.BaseMillis = def.Gravity.BaseMillis
	}
	if config.Gravity.StepMillis == 0 {
		config.Gravity.StepMillis = def.Gravity.StepMillis
	}
	if config.Gravity.MinMillis == 0 {
		config.Gravity.MinMillis = def.Gravity.MinMillis
	}
	m := &config.Messages
	if m.Welcome == "" {
		m.Welcome = def.Messages.Welcome
	}
	if m.Paused == "" {
		m.Paused = def.Messages.Paused
	}
	if m.Resumed == "" {
		m.Resumed = def.Messages.Resumed
	}
	if m.LineClear == "" {
		m.LineClear = def.Messages.LineClear
	}
	if m.LevelUp == "" {
		m.LevelUp = def.Messages.LevelUp
	}
	if m.GameOver == "" {
		m.GameOver = def.Messages.GameOver
	}
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if config.BoardWidth < MinBoardWidth || config.BoardWidth > MaxBoardWidth {
		return fmt.Errorf("config validation: board_width must be between %d and %d, got %d", MinBoardWidth, MaxBoardWidth, config.BoardWidth)
	}
	if config.BoardHeight < MinBoardHeight || config.BoardHeight > MaxBoardHeight {
		return fmt.Errorf("config validation: board_height must be between %d and %d, got %d", MinBoardHeight, MaxBoardHeight, config.BoardHeight)
	}
	if config.PreviewCount < MinPreviewCount || config.PreviewCount > MaxPreviewCount {
		return fmt.Errorf("config validation: preview_count must be between %d and %d, got %d", MinPreviewCount, MaxPreviewCount, config.PreviewCount)
	}
	if config.StartLevel < 1 || config.StartLevel > MaxStartLevel {
		return fmt.Errorf("config validation: start_level must be between 1 and %d, got %d", MaxStartLevel, config.StartLevel)
	}
	if config.LinesPerLevel < 1 {
		return fmt.Errorf("config validation: lines_per_level must be positive, got %d", config.LinesPerLevel)
	}

	if len(config.ScoreTable) != ScoreTableSize {
		return fmt.Errorf("config validation: score_table must have %d entries (0-4 lines), got %d", ScoreTableSize, len(config.ScoreTable))
	}
	if config.ScoreTable[0] != 0 {
		return fmt.Errorf("config validation: score_table[0] must be 0, got %d", config.ScoreTable[0])
	}
	for i := 1; i < len(config.ScoreTable); i++ {
		if config.ScoreTable[i] < config.ScoreTable[i-1] {
			return fmt.Errorf("config validation: score_table must be non-decreasing, entry %d is %d after %d",
				i, config.ScoreTable[i], config.ScoreTable[i-1])
		}
	}

	g := config.Gravity
	if g.MinMillis < 1 {
		return fmt.Errorf("config validation: gravity.min_ms must be positive, got %d", g.MinMillis)
	}
	if g.BaseMillis < g.MinMillis {
		return fmt.Errorf("config validation: gravity.base_ms (%d) must be >= gravity.min_ms (%d)", g.BaseMillis, g.MinMillis)
	}
	if g.StepMillis < 0 {
		return fmt.Errorf("config validation: gravity.step_ms must not be negative, got %d", g.StepMillis)
	}

	// Every piece must fit at the spawn origin of an empty top
	if len(config.Layout) > config.BoardHeight-2 {
		return fmt.Errorf("config validation: layout may fill at most %d rows, got %d", config.BoardHeight-2, len(config.Layout))
	}
	for i, row := range config.Layout {
		if len(row) != config.BoardWidth {
			return fmt.Errorf("config validation: layout row %d must have %d characters to match board_width, got %d",
				i+1, config.BoardWidth, len(row))
		}
		empty := 0
		for j := 0; j < len(row); j++ {
			ch := row[j]
			if ch == '.' {
				empty++
				continue
			}
			if kindFromLetter(ch) == NoPiece {
				return fmt.Errorf("config validation: invalid character '%c' at layout row %d, col %d", ch, i+1, j+1)
			}
		}
		if empty == 0 {
			return fmt.Errorf("config validation: layout row %d is full", i+1)
		}
	}

	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.GameOver == "" {
		return fmt.Errorf("config validation: messages.game_over is required")
	}
	if !strings.Contains(config.Messages.GameOver, "%d") {
		return fmt.Errorf("config validation: messages.game_over must contain %%d for the final score")
	}
	if config.Messages.LineClear != "" && !strings.Contains(config.Messages.LineClear, "%d") {
		return fmt.Errorf("config validation: messages.line_clear must contain %%d for the line count")
	}
	if config.Messages.LevelUp != "" && !strings.Contains(config.Messages.LevelUp, "%d") {
		return fmt.Errorf("config validation: messages.level_up must contain %%d for the level")
	}

	return nil
}

// LoadGameConfig loads, defaults and validates a configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseGameConfig(data)
}

// ParseGameConfig decodes, defaults and validates a JSON configuration
func ParseGameConfig(data []byte) (*GameConfig, error) {
	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	ApplyDefaults(&config)
	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// GravityPeriod returns the fall interval at level:
// max(min, base - level*step)
func (c *GameConfig) GravityPeriod(level int) time.Duration {
	ms := c.Gravity.BaseMillis - level*c.Gravity.StepMillis
	if ms < c.Gravity.MinMillis {
		ms = c.Gravity.MinMillis
	}
	return time.Duration(ms) * time.Millisecond
}

// ScoreFor returns the points for clearing lines at once on level
func (c *GameConfig) ScoreFor(lines, level int) int {
	if lines <= 0 {
		return 0
	}
	if lines >= len(c.ScoreTable) {
		lines = len(c.ScoreTable) - 1
	}
	return c.ScoreTable[lines] * level
}

// LevelFor returns the level reached after clearing lines in total
func (c *GameConfig) LevelFor(lines int) int {
	return c.StartLevel + lines/c.LinesPerLevel
}
