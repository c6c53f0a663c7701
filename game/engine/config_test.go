package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGameConfigIsValid(t *testing.T) {
	config := DefaultGameConfig()
	require.NoError(t, ValidateGameConfig(config))
	assert.Equal(t, 10, config.BoardWidth)
	assert.Equal(t, 22, config.BoardHeight)
	assert.Equal(t, 3, config.PreviewCount)
	assert.Equal(t, []int{0, 100, 300, 500, 800}, config.ScoreTable)
}

func TestDefaultGameConfigScoreTableIsCopy(t *testing.T) {
	config := DefaultGameConfig()
	config.ScoreTable[1] = 1
	assert.Equal(t, 100, DefaultScoreTable[1])
}

func TestValidateGameConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *GameConfig)
		wantErr string
	}{
		{"nil name", func(c *GameConfig) { c.Name = "" }, "name is required"},
		{"no description", func(c *GameConfig) { c.Description = "" }, "description is required"},
		{"narrow board", func(c *GameConfig) { c.BoardWidth = 3 }, "board_width"},
		{"wide board", func(c *GameConfig) { c.BoardWidth = 41 }, "board_width"},
		{"short board", func(c *GameConfig) { c.BoardHeight = 2 }, "board_height"},
		{"small preview", func(c *GameConfig) { c.PreviewCount = 2 }, "preview_count"},
		{"zero level", func(c *GameConfig) { c.StartLevel = 0 }, "start_level"},
		{"zero lines per level", func(c *GameConfig) { c.LinesPerLevel = 0 }, "lines_per_level"},
		{"short score table", func(c *GameConfig) { c.ScoreTable = []int{0, 100} }, "score_table must have"},
		{"nonzero score for no lines", func(c *GameConfig) { c.ScoreTable = []int{5, 100, 300, 500, 800} }, "score_table[0]"},
		{"decreasing score table", func(c *GameConfig) { c.ScoreTable = []int{0, 300, 100, 500, 800} }, "non-decreasing"},
		{"zero min gravity", func(c *GameConfig) { c.Gravity.MinMillis = 0 }, "gravity.min_ms"},
		{"base below min", func(c *GameConfig) { c.Gravity.BaseMillis = 10 }, "gravity.base_ms"},
		{"negative step", func(c *GameConfig) { c.Gravity.StepMillis = -1 }, "gravity.step_ms"},
		{"layout too tall", func(c *GameConfig) { c.Layout = emptyRows(10, 21) }, "at most 20 rows"},
		{"layout wrong width", func(c *GameConfig) { c.Layout = []string{"...."} }, "match board_width"},
		{"layout bad char", func(c *GameConfig) { c.Layout = []string{"....X....."} }, "invalid character"},
		{"layout full row", func(c *GameConfig) { c.Layout = []string{"IIIIIIIIII"} }, "is full"},
		{"no welcome", func(c *GameConfig) { c.Messages.Welcome = "" }, "messages.welcome"},
		{"game over without score", func(c *GameConfig) { c.Messages.GameOver = "Over" }, "messages.game_over"},
		{"line clear without count", func(c *GameConfig) { c.Messages.LineClear = "Nice" }, "messages.line_clear"},
		{"level up without level", func(c *GameConfig) { c.Messages.LevelUp = "Up" }, "messages.level_up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createTestConfig()
			tt.mutate(config)
			err := ValidateGameConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateGameConfigNil(t *testing.T) {
	assert.Error(t, ValidateGameConfig(nil))
}

func TestValidateGameConfigAcceptsLayout(t *testing.T) {
	config := createTestConfig()
	config.Layout = []string{
		"....I.....",
		"II.IIIIIII",
	}
	assert.NoError(t, ValidateGameConfig(config))
}

func TestApplyDefaults(t *testing.T) {
	config := &GameConfig{Name: "sparse", Description: "only the basics", BoardWidth: 12}
	ApplyDefaults(config)

	require.NoError(t, ValidateGameConfig(config))
	assert.Equal(t, 12, config.BoardWidth)
	assert.Equal(t, DefaultBoardHeight, config.BoardHeight)
	assert.Equal(t, 1, config.StartLevel)
	assert.Equal(t, DefaultGravityBase, config.Gravity.BaseMillis)
	assert.NotEmpty(t, config.Messages.GameOver)
}

func TestLoadGameConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mini.json")
	data := `{
		"name": "mini",
		"description": "Small board",
		"board_width": 6,
		"board_height": 12,
		"hold_enabled": true,
		"layout": ["II.III"],
		"gravity": {"base_ms": 500, "step_ms": 25, "min_ms": 100}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	config, err := LoadGameConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mini", config.Name)
	assert.Equal(t, 6, config.BoardWidth)
	assert.Equal(t, 12, config.BoardHeight)
	assert.Equal(t, DefaultPreview, config.PreviewCount)
	assert.Equal(t, 500, config.Gravity.BaseMillis)
	assert.Equal(t, []string{"II.III"}, config.Layout)
}

func TestLoadGameConfigErrors(t *testing.T) {
	_, err := LoadGameConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = ParseGameConfig([]byte("{not json"))
	assert.Error(t, err)

	_, err = ParseGameConfig([]byte(`{"name":"x","description":"y","board_width":2}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "board_width")
}

func TestGravityPeriod(t *testing.T) {
	config := DefaultGameConfig()
	tests := []struct {
		level int
		want  time.Duration
	}{
		{1, 730 * time.Millisecond},
		{2, 660 * time.Millisecond},
		{10, 100 * time.Millisecond},
		{11, 50 * time.Millisecond},
		{20, 50 * time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, config.GravityPeriod(tt.level), "level %d", tt.level)
	}

	for level := 1; level < 20; level++ {
		assert.GreaterOrEqual(t, config.GravityPeriod(level), config.GravityPeriod(level+1))
	}
}

func TestScoreFor(t *testing.T) {
	config := DefaultGameConfig()
	assert.Equal(t, 0, config.ScoreFor(0, 2))
	assert.Equal(t, 200, config.ScoreFor(1, 2))
	assert.Equal(t, 600, config.ScoreFor(2, 2))
	assert.Equal(t, 1000, config.ScoreFor(3, 2))
	assert.Equal(t, 1600, config.ScoreFor(4, 2))
	assert.Equal(t, 800, config.ScoreFor(4, 1))
}

func TestLevelFor(t *testing.T) {
	config := DefaultGameConfig()
	assert.Equal(t, 1, config.LevelFor(0))
	assert.Equal(t, 1, config.LevelFor(9))
	assert.Equal(t, 2, config.LevelFor(10))
	assert.Equal(t, 4, config.LevelFor(35))

	config.StartLevel = 5
	assert.Equal(t, 5, config.LevelFor(3))
}
