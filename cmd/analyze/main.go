// Command analyze plays every configuration in the configs directory with
// the autoplay planner and prints how far it gets. It is a quick way to see
// whether a layout or gravity change made a config harder.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/tetrisgame/game/autoplay"
	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
)

// Result is the outcome of the games played on one config
type Result struct {
	File      string
	Name      string
	Width     int
	Height    int
	Layout    int // pre-filled rows
	Games     int
	ToppedOut int
	Pieces    int // totals across games
	Lines     int
	BestScore int
	MaxLevel  int
}

// AvgLines is the mean number of lines per game
func (r Result) AvgLines() float64 {
	if r.Games == 0 {
		return 0
	}
	return float64(r.Lines) / float64(r.Games)
}

func loadConfig(path string) (*engine.GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config engine.GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	engine.ApplyDefaults(&config)
	return &config, nil
}

// analyzeConfig plays games with seeds 1..games, each up to maxPieces
func analyzeConfig(path string, games, maxPieces int) (Result, error) {
	config, err := loadConfig(path)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		File:   filepath.Base(path),
		Name:   config.Name,
		Width:  config.BoardWidth,
		Height: config.BoardHeight,
		Layout: len(config.Layout),
	}
	config.Gravity.Manual = true
	planner := autoplay.NewPlanner(autoplay.DefaultWeights)

	for seed := 1; seed <= games; seed++ {
		config.Seed = int64(seed)
		e, err := engine.NewEngine(config)
		if err != nil {
			return res, err
		}

		for i := 0; i < maxPieces && !e.IsGameOver(); i++ {
			p, err := planner.Plan(e.GetState())
			if err != nil {
				break
			}
			for _, a := range p.Actions {
				e.Apply(a)
			}
		}

		state := e.GetState()
		res.Games++
		res.Pieces += state.PiecesPlaced
		res.Lines += state.LinesCleared
		if state.GameOver {
			res.ToppedOut++
		}
		if state.Score > res.BestScore {
			res.BestScore = state.Score
		}
		if state.Level > res.MaxLevel {
			res.MaxLevel = state.Level
		}
	}
	return res, nil
}

func configFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no config files in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func printResults(w io.Writer, results []Result, maxPieces int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONFIG\tBOARD\tLAYOUT\tGAMES\tTOPPED OUT\tAVG LINES\tBEST SCORE\tMAX LEVEL")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%dx%d\t%d\t%d\t%d\t%.1f\t%d\t%d\n",
			strings.TrimSuffix(r.File, ".json"), r.Width, r.Height, r.Layout,
			r.Games, r.ToppedOut, r.AvgLines(), r.BestScore, r.MaxLevel)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nGames stop after %d pieces.\n", maxPieces)
}

func run(ctx context.Context, cmd *cli.Command) error {
	files, err := configFiles(cmd.String("dir"))
	if err != nil {
		return err
	}

	games := int(cmd.Int("games"))
	pieces := int(cmd.Int("pieces"))

	var results []Result
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := analyzeConfig(f, games, pieces)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(f), err)
			continue
		}
		results = append(results, r)
	}

	printResults(os.Stdout, results, pieces)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "play every config with the placement planner and summarize the results",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "configs", Usage: "configs directory", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.IntFlag{Name: "games", Value: 3, Usage: "games per config, seeded 1..n"},
			&cli.IntFlag{Name: "pieces", Value: 300, Usage: "piece limit per game"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
}
