// Command autoplay plays a session on a running game server.
//
// Each piece is planned locally with the autoplay planner and sent as one
// bulk request ending in "drop". The session ID is remembered in a file so
// the next run resumes the same session.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/tetrisgame/game/autoplay"
	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
	"github.com/wricardo/mcp-training/tetrisgame/game/service"
	"github.com/wricardo/mcp-training/tetrisgame/logx"
)

// Client talks to the REST API of one session
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

func (c *Client) CreateSession(ctx context.Context, configID string) (*engine.GameState, error) {
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{"config_id": configID}, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	return info.GameState, nil
}

func (c *Client) GetState(ctx context.Context) (*engine.GameState, error) {
	var state engine.GameState
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/state"), nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

func (c *Client) BulkAct(ctx context.Context, actions []engine.Action) (*service.BulkActionResult, error) {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	var result service.BulkActionResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/actions"), map[string]interface{}{"actions": names}, &result); err != nil {
		return nil, fmt.Errorf("bulk actions: %w", err)
	}
	return &result, nil
}

func (c *Client) Reset(ctx context.Context) (*engine.GameState, error) {
	var resp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/reset"), struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	if resp.State == nil {
		return nil, errors.New("reset: response has no state")
	}
	return resp.State, nil
}

// Stats sums up one game
type Stats struct {
	Pieces   int
	Lines    int
	Score    int
	Level    int
	GameOver bool
}

// play places pieces until the game ends, ctx is done or maxPieces have
// been placed. Paused games are resumed first.
func play(ctx context.Context, c *Client, planner *autoplay.Planner, state *engine.GameState, maxPieces int, delay time.Duration, log logx.Logger) (Stats, error) {
	placed := 0
	for !state.GameOver && (maxPieces <= 0 || placed < maxPieces) {
		if err := ctx.Err(); err != nil {
			return statsOf(state), err
		}

		actions := []engine.Action{}
		if state.Paused {
			actions = append(actions, engine.ActionPause)
		}

		p, err := planner.Plan(state)
		if err != nil {
			return statsOf(state), err
		}
		actions = append(actions, p.Actions...)

		result, err := c.BulkAct(ctx, actions)
		if err != nil {
			return statsOf(state), err
		}
		state = result.GameState
		placed++

		if result.LinesDelta > 0 {
			log.Debugf("piece %d: %d lines, score %d", state.PiecesPlaced, result.LinesDelta, state.Score)
		}
		if placed%50 == 0 {
			log.Infof("%d pieces: score %d, level %d, lines %d", state.PiecesPlaced, state.Score, state.Level, state.LinesCleared)
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}
	}
	return statsOf(state), nil
}

func statsOf(state *engine.GameState) Stats {
	return Stats{
		Pieces:   state.PiecesPlaced,
		Lines:    state.LinesCleared,
		Score:    state.Score,
		Level:    state.Level,
		GameOver: state.GameOver,
	}
}

// resume returns the state of the saved session, or creates a new one
func resume(ctx context.Context, c *Client, sessionID, configID string, log logx.Logger) (*engine.GameState, error) {
	if sessionID != "" {
		c.sessionID = sessionID
		state, err := c.GetState(ctx)
		if err == nil {
			log.Infof("resumed session %s", sessionID)
			return state, nil
		}
		log.Warnf("failed to resume session %s (may be expired): %v", sessionID, err)
	}

	state, err := c.CreateSession(ctx, configID)
	if err != nil {
		return nil, err
	}
	log.Infof("created session %s", c.sessionID)
	return state, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	log := logx.New(logx.Options{Level: cmd.String("log-level"), Dev: true, Name: "autoplay"})
	defer log.Sync()

	client := NewClient(cmd.String("url"))
	sessionFile := cmd.String("session-file")

	sessionID := cmd.String("continue")
	if sessionID == "" && sessionFile != "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			sessionID = string(bytes.TrimSpace(data))
		}
	}

	log.Infof("connecting to game server at %s", cmd.String("url"))
	state, err := resume(ctx, client, sessionID, cmd.String("config"), log)
	if err != nil {
		return err
	}
	if sessionFile != "" {
		if err := os.WriteFile(sessionFile, []byte(client.sessionID), 0644); err != nil {
			log.Warnf("failed to save session ID: %v", err)
		}
	}

	planner := autoplay.NewPlanner(autoplay.DefaultWeights)
	games := int(cmd.Int("games"))
	best := Stats{}

	for game := 1; game <= games; game++ {
		if game > 1 || state.GameOver || cmd.Bool("reset") {
			if state, err = client.Reset(ctx); err != nil {
				return err
			}
		}

		stats, err := play(ctx, client, planner, state, int(cmd.Int("pieces")), cmd.Duration("delay"), log)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.Infof("game %d/%d: %d pieces, %d lines, score %d, level %d", game, games, stats.Pieces, stats.Lines, stats.Score, stats.Level)
		if stats.Score > best.Score {
			best = stats
		}
		if err != nil {
			break
		}
		if state, err = client.GetState(ctx); err != nil {
			return err
		}
	}

	log.Infof("best score %d (%d lines) in session %s", best.Score, best.Lines, client.sessionID)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "autoplay",
		Usage: "play a game session with the placement planner",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("TETRIS_API_URL")},
			&cli.StringFlag{Name: "config", Usage: "config ID for new sessions"},
			&cli.StringFlag{Name: "continue", Usage: "resume an existing session by ID"},
			&cli.StringFlag{Name: "session-file", Value: ".session", Usage: "file remembering the session ID (empty to disable)"},
			&cli.IntFlag{Name: "pieces", Value: 1000, Usage: "maximum pieces per game (0 for no limit)"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "number of games to play"},
			&cli.BoolFlag{Name: "reset", Usage: "reset the session before the first game"},
			&cli.DurationFlag{Name: "delay", Usage: "pause between pieces, e.g. 100ms"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "autoplay: %v\n", err)
		os.Exit(1)
	}
}
