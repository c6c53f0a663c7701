package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
	"github.com/wricardo/mcp-training/tetrisgame/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Tetris",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tetris - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Place falling pieces to complete horizontal rows. Full rows are cleared and
scored; the game ends when a new piece cannot enter the board.

AVAILABLE TOOLS:
- create_session: Create new game session
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Get current game state with the board drawn
- action: Single action (left/right/down/rotate/drop/hold/pause/tick) - requires intent explanation
- bulk_actions: Up to 50 actions at once - requires intent explanation
- toggle_pause: Pause or resume
- reset_game: Start a new game in the session
- action_history: View past actions
- list_configs: List available configurations
- game_instructions: Get the rules and scoring

NOTE: The 'intent' parameter on action/bulk_actions serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func actionNames() []string {
	names := make([]string, len(engine.AllActions))
	for i, a := range engine.AllActions {
		names[i] = string(a)
	}
	return names
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use, see list_configs (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "action",
		Description: "Apply one action to the falling piece",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"action": map[string]interface{}{
					"type":        "string",
					"enum":        actionNames(),
					"description": "Action to apply",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this action (serves as a rubber duck to help explain your reasoning)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before acting",
				},
			},
			Required: []string{"session_id", "action"},
		},
	}, c.handleAction)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_actions",
		Description: fmt.Sprintf("Apply several actions in sequence (max %d). Stops early on game over.", engine.MaxBulkActions),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"actions": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": actionNames(),
					},
					"description": "Array of actions",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence of actions (serves as a rubber duck to help explain your reasoning)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before acting",
				},
			},
			Required: []string{"session_id", "actions"},
		},
	}, c.handleBulkActions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "toggle_pause",
		Description: "Pause a running game or resume a paused one",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleTogglePause)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Start a new game in the session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "action_history",
		Description: "Get action history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest (asc) or newest (desc) first",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleActionHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configID := request.GetString("config_id", "")

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		score := 0
		if s.GameState != nil {
			score = s.GameState.Score
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Score: %d, Created: %s)\n",
			s.ID, s.ConfigName, score, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var state engine.GameState
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	action := request.GetString("action", "")
	reset := request.GetBool("reset", false)

	// intent is only there to make the caller think out loud

	body := map[string]interface{}{
		"action": action,
		"reset":  reset,
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/action"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleBulkActions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	actions := request.GetStringSlice("actions", nil)
	reset := request.GetBool("reset", false)

	body := map[string]interface{}{
		"actions": actions,
		"reset":   reset,
	}

	var result service.BulkActionResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/actions"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkActionResult(sessionID, &result)), nil
}

func (c *Client) handleTogglePause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var result service.ActionResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/pause"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}

	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleActionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	params := url.Values{}
	if page := request.GetInt("page", 0); page > 0 {
		params.Set("page", fmt.Sprint(page))
	}
	if limit := request.GetInt("limit", 0); limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if order := request.GetString("order", ""); order != "" {
		params.Set("order", order)
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		gravity := "real-time"
		if config.ManualGravity {
			gravity = "manual (use tick)"
		}
		fmt.Fprintf(&b, "• %s (id: %s)\n  %s\n  Board: %dx%d, Start level: %d, Hold: %t, Gravity: %s\n\n",
			config.Name, config.ConfigID, config.Description,
			config.BoardWidth, config.BoardHeight, config.StartLevel, config.HoldEnabled, gravity)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Tetris - Complete Instructions

GAME OBJECTIVE:
Steer falling pieces so they fill complete rows. Every full row disappears,
the rows above drop down, and you score points. The game ends when a newly
spawned piece overlaps blocks already on the board.

PIECES:
I (line), O (square), T, S, Z, J and L. A bag of all seven is shuffled,
drawn in order, and refilled when empty, so every kind appears once per
seven pieces. The next pieces are shown in the preview queue.

BOARD LEGEND:
• . = empty cell
• I O T S Z J L = a block of that piece kind (locked or falling)
• + = ghost, where the falling piece would land on drop
• Row 0 is the top of the board, x grows to the right

ACTIONS:
• left / right: shift the piece one column
• down: soft drop one row, never locks the piece
• rotate: turn the piece 90° clockwise (rejected if it would collide, no wall kicks)
• drop: hard drop to the ghost position and lock immediately
• hold: stash the current piece (or swap with the held one), once per piece
• pause: toggle pause; no other action works while paused
• tick: one gravity step; locks the piece if it cannot fall

GRAVITY:
On real-time configs the server moves the piece down on its own, faster at
higher levels. On manual configs nothing falls until you send tick.

SCORING:
Points per clear = base × level at the time of the clear
• 1 line: 100
• 2 lines: 300
• 3 lines: 500
• 4 lines: 800
Level rises every 10 cleared lines by default.

STRATEGY TIPS:
• Read the board bottom-up and keep its surface flat
• Leave one column open for I pieces and clear four lines at once
• Use hold to save an I piece for a deep well
• Plan with the preview queue, not just the current piece
• Prefer bulk_actions for a whole placement: e.g. ["rotate","left","left","drop"]

Good luck!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nLast accessed: %s\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return result
}

func formatClock(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func formatPiece(kind engine.PieceKind) string {
	if !kind.Valid() {
		return "-"
	}
	return kind.String()
}

func formatQueue(kinds []engine.PieceKind) string {
	letters := make([]string, len(kinds))
	for i, k := range kinds {
		letters[i] = formatPiece(k)
	}
	return strings.Join(letters, " ")
}

// renderBoard draws the board with the falling piece and its ghost, framed
// and with row numbers on the left
func renderBoard(state *engine.GameState) string {
	var b strings.Builder
	border := "   +" + strings.Repeat("-", state.Width) + "+\n"
	b.WriteString(border)
	for y, row := range state.Overlay() {
		fmt.Fprintf(&b, "%2d |%s|\n", y, row)
	}
	b.WriteString(border)
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "Game state unavailable"
	}

	var b strings.Builder
	switch {
	case state.GameOver:
		b.WriteString("💀 GAME OVER\n")
	case state.Paused:
		b.WriteString("⏸ PAUSED\n")
	}

	fmt.Fprintf(&b, "Score: %d | Level: %d | Lines: %d | Pieces: %d\n",
		state.Score, state.Level, state.LinesCleared, state.PiecesPlaced)
	fmt.Fprintf(&b, "Time: %s | Gravity: %dms\n", formatClock(state.Elapsed()), state.GravityMs)
	if state.Active != nil {
		fmt.Fprintf(&b, "Current: %s at (%d,%d)\n", formatPiece(state.Active.Kind), state.Active.X, state.Active.Y)
	}
	fmt.Fprintf(&b, "Next: %s\n", formatQueue(state.Next))
	hold := formatPiece(state.Hold)
	if state.HoldUsed {
		hold += " (used)"
	}
	fmt.Fprintf(&b, "Hold: %s\n", hold)
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}

	b.WriteString("\n")
	b.WriteString(renderBoard(state))
	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "✓ %s applied\n", result.Action)
	} else {
		fmt.Fprintf(&b, "✗ %s rejected\n", result.Action)
	}
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}
	if lock := result.Lock; lock != nil {
		fmt.Fprintf(&b, "Locked %s at (%d,%d): %d lines, +%d points\n",
			formatPiece(lock.Kind), lock.Position.X, lock.Position.Y, lock.LinesCleared, lock.ScoreAwarded)
	}
	for _, ev := range result.Events {
		fmt.Fprintf(&b, "[%s] %s\n", ev.Type, ev.Message)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkActionResult(sessionID string, result *service.BulkActionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s: executed %d/%d actions, %d succeeded\n",
		sessionID, result.ActionsExecuted, result.RequestedActions, result.Succeeded)
	if result.Truncated {
		fmt.Fprintf(&b, "⚠ Request truncated to %d actions\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on action %d: %s\n", result.StoppedOnAction, result.StoppedReason)
	}
	fmt.Fprintf(&b, "Score: %d → %d (Δ%d) | Lines Δ%d | Pieces Δ%d\n",
		result.StartScore, result.EndScore, result.ScoreDelta, result.LinesDelta, result.PiecesDelta)

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, step := range result.Steps {
			status := "✓"
			if !step.Success {
				status = "✗"
			}
			line := fmt.Sprintf("%d. %s %s %s (%d,%d)", step.Idx+1, step.Action, status,
				formatPiece(step.Piece), step.Position.X, step.Position.Y)
			if step.Locked {
				line += " locked"
			}
			if step.LinesCleared > 0 {
				line += fmt.Sprintf(" +%d lines", step.LinesCleared)
			}
			b.WriteString(line + "\n")
		}
	}

	if len(result.Events) > 0 {
		b.WriteString("\nEvents:\n")
		for _, ev := range result.Events {
			fmt.Fprintf(&b, "[%s] %s\n", ev.Type, ev.Message)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Action History (Page %d/%d, Total: %d):\n\n",
		history.Page, history.TotalPages, history.TotalActions)
	if len(history.Actions) == 0 {
		b.WriteString("(no actions)\n")
	}
	for _, entry := range history.Actions {
		status := "✓"
		if !entry.Success {
			status = "✗"
		}
		line := fmt.Sprintf("%d. %s %s %s (%d,%d) [Score: %d, Level: %d]",
			entry.ActionNumber, entry.Action, status, formatPiece(entry.Piece),
			entry.Position.X, entry.Position.Y, entry.Score, entry.Level)
		if entry.LinesCleared > 0 {
			line += fmt.Sprintf(" +%d lines", entry.LinesCleared)
		}
		b.WriteString(line + "\n")
	}
	if history.HasNext {
		fmt.Fprintf(&b, "\nMore on page %d\n", history.Page+1)
	}
	return b.String()
}
