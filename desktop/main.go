package main

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	cellSize      = 20
	headerHeight  = 70
	boardGap      = 30
	panelWidth    = 110
	screenWidth   = 1000
	screenHeight  = 720
	flashDuration = 300 * time.Millisecond // line clear flash
	pollInterval  = 500 * time.Millisecond
	maxSessions   = 4
)

var serverURL = "http://localhost:8080"

// ScreenType represents different screens in the app
type ScreenType int

const (
	ScreenWelcome ScreenType = iota
	ScreenGame
)

var pieceColors = map[byte]color.RGBA{
	'I': {0, 220, 220, 255},
	'O': {230, 220, 0, 255},
	'T': {170, 60, 220, 255},
	'S': {60, 210, 60, 255},
	'Z': {230, 60, 60, 255},
	'J': {60, 90, 230, 255},
	'L': {240, 150, 30, 255},
}

var (
	backgroundColor = color.RGBA{20, 20, 30, 255}
	emptyColor      = color.RGBA{35, 35, 50, 255}
	ghostColor      = color.RGBA{80, 80, 100, 255}
	frameColor      = color.RGBA{120, 120, 140, 255}
	activeFrame     = color.RGBA{255, 255, 255, 255}
	flashColor      = color.RGBA{255, 255, 255, 255}
)

// ActivePiece is the falling piece as sent by the server
type ActivePiece struct {
	Kind  string   `json:"kind"`
	Shape []string `json:"shape"`
	X     int      `json:"x"`
	Y     int      `json:"y"`
}

// GameState represents the state from the game server
type GameState struct {
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	Board        []string     `json:"board"`
	Active       *ActivePiece `json:"active,omitempty"`
	GhostY       int          `json:"ghost_y"`
	Hold         string       `json:"hold,omitempty"`
	HoldUsed     bool         `json:"hold_used"`
	Next         []string     `json:"next"`
	Score        int          `json:"score"`
	Level        int          `json:"level"`
	LinesCleared int          `json:"lines_cleared"`
	PiecesPlaced int          `json:"pieces_placed"`
	Paused       bool         `json:"paused"`
	GameOver     bool         `json:"game_over"`
	ElapsedMs    int64        `json:"elapsed_ms"`
	Message      string       `json:"message"`
	ConfigName   string       `json:"config_name"`
}

// WSMessage represents WebSocket message wrapper
type WSMessage struct {
	SessionID string     `json:"session_id"`
	GameState *GameState `json:"game_state,omitempty"`
	Event     string     `json:"event,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// SessionData holds data for a single session
type SessionData struct {
	sessionID  string
	state      *GameState
	wsConn     *websocket.Conn
	writeMu    sync.Mutex
	lastUpdate time.Time
	flashTime  time.Time // when lines were last cleared
	lastError  string
}

// SessionListItem represents a session from the server
type SessionListItem struct {
	ID         string     `json:"id"`
	ConfigName string     `json:"config_name"`
	GameState  *GameState `json:"game_state"`
}

// ConfigListItem represents a game configuration
type ConfigListItem struct {
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Game represents the desktop game client
type Game struct {
	sessions         []*SessionData
	activeSession    int // index of currently active session
	stateMutex       sync.RWMutex
	currentScreen    ScreenType
	welcomeScreen    *WelcomeScreen
	selectedSessions map[string]bool // session IDs selected to play
}

// WelcomeScreen manages the welcome screen state
type WelcomeScreen struct {
	availableSessions []SessionListItem
	availableConfigs  []ConfigListItem
	cursorPos         int
	loading           bool
	errorMsg          string
	newSessionConfig  string // config ID for new sessions, empty for the default
}

// NewGame creates a new game instance with initial sessions
func NewGame(sessionIDs []string) *Game {
	g := &Game{
		currentScreen:    ScreenWelcome,
		selectedSessions: make(map[string]bool),
		welcomeScreen:    &WelcomeScreen{},
	}

	// If session IDs provided, skip welcome screen and go straight to game
	if len(sessionIDs) > 0 {
		for _, sid := range sessionIDs {
			g.addSession(sid)
		}
		g.currentScreen = ScreenGame
	} else {
		g.loadWelcomeData()
	}

	return g
}

// addSession attaches a session, creating one when sessionID is empty
func (g *Game) addSession(sessionID string) {
	if sessionID == "" {
		id, err := createSession(g.welcomeScreen.newSessionConfig)
		if err != nil {
			log.Printf("Failed to create session: %v", err)
			return
		}
		sessionID = id
	}

	session := &SessionData{sessionID: sessionID, lastUpdate: time.Now()}
	g.sessions = append(g.sessions, session)

	if err := g.connectWebSocket(session); err != nil {
		log.Printf("Failed to connect WebSocket for %s: %v (falling back to polling)", sessionID, err)
	} else {
		go g.listenWebSocket(session)
	}

	if err := g.fetchGameState(session); err != nil {
		log.Printf("Error fetching state for %s: %v", sessionID, err)
	}
}

// createSession creates a new game session and returns its ID
func createSession(configID string) (string, error) {
	payload := "{}"
	if configID != "" {
		payload = fmt.Sprintf(`{"config_id":%q}`, configID)
	}

	resp, err := http.Post(serverURL+"/api/sessions", "application/json", strings.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result SessionListItem
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse session response: %v (body: %s)", err, string(body))
	}

	log.Printf("Created new session: %s (config: %s)", result.ID, result.ConfigName)
	return result.ID, nil
}

// websocketURL maps the HTTP server URL to the session's WebSocket endpoint
func websocketURL(base, sessionID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// connectWebSocket establishes WebSocket connection
func (g *Game) connectWebSocket(session *SessionData) error {
	wsURL, err := websocketURL(serverURL, session.sessionID)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}

	session.wsConn = conn
	log.Printf("WebSocket connected for session %s", session.sessionID)
	return nil
}

// listenWebSocket applies state pushes until the connection drops
func (g *Game) listenWebSocket(session *SessionData) {
	conn := session.wsConn
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("WebSocket read error for %s: %v", session.sessionID, err)
			g.stateMutex.Lock()
			session.wsConn = nil
			g.stateMutex.Unlock()
			return
		}

		var wsMsg WSMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			log.Printf("WebSocket JSON parse error: %v", err)
			continue
		}

		if wsMsg.Error != "" {
			g.stateMutex.Lock()
			session.lastError = wsMsg.Error
			g.stateMutex.Unlock()
			continue
		}
		if wsMsg.GameState != nil {
			g.applyState(session, wsMsg.GameState)
		}
	}
}

// applyState stores a new snapshot and starts the flash when lines cleared
func (g *Game) applyState(session *SessionData, state *GameState) {
	g.stateMutex.Lock()
	defer g.stateMutex.Unlock()

	if session.state != nil && state.LinesCleared > session.state.LinesCleared {
		session.flashTime = time.Now()
	}
	session.state = state
	session.lastUpdate = time.Now()
	session.lastError = ""
}

// fetchGameState gets the current game state from the server
func (g *Game) fetchGameState(session *SessionData) error {
	resp, err := http.Get(fmt.Sprintf("%s/api/sessions/%s/state", serverURL, url.PathEscape(session.sessionID)))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var state GameState
	if err := json.Unmarshal(body, &state); err != nil {
		return fmt.Errorf("failed to parse JSON: %v (body: %s)", err, string(body))
	}

	g.applyState(session, &state)
	return nil
}

// loadWelcomeData fetches available sessions and configs from server
func (g *Game) loadWelcomeData() {
	ws := g.welcomeScreen
	ws.loading = true
	ws.errorMsg = ""
	defer func() { ws.loading = false }()

	var sessionsResp struct {
		Sessions []SessionListItem `json:"sessions"`
	}
	if err := getJSON("/api/sessions", &sessionsResp); err != nil {
		ws.errorMsg = fmt.Sprintf("Error loading sessions: %v", err)
		return
	}
	ws.availableSessions = sessionsResp.Sessions

	var configs []ConfigListItem
	if err := getJSON("/api/configs", &configs); err != nil {
		ws.errorMsg = fmt.Sprintf("Error loading configs: %v", err)
		return
	}
	ws.availableConfigs = configs

	if ws.cursorPos >= len(ws.availableSessions) {
		ws.cursorPos = max(len(ws.availableSessions)-1, 0)
	}
}

func getJSON(path string, out interface{}) error {
	resp, err := http.Get(serverURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (g *Game) startGameWithSelectedSessions() {
	if len(g.selectedSessions) == 0 {
		g.welcomeScreen.errorMsg = "Please select at least one session"
		return
	}

	for sessionID := range g.selectedSessions {
		if len(g.sessions) >= maxSessions {
			break
		}
		if !g.hasSession(sessionID) {
			g.addSession(sessionID)
		}
	}
	g.selectedSessions = make(map[string]bool)
	g.currentScreen = ScreenGame
}

func (g *Game) hasSession(id string) bool {
	for _, s := range g.sessions {
		if strings.EqualFold(s.sessionID, id) {
			return true
		}
	}
	return false
}

// sendAction sends an action for the active session. Actions go over the
// socket when connected and the result arrives as a broadcast; otherwise
// they are posted to the REST API.
func (g *Game) sendAction(action string) {
	if len(g.sessions) == 0 {
		return
	}
	session := g.sessions[g.activeSession]

	g.stateMutex.RLock()
	conn := session.wsConn
	g.stateMutex.RUnlock()

	if conn != nil {
		session.writeMu.Lock()
		err := conn.WriteJSON(map[string]string{"action": action})
		session.writeMu.Unlock()
		if err == nil {
			return
		}
		log.Printf("WebSocket write failed for %s: %v", session.sessionID, err)
	}

	go func() {
		if err := postAction(session.sessionID, action); err != nil {
			log.Printf("Action %s failed for %s: %v", action, session.sessionID, err)
		}
		if err := g.fetchGameState(session); err != nil {
			log.Printf("Error fetching state for %s: %v", session.sessionID, err)
		}
	}()
}

func postAction(sessionID, action string) error {
	path := fmt.Sprintf("%s/api/sessions/%s/action", serverURL, url.PathEscape(sessionID))
	payload := fmt.Sprintf(`{"action":%q}`, action)
	if action == "reset" {
		path = fmt.Sprintf("%s/api/sessions/%s/reset", serverURL, url.PathEscape(sessionID))
		payload = "{}"
	}

	resp, err := http.Post(path, "application/json", strings.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}

// Update proceeds the game state.
func (g *Game) Update() error {
	switch g.currentScreen {
	case ScreenWelcome:
		return g.updateWelcomeScreen()
	case ScreenGame:
		return g.updateGameScreen()
	}
	return nil
}

func (g *Game) updateWelcomeScreen() error {
	ws := g.welcomeScreen

	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		g.loadWelcomeData()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && ws.cursorPos < len(ws.availableSessions)-1 {
		ws.cursorPos++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && ws.cursorPos > 0 {
		ws.cursorPos--
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) && ws.cursorPos < len(ws.availableSessions) {
		sessionID := ws.availableSessions[ws.cursorPos].ID
		if g.selectedSessions[sessionID] {
			delete(g.selectedSessions, sessionID)
		} else {
			g.selectedSessions[sessionID] = true
		}
	}

	// Cycle config for new sessions: default, then each listed config
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) && len(ws.availableConfigs) > 0 {
		next := 0
		for i, cfg := range ws.availableConfigs {
			if cfg.ConfigID == ws.newSessionConfig {
				next = i + 1
				break
			}
		}
		if next >= len(ws.availableConfigs) {
			ws.newSessionConfig = ""
		} else {
			ws.newSessionConfig = ws.availableConfigs[next].ConfigID
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		id, err := createSession(ws.newSessionConfig)
		if err != nil {
			ws.errorMsg = fmt.Sprintf("Failed to create session: %v", err)
		} else {
			g.selectedSessions[id] = true
			g.loadWelcomeData()
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.startGameWithSelectedSessions()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) && len(g.sessions) > 0 {
		g.currentScreen = ScreenGame
	}

	return nil
}

var actionKeys = []struct {
	keys   []ebiten.Key
	action string
}{
	{[]ebiten.Key{ebiten.KeyArrowLeft, ebiten.KeyA}, "left"},
	{[]ebiten.Key{ebiten.KeyArrowRight, ebiten.KeyD}, "right"},
	{[]ebiten.Key{ebiten.KeyArrowDown, ebiten.KeyS}, "down"},
	{[]ebiten.Key{ebiten.KeyArrowUp, ebiten.KeyW, ebiten.KeyX}, "rotate"},
	{[]ebiten.Key{ebiten.KeySpace}, "drop"},
	{[]ebiten.Key{ebiten.KeyC}, "hold"},
	{[]ebiten.Key{ebiten.KeyP}, "pause"},
	{[]ebiten.Key{ebiten.KeyT}, "tick"},
	{[]ebiten.Key{ebiten.KeyR}, "reset"},
}

func (g *Game) updateGameScreen() error {
	if len(g.sessions) == 0 {
		if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
			g.currentScreen = ScreenWelcome
			g.loadWelcomeData()
		}
		return nil
	}

	// Poll sessions without a socket
	for _, session := range g.sessions {
		g.stateMutex.RLock()
		stale := session.wsConn == nil && time.Since(session.lastUpdate) > pollInterval
		g.stateMutex.RUnlock()
		if stale {
			if err := g.fetchGameState(session); err != nil {
				log.Printf("Error fetching state for %s: %v", session.sessionID, err)
				session.lastUpdate = time.Now()
			}
		}
	}

	for i := ebiten.Key1; i <= ebiten.Key9; i++ {
		if inpututil.IsKeyJustPressed(i) {
			idx := int(i - ebiten.Key1)
			if idx < len(g.sessions) {
				g.activeSession = idx
				log.Printf("Switched to session %d: %s", idx+1, g.sessions[idx].sessionID)
			}
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyN) && len(g.sessions) < maxSessions {
		g.addSession("")
		log.Printf("Added new session (total: %d)", len(g.sessions))
	}

	for _, binding := range actionKeys {
		for _, key := range binding.keys {
			if inpututil.IsKeyJustPressed(key) {
				g.sendAction(binding.action)
				break
			}
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.currentScreen = ScreenWelcome
		g.loadWelcomeData()
	}

	return nil
}

// Draw draws the game screen.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	switch g.currentScreen {
	case ScreenWelcome:
		g.drawWelcomeScreen(screen)
	case ScreenGame:
		g.drawGameScreen(screen)
	}
}

func (g *Game) drawWelcomeScreen(screen *ebiten.Image) {
	ws := g.welcomeScreen

	y := 20
	ebitenutil.DebugPrintAt(screen, "=== TETRIS - SESSION SELECT ===", 350, y)
	y += 30

	if ws.loading {
		ebitenutil.DebugPrintAt(screen, "Loading sessions...", 20, y)
		return
	}

	if ws.errorMsg != "" {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("ERROR: %s", ws.errorMsg), 20, y)
		y += 20
	}

	ebitenutil.DebugPrintAt(screen, "Available Sessions:", 20, y)
	y += 20

	if len(ws.availableSessions) == 0 {
		ebitenutil.DebugPrintAt(screen, "  No sessions found. Press N to create one.", 20, y)
		y += 20
	}
	for i, session := range ws.availableSessions {
		cursor := "  "
		if i == ws.cursorPos {
			cursor = "> "
		}
		checkbox := "[ ]"
		if g.selectedSessions[session.ID] {
			checkbox = "[X]"
		}
		ebitenutil.DebugPrintAt(screen, cursor+checkbox+" "+sessionSummary(session), 20, y)
		y += 15
	}

	y += 20
	ebitenutil.DebugPrintAt(screen, "Create New Session:", 20, y)
	y += 20

	configDisplay := "default"
	if ws.newSessionConfig != "" {
		configDisplay = ws.newSessionConfig
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("  Selected Config: %s", configDisplay), 20, y)
	y += 15
	for _, cfg := range ws.availableConfigs {
		marker := "  "
		if cfg.ConfigID == ws.newSessionConfig {
			marker = "> "
		}
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("    %s%s - %s", marker, cfg.ConfigID, cfg.Description), 20, y)
		y += 15
	}

	y += 20
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Selected: %d session(s), up to %d are shown", len(g.selectedSessions), maxSessions), 20, y)
	y += 30

	for _, line := range []string{
		"CONTROLS:",
		"  UP/DOWN  - Navigate sessions",
		"  SPACE    - Toggle session selection",
		"  TAB      - Cycle config for new session",
		"  N        - Create new session with selected config",
		"  ENTER    - Start with selected sessions",
		"  F5       - Refresh session list",
	} {
		ebitenutil.DebugPrintAt(screen, line, 20, y)
		y += 15
	}
	if len(g.sessions) > 0 {
		ebitenutil.DebugPrintAt(screen, "  ESC      - Back to game", 20, y)
	}
}

func sessionSummary(s SessionListItem) string {
	line := fmt.Sprintf("%s | %s", s.ID, s.ConfigName)
	if st := s.GameState; st != nil {
		line += fmt.Sprintf(" | Score:%d Level:%d Lines:%d", st.Score, st.Level, st.LinesCleared)
		if st.GameOver {
			line += " GAME OVER"
		} else if st.Paused {
			line += " PAUSED"
		}
	}
	return line
}

func (g *Game) drawGameScreen(screen *ebiten.Image) {
	g.stateMutex.RLock()
	defer g.stateMutex.RUnlock()

	if len(g.sessions) == 0 {
		ebitenutil.DebugPrint(screen, "No sessions available. Press ESC to go to session select.")
		return
	}

	ebitenutil.DebugPrintAt(screen, "1-4: switch  arrows/WASD: move  up/x: rotate  space: drop  c: hold  p: pause  t: tick  r: reset  n: new  esc: sessions", 10, 10)

	x := 10
	for idx, session := range g.sessions {
		if session.state == nil {
			ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%d. %s loading...", idx+1, session.sessionID), x, headerHeight)
			x += 10*cellSize + panelWidth + boardGap
			continue
		}
		g.drawSession(screen, session, idx, x, headerHeight)
		x += session.state.Width*cellSize + panelWidth + boardGap
	}
}

// drawSession draws one board with its side panel at (left, top)
func (g *Game) drawSession(screen *ebiten.Image, session *SessionData, idx, left, top int) {
	state := session.state

	title := fmt.Sprintf("%d. %s", idx+1, session.sessionID)
	if session.wsConn == nil {
		title += " (polling)"
	}
	ebitenutil.DebugPrintAt(screen, title, left, top-30)
	ebitenutil.DebugPrintAt(screen, state.ConfigName, left, top-16)

	boardW := float64(state.Width * cellSize)
	boardH := float64(state.Height * cellSize)
	frame := frameColor
	if idx == g.activeSession {
		frame = activeFrame
	}
	ebitenutil.DrawRect(screen, float64(left-2), float64(top-2), boardW+4, boardH+4, frame)

	flashing := time.Since(session.flashTime) < flashDuration
	for y, row := range overlay(state) {
		for x := 0; x < len(row); x++ {
			c := cellColor(row[x])
			if flashing && row[x] == '.' {
				c = flashColor
			}
			ebitenutil.DrawRect(screen,
				float64(left+x*cellSize), float64(top+y*cellSize),
				cellSize-1, cellSize-1, c)
		}
	}

	if state.GameOver {
		ebitenutil.DebugPrintAt(screen, "GAME OVER", left+int(boardW)/2-27, top+int(boardH)/2)
	} else if state.Paused {
		ebitenutil.DebugPrintAt(screen, "PAUSED", left+int(boardW)/2-18, top+int(boardH)/2)
	}

	px := left + int(boardW) + 10
	py := top
	elapsed := time.Duration(state.ElapsedMs) * time.Millisecond
	for _, line := range []string{
		fmt.Sprintf("Score %d", state.Score),
		fmt.Sprintf("Level %d", state.Level),
		fmt.Sprintf("Lines %d", state.LinesCleared),
		fmt.Sprintf("Pieces %d", state.PiecesPlaced),
		fmt.Sprintf("Time %02d:%02d", int(elapsed.Minutes()), int(elapsed.Seconds())%60),
	} {
		ebitenutil.DebugPrintAt(screen, line, px, py)
		py += 16
	}

	py += 10
	ebitenutil.DebugPrintAt(screen, "Next", px, py)
	py += 18
	for _, kind := range state.Next {
		drawMini(screen, kind, px, py)
		py += 3 * cellSize / 2
	}

	py += 10
	hold := "Hold"
	if state.HoldUsed {
		hold += " (used)"
	}
	ebitenutil.DebugPrintAt(screen, hold, px, py)
	if state.Hold != "" {
		drawMini(screen, state.Hold, px, py+18)
	}

	msg := state.Message
	if session.lastError != "" {
		msg = session.lastError
	}
	ebitenutil.DebugPrintAt(screen, msg, left, top+int(boardH)+8)
}

// miniShapes are the spawn orientations used for preview and hold
var miniShapes = map[string][]string{
	"I": {"####"},
	"O": {"##", "##"},
	"T": {".#.", "###"},
	"S": {".##", "##."},
	"Z": {"##.", ".##"},
	"J": {"#..", "###"},
	"L": {"..#", "###"},
}

func drawMini(screen *ebiten.Image, kind string, left, top int) {
	size := cellSize / 2
	c := cellColor(kind[0])
	for y, row := range miniShapes[kind] {
		for x := 0; x < len(row); x++ {
			if row[x] == '#' {
				ebitenutil.DrawRect(screen, float64(left+x*size), float64(top+y*size), float64(size-1), float64(size-1), c)
			}
		}
	}
}

// overlay returns the board rows with the ghost ('+') and the active piece
// drawn in
func overlay(state *GameState) []string {
	rows := make([][]byte, len(state.Board))
	for y, row := range state.Board {
		rows[y] = []byte(row)
	}

	set := func(x, y int, c byte, onlyEmpty bool) {
		if y < 0 || y >= len(rows) || x < 0 || x >= len(rows[y]) {
			return
		}
		if onlyEmpty && rows[y][x] != '.' {
			return
		}
		rows[y][x] = c
	}

	if a := state.Active; a != nil && a.Kind != "" {
		for dy, row := range a.Shape {
			for dx := 0; dx < len(row); dx++ {
				if row[dx] != '#' {
					continue
				}
				if state.GhostY > a.Y {
					set(a.X+dx, state.GhostY+dy, '+', true)
				}
			}
		}
		for dy, row := range a.Shape {
			for dx := 0; dx < len(row); dx++ {
				if row[dx] == '#' {
					set(a.X+dx, a.Y+dy, a.Kind[0], false)
				}
			}
		}
	}

	out := make([]string, len(rows))
	for y, row := range rows {
		out[y] = string(row)
	}
	return out
}

func cellColor(c byte) color.Color {
	switch c {
	case '.':
		return emptyColor
	case '+':
		return ghostColor
	}
	if rgba, ok := pieceColors[c]; ok {
		return rgba
	}
	return frameColor
}

// Layout takes the outside size (e.g., the window size) and returns the (logical) screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	if v := os.Getenv("TETRIS_SERVER"); v != "" {
		serverURL = strings.TrimSuffix(v, "/")
	}

	var sessionIDs []string
	if len(os.Args) > 1 {
		sessionIDs = os.Args[1:]
		if len(sessionIDs) > maxSessions {
			sessionIDs = sessionIDs[:maxSessions]
		}
		log.Printf("Starting with %d session(s): %v", len(sessionIDs), sessionIDs)
	}

	game := NewGame(sessionIDs)

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Tetris - Desktop Client")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
