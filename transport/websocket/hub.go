package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
	"github.com/wricardo/mcp-training/tetrisgame/logx"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Queued broadcasts before producers block
	broadcastBuffer = 256
)

// Event names sent to clients
const (
	EventStateUpdate = "state_update"
	EventTick        = "tick"
	EventError       = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// ActionHandler applies an action received from a client and returns the
// resulting state
type ActionHandler func(ctx context.Context, sessionID, action string) (*engine.GameState, error)

// Message represents a WebSocket message
type Message struct {
	SessionID string            `json:"session_id"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Event     string            `json:"event,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// ClientMessage is a frame sent by a client: {"action":"left"}
type ClientMessage struct {
	Action string `json:"action"`
}

// Client represents a WebSocket client
type Client struct {
	id        string
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub maintains the set of active clients and broadcasts messages. The
// sessions map is written only by the Run goroutine.
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool
	mu       sync.RWMutex

	// Outbound messages for a session
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	onAction ActionHandler
	log      logx.Logger
	done     chan struct{}
	stopOnce sync.Once
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithActionHandler lets clients drive the game over the socket
func WithActionHandler(fn ActionHandler) HubOption {
	return func(h *Hub) { h.onAction = fn }
}

// WithLogger sets the hub logger
func WithLogger(l logx.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHub creates a new WebSocket hub
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        logx.Nop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's event loop and returns when ctx is cancelled.
// All clients are disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, clients := range h.sessions {
		for client := range clients {
			close(client.send)
		}
		delete(h.sessions, sessionID)
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:        uuid.NewString(),
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// BroadcastToSession sends a game state update to all clients in a session
func (h *Hub) BroadcastToSession(sessionID string, state *engine.GameState) {
	h.publish(&Message{
		SessionID: sessionID,
		GameState: state,
		Event:     EventStateUpdate,
	})
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.publish(&Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	})
}

func (h *Hub) publish(message *Message) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// ClientCount returns the number of clients watching sessionID
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	h.log.Debugf("client %s registered for session %s (total clients: %d)",
		client.id, client.sessionID, len(h.sessions[client.sessionID]))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	// Clean up empty sessions
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}

	h.log.Debugf("client %s unregistered from session %s (remaining clients: %d)",
		client.id, client.sessionID, len(clients))
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Errorf("failed to marshal broadcast message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.sessions[message.SessionID] {
		select {
		case client.send <- data:
		default:
			// Slow consumer
			h.removeLocked(client)
		}
	}
}

// handleClientMessage runs an action frame through the handler. Results are
// broadcast to every client of the session; errors go back to the sender.
func (c *Client) handleClientMessage(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Action == "" {
		c.reply(&Message{SessionID: c.sessionID, Event: EventError, Error: "expected {\"action\": \"...\"}"})
		return
	}
	if c.hub.onAction == nil {
		c.reply(&Message{SessionID: c.sessionID, Event: EventError, Error: "actions are not accepted on this socket"})
		return
	}

	state, err := c.hub.onAction(context.Background(), c.sessionID, msg.Action)
	if err != nil {
		c.reply(&Message{SessionID: c.sessionID, Event: EventError, Error: err.Error()})
		return
	}
	c.hub.BroadcastToSession(c.sessionID, state)
}

// reply queues a message for this client only. The read lock keeps the hub
// from closing send while we write to it.
func (c *Client) reply(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.sessions[c.sessionID][c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warnf("websocket error: %v", err)
			}
			break
		}
		c.handleClientMessage(data)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
