// Package websocket provides WebSocket transport for the Tetris game server.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - State broadcasting after REST actions and gravity ticks
//   - Optional game input from clients
//   - Connection lifecycle management
//
// Architecture:
//
// A central Hub owns every connection. Registration, removal and broadcast
// all run on the Hub's Run goroutine, so producers such as gravity
// schedulers only ever touch a channel. Each client has a read pump and a
// write pump goroutine.
//
// Message Protocol:
//
// Messages are JSON-encoded, one document per frame:
//   - Incoming: {"action": "rotate"}
//   - Outgoing: {"session_id": "ab12", "event": "state_update", "game_state": {...}}
//   - Errors:   {"session_id": "ab12", "event": "error", "error": "..."}
//
// Clients choose their session with ?session=ab12 when connecting. Incoming
// actions are accepted only when the hub was built WithActionHandler.
//
// Usage:
//
//	hub := websocket.NewHub(
//		websocket.WithLogger(logger),
//		websocket.WithActionHandler(applyAction),
//	)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Cancelling the Run context closes every connection.
package websocket
