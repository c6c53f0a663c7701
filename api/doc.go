// Package api provides HTTP REST API handlers for the Tetris game server.
//
// The api package implements:
//   - Session management endpoints
//   - Single and bulk game actions
//   - Paginated action history
//   - Configuration listing, retrieval and upload
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_id": "marathon"})
//   - GET /api/sessions - List sessions (?sort=accessed|created|score&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/action - {"action": "left|right|down|rotate|drop|hold|pause|tick", "reset": false}
//   - POST /api/sessions/{id}/actions - {"actions": ["left", "drop"], "reset": false}
//   - POST /api/sessions/{id}/pause - Toggle pause
//   - POST /api/sessions/{id}/reset - Start a new game in the session
//   - GET /api/sessions/{id}/history - ?page=1&limit=20&order=desc
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - GET /api/configs/{name} - Full configuration
//   - POST /api/configs - Save a configuration (?id=file_name)
//
// Other:
//   - GET /api/health
//   - GET /ws?session={id} - WebSocket stream of state updates
//
// Error Handling:
//
// Errors are returned as {"error": "message"}. Unknown actions and invalid
// configurations map to 400, unknown sessions and configs to 404, anything
// else to 500.
//
// Every mutating endpoint broadcasts the resulting state to WebSocket
// clients of the session.
package api
