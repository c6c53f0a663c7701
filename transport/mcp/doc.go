// Package mcp provides a Model Context Protocol front end for the Tetris game server.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions that proxy to the REST API
//   - Text rendering of boards, action results and history
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - create_session: Create new game session with config selection
//   - list_sessions: List all active sessions
//   - get_session: Get specific session details
//   - game_state: Get current game state with the board drawn
//   - action: Apply a single action
//   - bulk_actions: Apply up to 50 actions in sequence
//   - toggle_pause: Pause or resume
//   - reset_game: Start a new game in the session
//   - action_history: Retrieve action history with pagination
//   - list_configs: List available game configurations
//   - game_instructions: Rules, scoring and strategy
//
// Every tool except game_instructions calls the REST API, so the game server
// must be running. API failures are reported as tool errors rather than
// protocol errors.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
