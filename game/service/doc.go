// Package service provides the business logic layer for the Tetris game server.
//
// The service package implements:
//   - Multi-session game management
//   - Action parsing and dispatch to the engine
//   - Bulk action execution with per-step traces
//   - Paginated action history
//   - Configuration listing, loading and saving
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine; gravity ticks run inside
// the session package and do not pass through here.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr, service.WithLogger(logger))
//
//	info, err := gameService.CreateSession(ctx, "marathon")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Act(ctx, info.ID, "rotate", false)
//	bulk, err := gameService.BulkAct(ctx, info.ID, []string{"left", "left", "drop"}, false)
//
// Bulk Actions:
//
// Every action name is validated before any runs. Rejected moves are
// recorded and the sequence continues; a game over stops it. At most
// engine.MaxBulkActions run per call.
package service
