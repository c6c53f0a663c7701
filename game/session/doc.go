// Package session provides session management for the Tetris game server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique 4-character session ID generation
//   - One gravity goroutine per session with automatic gravity
//   - File persistence of game snapshots
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each service.Session owns its own engine instance; the manager starts an
// engine.GravityScheduler for it unless the config asks for manual gravity
// or the manager was built with WithGravity(false).
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. Lookups are
// case-insensitive.
//
// Gravity:
//
// Gravity ticks are reported through the TickListener so the server can push
// state to observers. Delete, DeleteFromMemory, CleanupExpiredSessions and
// Close stop the goroutines they own; Close also waits for them to exit.
//
// Usage:
//
//	manager := session.NewManager(
//		session.WithPersistence(persistence),
//		session.WithLogger(logger),
//		session.WithTickListener(func(id string, res engine.TickResult, state *engine.GameState) {
//			hub.BroadcastToSession(id, state)
//		}),
//	)
//	defer manager.Close()
//
//	sess, err := manager.Create("", "classic", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sessionID)
package session
