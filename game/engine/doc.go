// Package engine provides the piece and board simulation core of the Tetris game.
//
// The engine package implements the game mechanics including:
//   - Board occupancy, collision checks and line clearing
//   - The seven tetrominoes and clockwise rotation without wall kicks
//   - A lookahead piece queue and a single-use hold slot
//   - Scoring, leveling and paused-time accounting
//   - A cancellable gravity driver serialized against player input
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. Every exported GameEngine method holds one
// mutex for its whole duration, so player input and gravity ticks never
// interleave. GameState is a detached snapshot returned to callers, while
// GameConfig defines the rules loaded from JSON files.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gravity := engine.NewGravityScheduler(gameEngine, nil)
//	go gravity.Run(ctx)
//
//	gameEngine.Move(-1, 0)
//	gameEngine.Rotate()
//	state := gameEngine.GetState()
//
// Game Rules:
//
// A piece spawns centered on the top row and falls one row per gravity
// period. When it can no longer fall it locks into the board, full rows are
// cleared and the next piece spawns. Clearing 1 to 4 rows at once scores
// 100, 300, 500 or 800 times the current level, and every ten lines raise
// the level, which shortens the gravity period. The game ends when a new
// piece cannot be placed at the spawn position.
package engine
