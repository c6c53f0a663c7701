// Package terminal plays a local game in a terminal using tcell.
//
// The board is drawn two columns per cell with the falling piece, its ghost,
// the preview queue, the hold slot and the score panel. Gravity runs on an
// engine.GravityScheduler goroutine and wakes the input loop with an
// interrupt event after every fall.
//
// Keys:
//
//	←/→      move
//	↓        soft drop
//	↑ or x   rotate clockwise
//	space    hard drop
//	c        hold
//	p        pause
//	t        gravity tick (manual configs)
//	r        new game
//	q, Esc   quit
package terminal
