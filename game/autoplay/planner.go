// Package autoplay picks placements for the falling piece.
//
// For every distinct rotation and every reachable column the planner drops
// the piece on a copy of the board and scores the result with a weighted
// sum of aggregate height, completed lines, holes and bumpiness. The best
// placement is returned as a list of actions ending in "drop".
package autoplay

import (
	"errors"
	"math"

	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
)

var (
	ErrNoActivePiece = errors.New("no active piece")
	ErrNoPlacement   = errors.New("no reachable placement")
)

// Weights scale the board features of a candidate placement
type Weights struct {
	Height    float64
	Lines     float64
	Holes     float64
	Bumpiness float64
}

// DefaultWeights are the well known weights tuned by El-Tetris style search
var DefaultWeights = Weights{
	Height:    -0.510066,
	Lines:     0.760666,
	Holes:     -0.35663,
	Bumpiness: -0.184483,
}

// Placement is a chosen final position of the active piece
type Placement struct {
	Rotations int
	X         int
	Y         int
	Lines     int
	Score     float64
	Actions   []engine.Action
}

type Planner struct {
	weights Weights
}

func NewPlanner(w Weights) *Planner {
	return &Planner{weights: w}
}

// Plan returns the best placement of state's active piece. Only moves
// that are legal from the current position are considered: rotations in
// place followed by horizontal shifts.
func (p *Planner) Plan(state *engine.GameState) (*Placement, error) {
	if state.Active == nil || !state.Active.Kind.Valid() {
		return nil, ErrNoActivePiece
	}

	board := engine.NewBoard(state.Width, state.Height)
	if err := board.LoadRows(state.Board); err != nil {
		return nil, err
	}

	active := state.Active
	var best *Placement
	shape := active.Shape
	var seen []engine.Shape

	for r := 0; r < 4; r++ {
		if r > 0 {
			shape = engine.RotateCW(shape)
			if !board.IsValid(shape, active.X, active.Y) {
				break
			}
		}
		if contains(seen, shape) {
			continue
		}
		seen = append(seen, shape)

		for _, x := range reachableColumns(board, shape, active.X, active.Y) {
			y := board.GhostY(shape, x, active.Y)
			after := board.Clone()
			after.Freeze(shape, x, y, active.Kind)
			lines := after.ClearLines()

			score := p.evaluate(after, lines)
			if best == nil || score > best.Score {
				best = &Placement{
					Rotations: r,
					X:         x,
					Y:         y,
					Lines:     lines,
					Score:     score,
				}
			}
		}
	}

	if best == nil {
		return nil, ErrNoPlacement
	}
	best.Actions = actionsFor(best.Rotations, best.X-active.X)
	return best, nil
}

func contains(shapes []engine.Shape, s engine.Shape) bool {
	for _, other := range shapes {
		if other.Equal(s) {
			return true
		}
	}
	return false
}

// reachableColumns walks left and right from x until the shape collides
func reachableColumns(board *engine.Board, shape engine.Shape, x, y int) []int {
	cols := []int{x}
	for nx := x - 1; board.IsValid(shape, nx, y); nx-- {
		cols = append(cols, nx)
	}
	for nx := x + 1; board.IsValid(shape, nx, y); nx++ {
		cols = append(cols, nx)
	}
	return cols
}

func actionsFor(rotations, dx int) []engine.Action {
	actions := make([]engine.Action, 0, rotations+abs(dx)+1)
	for i := 0; i < rotations; i++ {
		actions = append(actions, engine.ActionRotate)
	}
	step := engine.ActionRight
	if dx < 0 {
		step = engine.ActionLeft
	}
	for i := 0; i < abs(dx); i++ {
		actions = append(actions, step)
	}
	return append(actions, engine.ActionDrop)
}

func (p *Planner) evaluate(board *engine.Board, lines int) float64 {
	f := Measure(board)
	score := p.weights.Height*float64(f.AggregateHeight) +
		p.weights.Lines*float64(lines) +
		p.weights.Holes*float64(f.Holes) +
		p.weights.Bumpiness*float64(f.Bumpiness)
	if math.IsNaN(score) {
		return math.Inf(-1)
	}
	return score
}

// Features summarizes the shape of a board's stack
type Features struct {
	Heights         []int
	AggregateHeight int
	Holes           int // empty cells with a filled cell above them
	Bumpiness       int // sum of height differences between neighbours
}

func Measure(board *engine.Board) Features {
	w, h := board.Width(), board.Height()
	f := Features{Heights: make([]int, w)}

	for x := 0; x < w; x++ {
		top := h
		for y := 0; y < h; y++ {
			if !board.Cell(x, y).IsEmpty() {
				top = y
				break
			}
		}
		f.Heights[x] = h - top
		f.AggregateHeight += h - top

		for y := top + 1; y < h; y++ {
			if board.Cell(x, y).IsEmpty() {
				f.Holes++
			}
		}
	}

	for x := 1; x < w; x++ {
		f.Bumpiness += abs(f.Heights[x] - f.Heights[x-1])
	}
	return f
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
