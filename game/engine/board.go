package engine

import (
	"fmt"
	"strings"
)

// Cell is a single board square: Empty or occupied by a piece kind
type Cell uint8

// Empty is the unoccupied cell
const Empty Cell = 0

// Occupied returns the cell tagged with kind
func Occupied(kind PieceKind) Cell {
	return Cell(kind)
}

// IsEmpty reports whether the cell is unoccupied
func (c Cell) IsEmpty() bool {
	return c == Empty
}

// Kind returns the piece kind that occupies the cell
func (c Cell) Kind() PieceKind {
	return PieceKind(c)
}

// Char returns '.' for empty cells and the kind letter otherwise
func (c Cell) Char() byte {
	if c.IsEmpty() {
		return '.'
	}
	return c.Kind().Letter()
}

// Board is a fixed-size grid of cells, row 0 at the top
type Board struct {
	width  int
	height int
	cells  [][]Cell
}

// NewBoard creates an empty board
func NewBoard(width, height int) *Board {
	b := &Board{width: width, height: height}
	b.cells = make([][]Cell, height)
	for y := range b.cells {
		b.cells[y] = make([]Cell, width)
	}
	return b
}

// Width returns the number of columns
func (b *Board) Width() int { return b.width }

// Height returns the number of rows
func (b *Board) Height() int { return b.height }

// Cell returns the cell at (x, y). Out of range coordinates read as Empty.
func (b *Board) Cell(x, y int) Cell {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return Empty
	}
	return b.cells[y][x]
}

// Set writes a cell. Out of range coordinates are ignored.
func (b *Board) Set(x, y int, c Cell) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	b.cells[y][x] = c
}

// IsValid reports whether every filled cell of shape, offset by (x, y),
// lies inside the board and over an empty cell.
func (b *Board) IsValid(shape Shape, x, y int) bool {
	for i, row := range shape {
		for j, filled := range row {
			if !filled {
				continue
			}
			nx, ny := x+j, y+i
			if nx < 0 || nx >= b.width || ny < 0 || ny >= b.height {
				return false
			}
			if !b.cells[ny][nx].IsEmpty() {
				return false
			}
		}
	}
	return true
}

// Freeze writes kind into every board cell under the filled cells of shape.
// Callers validate the placement first; cells outside the board are skipped.
func (b *Board) Freeze(shape Shape, x, y int, kind PieceKind) {
	for i, row := range shape {
		for j, filled := range row {
			if filled {
				b.Set(x+j, y+i, Occupied(kind))
			}
		}
	}
}

// ClearLines removes every full row, shifts the remaining rows down keeping
// their order and inserts the same number of empty rows at the top.
// It returns the number of rows removed.
func (b *Board) ClearLines() int {
	kept := make([][]Cell, 0, b.height)
	cleared := 0
	for _, row := range b.cells {
		if rowFull(row) {
			cleared++
			continue
		}
		kept = append(kept, row)
	}
	if cleared == 0 {
		return 0
	}

	fresh := make([][]Cell, 0, b.height)
	for i := 0; i < cleared; i++ {
		fresh = append(fresh, make([]Cell, b.width))
	}
	b.cells = append(fresh, kept...)
	return cleared
}

func rowFull(row []Cell) bool {
	for _, c := range row {
		if c.IsEmpty() {
			return false
		}
	}
	return true
}

// GhostY returns the lowest valid Y for shape dropped straight down from (x, y).
// If the starting position is already invalid, y is returned unchanged.
func (b *Board) GhostY(shape Shape, x, y int) int {
	if !b.IsValid(shape, x, y) {
		return y
	}
	for b.IsValid(shape, x, y+1) {
		y++
	}
	return y
}

// Rows renders the board as strings, one per row, top first
func (b *Board) Rows() []string {
	rows := make([]string, b.height)
	for y, row := range b.cells {
		var sb strings.Builder
		sb.Grow(b.width)
		for _, c := range row {
			sb.WriteByte(c.Char())
		}
		rows[y] = sb.String()
	}
	return rows
}

// LoadRows replaces the board contents. rows may be shorter than the board,
// in which case they fill the bottom and the rows above are cleared.
func (b *Board) LoadRows(rows []string) error {
	if len(rows) > b.height {
		return fmt.Errorf("layout has %d rows, board height is %d", len(rows), b.height)
	}
	cells := make([][]Cell, b.height)
	offset := b.height - len(rows)
	for y := range cells {
		cells[y] = make([]Cell, b.width)
		if y < offset {
			continue
		}
		row := rows[y-offset]
		if len(row) != b.width {
			return fmt.Errorf("layout row %d has width %d, board width is %d", y-offset, len(row), b.width)
		}
		for x := 0; x < b.width; x++ {
			c, err := cellFromChar(row[x])
			if err != nil {
				return fmt.Errorf("layout row %d, col %d: %w", y-offset, x, err)
			}
			cells[y][x] = c
		}
	}
	b.cells = cells
	return nil
}

func cellFromChar(ch byte) (Cell, error) {
	if ch == '.' {
		return Empty, nil
	}
	if k := kindFromLetter(ch); k != NoPiece {
		return Occupied(k), nil
	}
	return Empty, fmt.Errorf("invalid cell character %q", ch)
}

// Clone returns a deep copy of the board
func (b *Board) Clone() *Board {
	out := &Board{width: b.width, height: b.height, cells: make([][]Cell, b.height)}
	for y, row := range b.cells {
		out.cells[y] = append([]Cell(nil), row...)
	}
	return out
}

// CountFilled returns the number of occupied cells
func (b *Board) CountFilled() int {
	n := 0
	for _, row := range b.cells {
		for _, c := range row {
			if !c.IsEmpty() {
				n++
			}
		}
	}
	return n
}
