package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PieceKind identifies one of the seven tetrominoes
type PieceKind uint8

const (
	NoPiece PieceKind = iota
	PieceI
	PieceO
	PieceT
	PieceS
	PieceZ
	PieceJ
	PieceL
)

// NumPieceKinds is the number of playable kinds
const NumPieceKinds = 7

// AllPieceKinds lists the playable kinds in draw order
var AllPieceKinds = [NumPieceKinds]PieceKind{PieceI, PieceO, PieceT, PieceS, PieceZ, PieceJ, PieceL}

// Letter returns the display letter of the kind, or 0 for NoPiece
func (k PieceKind) Letter() byte {
	switch k {
	case PieceI:
		return 'I'
	case PieceO:
		return 'O'
	case PieceT:
		return 'T'
	case PieceS:
		return 'S'
	case PieceZ:
		return 'Z'
	case PieceJ:
		return 'J'
	case PieceL:
		return 'L'
	default:
		return 0
	}
}

// Valid reports whether k is one of the seven playable kinds
func (k PieceKind) Valid() bool {
	return k >= PieceI && k <= PieceL
}

func (k PieceKind) String() string {
	if !k.Valid() {
		return ""
	}
	return string(k.Letter())
}

// ParsePieceKind converts a display letter ("I", "t", ...) into a kind
func ParsePieceKind(s string) (PieceKind, error) {
	if s == "" {
		return NoPiece, nil
	}
	if len(s) == 1 {
		if k := kindFromLetter(s[0]); k != NoPiece {
			return k, nil
		}
	}
	return NoPiece, fmt.Errorf("unknown piece kind %q", s)
}

func kindFromLetter(c byte) PieceKind {
	switch c {
	case 'I', 'i':
		return PieceI
	case 'O', 'o':
		return PieceO
	case 'T', 't':
		return PieceT
	case 'S', 's':
		return PieceS
	case 'Z', 'z':
		return PieceZ
	case 'J', 'j':
		return PieceJ
	case 'L', 'l':
		return PieceL
	default:
		return NoPiece
	}
}

// MarshalText implements encoding.TextMarshaler
func (k PieceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *PieceKind) UnmarshalText(text []byte) error {
	parsed, err := ParsePieceKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Shape returns a fresh copy of the kind's canonical orientation.
// NoPiece has no shape.
func (k PieceKind) Shape() Shape {
	switch k {
	case PieceI:
		return shapeI.Clone()
	case PieceO:
		return shapeO.Clone()
	case PieceT:
		return shapeT.Clone()
	case PieceS:
		return shapeS.Clone()
	case PieceZ:
		return shapeZ.Clone()
	case PieceJ:
		return shapeJ.Clone()
	case PieceL:
		return shapeL.Clone()
	default:
		return nil
	}
}

var (
	shapeI = Shape{
		{true, true, true, true},
	}
	shapeO = Shape{
		{true, true},
		{true, true},
	}
	shapeT = Shape{
		{false, true, false},
		{true, true, true},
	}
	shapeS = Shape{
		{false, true, true},
		{true, true, false},
	}
	shapeZ = Shape{
		{true, true, false},
		{false, true, true},
	}
	shapeJ = Shape{
		{true, false, false},
		{true, true, true},
	}
	shapeL = Shape{
		{false, false, true},
		{true, true, true},
	}
)

// Shape is a boolean occupancy matrix, row 0 at the top
type Shape [][]bool

// Width returns the number of columns
func (s Shape) Width() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// Height returns the number of rows
func (s Shape) Height() int {
	return len(s)
}

// Clone returns a deep copy
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	out := make(Shape, len(s))
	for i, row := range s {
		out[i] = append([]bool(nil), row...)
	}
	return out
}

// Equal reports whether both shapes have identical dimensions and cells
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if len(s[i]) != len(other[i]) {
			return false
		}
		for j := range s[i] {
			if s[i][j] != other[i][j] {
				return false
			}
		}
	}
	return true
}

// Rows renders the shape as strings using '#' for filled and '.' for empty
func (s Shape) Rows() []string {
	rows := make([]string, len(s))
	for i, row := range s {
		var b strings.Builder
		for _, filled := range row {
			if filled {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		rows[i] = b.String()
	}
	return rows
}

// ShapeFromRows parses the output of Rows
func ShapeFromRows(rows []string) (Shape, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	width := len(rows[0])
	out := make(Shape, len(rows))
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("shape row %d has width %d, expected %d", i, len(row), width)
		}
		out[i] = make([]bool, width)
		for j := 0; j < width; j++ {
			switch row[j] {
			case '#':
				out[i][j] = true
			case '.':
			default:
				return nil, fmt.Errorf("invalid shape character %q at row %d, col %d", row[j], i, j)
			}
		}
	}
	return out, nil
}

// MarshalJSON encodes the shape as row strings
func (s Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Rows())
}

// UnmarshalJSON decodes row strings produced by MarshalJSON
func (s *Shape) UnmarshalJSON(data []byte) error {
	var rows []string
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	parsed, err := ShapeFromRows(rows)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// RotateCW returns a new shape rotated 90 degrees clockwise.
// The input is never modified.
func RotateCW(shape Shape) Shape {
	h, w := shape.Height(), shape.Width()
	rotated := make(Shape, w)
	for i := range rotated {
		rotated[i] = make([]bool, h)
	}
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			rotated[j][h-1-i] = shape[i][j]
		}
	}
	return rotated
}
