package terminal

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
)

// Screen layout. Every board cell is two columns wide.
const (
	boardLeft = 1
	boardTop  = 0
	cellWidth = 2
	panelGap  = 3
)

const (
	blockRune = '█'
	ghostRune = '░'
	emptyRune = '·'
)

var (
	styleDefault = tcell.StyleDefault
	styleFrame   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleEmpty   = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleLabel   = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleValue   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleAlert   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleNotice  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
)

// PieceColor is the display color of a piece kind
func PieceColor(kind engine.PieceKind) tcell.Color {
	switch kind {
	case engine.PieceI:
		return tcell.ColorAqua
	case engine.PieceO:
		return tcell.ColorYellow
	case engine.PieceT:
		return tcell.ColorPurple
	case engine.PieceS:
		return tcell.ColorLime
	case engine.PieceZ:
		return tcell.ColorRed
	case engine.PieceJ:
		return tcell.ColorBlue
	case engine.PieceL:
		return tcell.ColorOrange
	default:
		return tcell.ColorDefault
	}
}

func formatClock(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func drawCell(s tcell.Screen, x, y int, r rune, style tcell.Style) {
	for i := 0; i < cellWidth; i++ {
		s.SetContent(x+i, y, r, nil, style)
	}
}

// cellOrigin returns the screen position of board cell (x, y)
func cellOrigin(x, y int) (int, int) {
	return boardLeft + 1 + x*cellWidth, boardTop + 1 + y
}

func panelLeft(state *engine.GameState) int {
	return boardLeft + 2 + state.Width*cellWidth + panelGap
}

func drawGame(s tcell.Screen, state *engine.GameState) {
	drawBoard(s, state)
	drawPanel(s, state)
	drawStatus(s, state)
}

func drawBoard(s tcell.Screen, state *engine.GameState) {
	right := boardLeft + 1 + state.Width*cellWidth
	bottom := boardTop + 1 + state.Height
	for y := boardTop; y <= bottom; y++ {
		s.SetContent(boardLeft, y, '│', nil, styleFrame)
		s.SetContent(right, y, '│', nil, styleFrame)
	}
	for x := boardLeft; x <= right; x++ {
		s.SetContent(x, boardTop, '─', nil, styleFrame)
		s.SetContent(x, bottom, '─', nil, styleFrame)
	}
	s.SetContent(boardLeft, boardTop, '┌', nil, styleFrame)
	s.SetContent(right, boardTop, '┐', nil, styleFrame)
	s.SetContent(boardLeft, bottom, '└', nil, styleFrame)
	s.SetContent(right, bottom, '┘', nil, styleFrame)

	var activeColor tcell.Color
	if state.Active != nil {
		activeColor = PieceColor(state.Active.Kind)
	}

	for y, row := range state.Overlay() {
		for x := 0; x < len(row); x++ {
			sx, sy := cellOrigin(x, y)
			switch ch := row[x]; ch {
			case '.':
				drawCell(s, sx, sy, ' ', styleDefault)
				s.SetContent(sx+1, sy, emptyRune, nil, styleEmpty)
			case engine.GhostChar:
				drawCell(s, sx, sy, ghostRune, styleDefault.Foreground(activeColor))
			default:
				kind := kindFromLetter(ch)
				drawCell(s, sx, sy, blockRune, styleDefault.Foreground(PieceColor(kind)))
			}
		}
	}
}

func kindFromLetter(ch byte) engine.PieceKind {
	for _, k := range engine.AllPieceKinds {
		if k.Letter() == ch {
			return k
		}
	}
	return engine.NoPiece
}

// drawShape draws kind's spawn orientation with its top left at (x, y)
func drawShape(s tcell.Screen, x, y int, kind engine.PieceKind, style tcell.Style) {
	for i, row := range kind.Shape() {
		for j, filled := range row {
			if filled {
				drawCell(s, x+j*cellWidth, y+i, blockRune, style.Foreground(PieceColor(kind)))
			}
		}
	}
}

func drawPanel(s tcell.Screen, state *engine.GameState) {
	x := panelLeft(state)
	y := boardTop + 1

	stats := []struct {
		label string
		value string
	}{
		{"Score", fmt.Sprint(state.Score)},
		{"Level", fmt.Sprint(state.Level)},
		{"Lines", fmt.Sprint(state.LinesCleared)},
		{"Pieces", fmt.Sprint(state.PiecesPlaced)},
		{"Time", formatClock(state.Elapsed())},
	}
	for _, st := range stats {
		drawText(s, x, y, st.label, styleLabel)
		drawText(s, x+8, y, st.value, styleValue)
		y++
	}

	y++
	drawText(s, x, y, "Next", styleLabel)
	y++
	for _, kind := range state.Next {
		drawShape(s, x, y, kind, styleDefault)
		y += 3
	}

	drawText(s, x, y, "Hold", styleLabel)
	if state.HoldUsed {
		drawText(s, x+5, y, "(used)", styleEmpty)
	}
	y++
	if state.Hold.Valid() {
		style := styleDefault
		if state.HoldUsed {
			style = style.Dim(true)
		}
		drawShape(s, x, y, state.Hold, style)
	} else {
		drawText(s, x, y, "-", styleEmpty)
	}
}

// StatusLine is the text shown under the board
func StatusLine(state *engine.GameState) string {
	switch {
	case state.GameOver:
		return "GAME OVER - r to restart, q to quit"
	case state.Paused:
		return "PAUSED - p to resume"
	default:
		return state.Message
	}
}

const helpLine = "←→ move  ↓ soft drop  ↑/x rotate  space drop  c hold  p pause  r reset  q quit"

func drawStatus(s tcell.Screen, state *engine.GameState) {
	y := boardTop + state.Height + 2
	style := styleLabel
	switch {
	case state.GameOver:
		style = styleAlert
	case state.Paused:
		style = styleNotice
	}
	drawText(s, boardLeft, y, StatusLine(state), style)
	drawText(s, boardLeft, y+1, helpLine, styleEmpty)
}
