package snake

import "github.com/vovakirdan/snakeq/internal/core"

// CellWidth is the number of screen columns one grid cell takes, which
// keeps the board roughly square in a terminal.
const CellWidth = 2

// BoardSize returns the screen footprint of the board, border included.
func (e *Env) BoardSize() (w, h int) {
	return e.grid.Size*CellWidth + 2, e.grid.Size + 2
}

// Render draws the bordered board with its top-left corner at (x, y).
func (e *Env) Render(dst *core.Screen, x, y int) {
	w, h := e.BoardSize()
	dst.DrawBox(core.NewRect(x, y, w, h), core.ColorGray)

	put := func(p core.Coord, r rune, c core.Color) {
		sx := x + 1 + p.Col*CellWidth
		sy := y + 1 + p.Row
		for i := 0; i < CellWidth; i++ {
			dst.SetColored(sx+i, sy, r, c)
		}
	}

	for _, seg := range e.body {
		put(seg, '▒', core.ColorGreen)
	}
	put(e.head, '█', core.ColorBrightGreen)
	if e.target.InBounds(e.grid.Size) {
		put(e.target, '█', core.ColorRed)
	}
}
