// Package core provides fundamental types and utilities shared by the
// simulation, the learner and the terminal front-end. It contains no
// external dependencies (especially no Bubble Tea) to keep the simulation
// pure and testable.
package core

import (
	"cmp"
	"fmt"
	"math"
)

// Coord is a grid cell addressed by row and column.
// It doubles as a movement delta.
type Coord struct {
	Row, Col int
}

// NewCoord creates a coordinate.
func NewCoord(row, col int) Coord {
	return Coord{Row: row, Col: col}
}

// Add returns the component-wise sum of two coordinates.
func (c Coord) Add(other Coord) Coord {
	return Coord{Row: c.Row + other.Row, Col: c.Col + other.Col}
}

// Equal reports whether both components match.
func (c Coord) Equal(other Coord) bool {
	return c.Row == other.Row && c.Col == other.Col
}

// Dist returns the Euclidean distance between two cells.
func (c Coord) Dist(other Coord) float64 {
	dr := float64(c.Row - other.Row)
	dc := float64(c.Col - other.Col)
	return math.Sqrt(dr*dr + dc*dc)
}

// InBounds reports whether the cell lies inside a size×size grid.
func (c Coord) InBounds(size int) bool {
	return c.Row >= 0 && c.Row < size && c.Col >= 0 && c.Col < size
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Rect represents an axis-aligned box on the screen.
type Rect struct {
	X, Y int // Top-left corner position
	W, H int // Width and height
}

// NewRect creates a new rectangle with the given position and dimensions.
func NewRect(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Right returns the x-coordinate of the right edge.
func (r Rect) Right() int {
	return r.X + r.W
}

// Bottom returns the y-coordinate of the bottom edge.
func (r Rect) Bottom() int {
	return r.Y + r.H
}

// Clamp restricts a value to be within [lo, hi].
func Clamp[T cmp.Ordered](val, lo, hi T) T {
	return max(lo, min(val, hi))
}
