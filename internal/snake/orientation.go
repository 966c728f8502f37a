package snake

import "github.com/vovakirdan/snakeq/internal/core"

// Orientation is one of the four grid directions. The constants are in
// cyclic order so that a relative turn is an index offset.
type Orientation int

const (
	Left Orientation = iota
	Up
	Right
	Down
)

var deltas = [4]core.Coord{
	Left:  {Row: 0, Col: -1},
	Up:    {Row: -1, Col: 0},
	Right: {Row: 0, Col: 1},
	Down:  {Row: 1, Col: 0},
}

// Orientations returns the four orientations in cycle order.
func Orientations() [4]Orientation {
	return [4]Orientation{Left, Up, Right, Down}
}

// Valid reports whether o is one of the four known orientations.
func (o Orientation) Valid() bool {
	return o >= Left && o <= Down
}

// Turn rotates by steps positions along the cycle; -1 is a left turn,
// +1 a right turn.
func (o Orientation) Turn(steps int) Orientation {
	return Orientation(((int(o)+steps)%4 + 4) % 4)
}

// Opposite returns the half-turn of o.
func (o Orientation) Opposite() Orientation {
	return o.Turn(2)
}

// Delta returns the one-cell movement for o.
func (o Orientation) Delta() core.Coord {
	if !o.Valid() {
		return core.Coord{}
	}
	return deltas[o]
}

func (o Orientation) String() string {
	switch o {
	case Left:
		return "left"
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}
