package snake

import (
	"slices"

	"github.com/vovakirdan/snakeq/internal/core"
)

// Observation is a read-only copy of the environment after a tick.
type Observation struct {
	Size        int
	Head        core.Coord
	Body        []core.Coord
	Target      core.Coord
	Orientation Orientation

	Died      bool
	AteTarget bool
	GotCloser bool
}

// Blocked reports whether one step toward dir would leave the grid or land
// on the body.
func (o Observation) Blocked(dir Orientation) bool {
	next := o.Head.Add(dir.Delta())
	if !next.InBounds(o.Size) {
		return true
	}
	return slices.Contains(o.Body, next)
}
