package snake

import "github.com/vovakirdan/snakeq/internal/core"

// Status is the coarse state of the environment after a tick.
type Status string

const (
	StatusAlive     Status = "alive"
	StatusReset     Status = "reset" // Died this tick, already back at the origin
	StatusCompleted Status = "completed"
)

// Snapshot captures the observable state for determinism testing and display.
type Snapshot struct {
	Tick        uint64
	Episode     int
	Score       int
	HighScore   int
	Length      int
	MovesLeft   int
	Head        core.Coord
	Target      core.Coord
	Orientation Orientation
	Status      Status
}

// Snapshot returns the current snapshot.
func (e *Env) Snapshot() Snapshot {
	status := StatusAlive
	switch {
	case e.died:
		status = StatusReset
	case e.Completed():
		status = StatusCompleted
	}

	return Snapshot{
		Tick:        e.tick,
		Episode:     e.episode,
		Score:       e.score,
		HighScore:   e.highScore,
		Length:      e.length,
		MovesLeft:   e.movesLeft,
		Head:        e.head,
		Target:      e.target,
		Orientation: e.orientation,
		Status:      status,
	}
}
