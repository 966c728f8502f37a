// Package snake implements the grid environment the learner is trained in:
// an entity that moves one cell per tick, grows when it reaches the target
// and restarts from its origin when it dies.
package snake

import (
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/vovakirdan/snakeq/internal/config"
	"github.com/vovakirdan/snakeq/internal/core"
)

// DeathCause tells why an episode ended.
type DeathCause string

const (
	CauseNone   DeathCause = ""
	CauseWall   DeathCause = "wall"
	CauseBody   DeathCause = "body"
	CauseHunger DeathCause = "moves"
)

// offGrid marks the target once no free cell is left.
var offGrid = core.NewCoord(-1, -1)

// EpisodeResult summarises a finished episode.
type EpisodeResult struct {
	Episode int
	Score   int
	Length  int
	Ticks   int
	Cause   DeathCause
}

// Env is the simulation. It is never destroyed: a death resets it to its
// origin state and a new episode starts on the next tick.
type Env struct {
	grid   config.GridConfig
	rng    *rand.Rand
	source ActionSource

	head        core.Coord
	body        []core.Coord // Oldest segment first, head excluded
	length      int
	orientation Orientation
	previous    Orientation
	target      core.Coord

	movesLeft int
	maxMoves  int
	score     int
	highScore int

	// Outcome of the current tick
	died      bool
	ateTarget bool
	gotCloser bool

	tick         uint64
	episode      int
	episodeTicks int
	last         EpisodeResult
	hasLast      bool
}

// New creates an environment in its origin state. A nil rng is seeded from
// the clock; a nil source leaves steering to SetOrientation.
func New(grid config.GridConfig, rng *rand.Rand, source ActionSource) (*Env, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e := &Env{
		grid:     grid,
		rng:      rng,
		source:   source,
		maxMoves: grid.MaxMoves(),
		episode:  1,
	}
	e.restore()
	return e, nil
}

// restore puts every per-episode field back to its origin value.
func (e *Env) restore() {
	e.head = e.grid.Spawn
	e.body = e.grid.SpawnBody()
	e.length = e.grid.Length
	e.target = e.grid.Target
	e.orientation = Right
	e.previous = Right
	e.score = 0
	e.movesLeft = e.maxMoves
	e.episodeTicks = 0
}

// SetSource replaces the action source.
func (e *Env) SetSource(src ActionSource) {
	e.source = src
}

// Source returns the current action source, possibly nil.
func (e *Env) Source() ActionSource {
	return e.source
}

// SetOrientation steers the entity for the next step.
// Unknown orientations are ignored.
func (e *Env) SetOrientation(o Orientation) {
	if !o.Valid() {
		return
	}
	e.orientation = o
}

// Tick lets the action source steer, then advances the simulation one step.
func (e *Env) Tick() {
	if e.source != nil {
		if o, ok := e.source.NextOrientation(e.Observe()); ok {
			e.SetOrientation(o)
		}
	}
	e.Step()
}

// Step advances the simulation by one tick.
func (e *Env) Step() {
	e.died = false
	e.ateTarget = false
	e.tick++

	candidate := e.head.Add(e.orientation.Delta())

	// A half-turn into the neck is refused without moving and sets no flag
	if e.orientation == e.previous.Opposite() {
		e.orientation = e.previous
		e.gotCloser = false
		return
	}
	e.previous = e.orientation
	e.episodeTicks++

	switch {
	case !candidate.InBounds(e.grid.Size):
		e.die(CauseWall)
	case e.onBody(candidate):
		e.die(CauseBody)
	case e.movesLeft == 1:
		e.die(CauseHunger)
	case candidate == e.target:
		e.eat(candidate)
	default:
		e.advance(candidate)
	}
}

// die records the episode and resets to the origin.
func (e *Env) die(cause DeathCause) {
	e.died = true
	e.gotCloser = false
	e.last = EpisodeResult{
		Episode: e.episode,
		Score:   e.score,
		Length:  e.length,
		Ticks:   e.episodeTicks,
		Cause:   cause,
	}
	e.hasLast = true
	e.highScore = max(e.highScore, e.score)
	e.episode++
	e.restore()
}

// eat grows the entity onto the target and respawns it.
func (e *Env) eat(candidate core.Coord) {
	e.ateTarget = true
	e.gotCloser = true
	e.body = append(e.body, e.head)
	e.head = candidate
	e.length++
	e.score++
	e.movesLeft = e.maxMoves
	e.spawnTarget()
}

// advance shifts the body one cell toward the candidate head.
func (e *Env) advance(candidate core.Coord) {
	e.movesLeft--
	e.gotCloser = e.head.Dist(e.target) > candidate.Dist(e.target)
	if len(e.body) > 0 {
		e.body = append(e.body[1:], e.head)
	}
	e.head = candidate
}

// spawnTarget places the target uniformly on a cell free of head and body.
func (e *Env) spawnTarget() {
	occupied := make(map[core.Coord]bool, len(e.body)+1)
	occupied[e.head] = true
	for _, seg := range e.body {
		occupied[seg] = true
	}

	free := make([]core.Coord, 0, e.grid.Size*e.grid.Size-len(occupied))
	for r := 0; r < e.grid.Size; r++ {
		for c := 0; c < e.grid.Size; c++ {
			p := core.NewCoord(r, c)
			if !occupied[p] {
				free = append(free, p)
			}
		}
	}

	if len(free) == 0 {
		e.target = offGrid
		return
	}
	e.target = free[e.rng.Intn(len(free))]
}

func (e *Env) onBody(p core.Coord) bool {
	return slices.Contains(e.body, p)
}

// Observe captures what the learner and the front-end may read.
func (e *Env) Observe() Observation {
	return Observation{
		Size:        e.grid.Size,
		Head:        e.head,
		Body:        slices.Clone(e.body),
		Target:      e.target,
		Orientation: e.orientation,
		Died:        e.died,
		AteTarget:   e.ateTarget,
		GotCloser:   e.gotCloser,
	}
}

// Completed reports whether the entity fills the whole grid.
func (e *Env) Completed() bool {
	return e.length == e.grid.Size*e.grid.Size
}

// LastEpisode returns the most recently finished episode.
func (e *Env) LastEpisode() (EpisodeResult, bool) {
	return e.last, e.hasLast
}

func (e *Env) Head() core.Coord         { return e.head }
func (e *Env) Body() []core.Coord       { return slices.Clone(e.body) }
func (e *Env) Target() core.Coord       { return e.target }
func (e *Env) Length() int              { return e.length }
func (e *Env) Orientation() Orientation { return e.orientation }
func (e *Env) Score() int               { return e.score }
func (e *Env) HighScore() int           { return e.highScore }
func (e *Env) MovesLeft() int           { return e.movesLeft }
func (e *Env) MaxMoves() int            { return e.maxMoves }
func (e *Env) Died() bool               { return e.died }
func (e *Env) AteTarget() bool          { return e.ateTarget }
func (e *Env) GotCloser() bool          { return e.gotCloser }
func (e *Env) Size() int                { return e.grid.Size }
func (e *Env) Episode() int             { return e.episode }
func (e *Env) Ticks() uint64            { return e.tick }

// PreviousOrientation returns the orientation of the last completed move.
func (e *Env) PreviousOrientation() Orientation {
	return e.previous
}

// String draws the board as text: a target, b body, s head, _ empty.
func (e *Env) String() string {
	var b strings.Builder
	for r := 0; r < e.grid.Size; r++ {
		for c := 0; c < e.grid.Size; c++ {
			p := core.NewCoord(r, c)
			switch {
			case p == e.target:
				b.WriteByte('a')
			case e.onBody(p):
				b.WriteByte('b')
			case p == e.head:
				b.WriteByte('s')
			default:
				b.WriteByte('_')
			}
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
