// Package qlearn implements the tabular Q-learning agent: the discrete
// state encoder, the value table and its text persistence, and the
// epsilon-greedy learner that steers the snake.
package qlearn

import (
	"fmt"
	"strings"

	"github.com/vovakirdan/snakeq/internal/snake"
)

// stateFields is the number of booleans in a State.
const stateFields = 12

// State is the discrete perception of one tick. It is comparable and used
// directly as the value table key.
type State struct {
	FoodLeft  bool
	FoodUp    bool
	FoodRight bool
	FoodDown  bool

	ObstacleLeft  bool
	ObstacleUp    bool
	ObstacleRight bool
	ObstacleDown  bool

	FacingLeft  bool
	FacingUp    bool
	FacingRight bool
	FacingDown  bool
}

// Encode maps an observation to its discrete state. Food flags compare raw
// coordinates, so two of them can be set at once when the target sits
// diagonally from the head.
func Encode(obs snake.Observation) State {
	head, target := obs.Head, obs.Target
	return State{
		FoodLeft:  head.Col > target.Col,
		FoodUp:    head.Row > target.Row,
		FoodRight: head.Col < target.Col,
		FoodDown:  head.Row < target.Row,

		ObstacleLeft:  obs.Blocked(snake.Left),
		ObstacleUp:    obs.Blocked(snake.Up),
		ObstacleRight: obs.Blocked(snake.Right),
		ObstacleDown:  obs.Blocked(snake.Down),

		FacingLeft:  obs.Orientation == snake.Left,
		FacingUp:    obs.Orientation == snake.Up,
		FacingRight: obs.Orientation == snake.Right,
		FacingDown:  obs.Orientation == snake.Down,
	}
}

func (s State) fields() [stateFields]bool {
	return [stateFields]bool{
		s.FoodLeft, s.FoodUp, s.FoodRight, s.FoodDown,
		s.ObstacleLeft, s.ObstacleUp, s.ObstacleRight, s.ObstacleDown,
		s.FacingLeft, s.FacingUp, s.FacingRight, s.FacingDown,
	}
}

func stateFromFields(f [stateFields]bool) State {
	return State{
		FoodLeft: f[0], FoodUp: f[1], FoodRight: f[2], FoodDown: f[3],
		ObstacleLeft: f[4], ObstacleUp: f[5], ObstacleRight: f[6], ObstacleDown: f[7],
		FacingLeft: f[8], FacingUp: f[9], FacingRight: f[10], FacingDown: f[11],
	}
}

// String renders the state as its table key, e.g. "True-False-...".
func (s State) String() string {
	f := s.fields()
	parts := make([]string, len(f))
	for i, v := range f {
		parts[i] = formatBool(v)
	}
	return strings.Join(parts, "-")
}

// ParseState is the inverse of State.String.
func ParseState(key string) (State, error) {
	parts := strings.Split(key, "-")
	if len(parts) != stateFields {
		return State{}, fmt.Errorf("state %q: expected %d flags, got %d", key, stateFields, len(parts))
	}
	var f [stateFields]bool
	for i, p := range parts {
		switch p {
		case "True":
			f[i] = true
		case "False":
		default:
			return State{}, fmt.Errorf("state %q: non-boolean token %q", key, p)
		}
	}
	return stateFromFields(f), nil
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
