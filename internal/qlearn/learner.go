package qlearn

import (
	"math/rand"
	"time"

	"github.com/vovakirdan/snakeq/internal/config"
	"github.com/vovakirdan/snakeq/internal/snake"
)

// Action is a turn relative to the current orientation.
type Action int

const (
	TurnLeft  Action = -1
	Straight  Action = 0
	TurnRight Action = 1
)

// Actions lists the relative actions in table index order.
func Actions() []Action {
	return []Action{TurnLeft, Straight, TurnRight}
}

// Index returns the table column of the action.
func (a Action) Index() int {
	return int(a) + 1
}

// ActionAt is the inverse of Index.
func ActionAt(index int) Action {
	return Action(index - 1)
}

func (a Action) String() string {
	switch a {
	case TurnLeft:
		return "left"
	case Straight:
		return "straight"
	case TurnRight:
		return "right"
	default:
		return "unknown"
	}
}

// Transition describes what the learner did on its last tick.
type Transition struct {
	State   State
	Action  Action
	Reward  float64 // Reward credited to the previous action
	Updated bool    // Whether the table was updated this tick
}

// Learner is an epsilon-greedy tabular Q-learning agent. It implements
// snake.ActionSource and remembers only its previous (state, action) pair.
type Learner struct {
	params   config.LearnerConfig
	rewards  config.RewardConfig
	rng      *rand.Rand
	table    *Table
	training bool
	path     string

	prevState  State
	prevAction Action
	hasPrev    bool
	last       Transition
}

// New creates a learner with an empty table. A nil rng is seeded from the
// clock.
func New(params config.LearnerConfig, rewards config.RewardConfig, rng *rand.Rand) *Learner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Learner{
		params:   params,
		rewards:  rewards,
		rng:      rng,
		table:    NewTable(),
		training: params.Training,
	}
}

// ChooseAction picks the action for s: a uniform random one with probability
// epsilon while training, otherwise the best known one.
func (l *Learner) ChooseAction(s State) Action {
	values := l.table.LookupOrInsertDefault(s)
	if l.training && l.rng.Float64() < l.params.Epsilon {
		return ActionAt(l.rng.Intn(NumActions))
	}
	return ActionAt(values.Best())
}

// Reward scores the outcome of the last tick.
func (l *Learner) Reward(obs snake.Observation) float64 {
	switch {
	case obs.Died:
		return l.rewards.Death
	case obs.AteTarget:
		return l.rewards.Eat
	case obs.GotCloser:
		return l.rewards.Closer
	default:
		return l.rewards.Farther
	}
}

// Update applies the Bellman update to (s, a) given the reward and the best
// value reachable from the next state.
func (l *Learner) Update(s State, a Action, reward, nextMax float64) {
	values := l.table.LookupOrInsertDefault(s)
	q := values[a.Index()]
	q += l.params.Alpha * (reward + l.params.Gamma*nextMax - q)
	l.table.Set(s, a.Index(), q)
}

// NextOrientation observes the environment, credits the previous action
// while training and returns the orientation for the next move.
func (l *Learner) NextOrientation(obs snake.Observation) (snake.Orientation, bool) {
	s := Encode(obs)
	action := l.ChooseAction(s)

	t := Transition{State: s, Action: action}
	if l.hasPrev {
		t.Reward = l.Reward(obs)
		if l.training {
			next, _ := l.table.Lookup(s)
			l.Update(l.prevState, l.prevAction, t.Reward, next.Max())
			t.Updated = true
		}
	}

	l.prevState, l.prevAction, l.hasPrev = s, action, true
	l.last = t
	return obs.Orientation.Turn(int(action)), true
}

// Forget drops the remembered previous step, e.g. when the learner is
// attached to a fresh environment.
func (l *Learner) Forget() {
	l.hasPrev = false
	l.last = Transition{}
}

// LastTransition returns what happened on the last NextOrientation call.
func (l *Learner) LastTransition() Transition {
	return l.last
}

// SetTraining switches exploration and table updates on or off.
func (l *Learner) SetTraining(on bool) {
	l.training = on
}

// Training reports whether the learner explores and updates its table.
func (l *Learner) Training() bool {
	return l.training
}

// Table returns the live value table.
func (l *Learner) Table() *Table {
	return l.table
}

// SetTable replaces the value table.
func (l *Learner) SetTable(t *Table) {
	l.table = t
}

// Path returns the file the table is persisted to.
func (l *Learner) Path() string {
	return l.path
}

// Load reads the table from path and remembers path for Persist. On a
// *FormatError the current table is kept and the caller decides whether to
// continue with it.
func (l *Learner) Load(path string) error {
	l.path = path
	t, err := ReadTableFile(path)
	if err != nil {
		return err
	}
	l.table = t
	return nil
}

// Persist writes the table back to the path given to Load. It does nothing
// when no path was set.
func (l *Learner) Persist() error {
	if l.path == "" {
		return nil
	}
	return WriteTableFile(l.path, l.table)
}
