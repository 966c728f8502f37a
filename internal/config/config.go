// Package config provides YAML-based configuration loading for the
// simulation, the learner and the front-end.
package config

import (
	"fmt"
	"time"

	"github.com/vovakirdan/snakeq/internal/core"
)

// Config contains every tunable of a session. It is passed by value to the
// environment and the learner at construction time.
type Config struct {
	Grid        GridConfig        `yaml:"grid"`
	Learner     LearnerConfig     `yaml:"learner"`
	Rewards     RewardConfig      `yaml:"rewards"`
	Runtime     RuntimeConfig     `yaml:"runtime"`
	Persistence PersistenceConfig `yaml:"persistence"`
}

// GridConfig defines the board and the origin state of every episode.
type GridConfig struct {
	Size   int        `yaml:"size"`   // Board is Size×Size cells
	Length int        `yaml:"length"` // Entity length at spawn, head included
	Spawn  core.Coord `yaml:"spawn"`  // Head position at spawn
	Target core.Coord `yaml:"target"` // Target position at spawn
}

// LearnerConfig defines the Q-learning hyper-parameters.
type LearnerConfig struct {
	Alpha    float64 `yaml:"alpha"`   // Learning rate
	Gamma    float64 `yaml:"gamma"`   // Discount factor
	Epsilon  float64 `yaml:"epsilon"` // Exploration probability while training
	Training bool    `yaml:"training"`
}

// RewardConfig defines the reward for each tick outcome.
type RewardConfig struct {
	Death   float64 `yaml:"death"`
	Eat     float64 `yaml:"eat"`
	Closer  float64 `yaml:"closer"`
	Farther float64 `yaml:"farther"`
}

// RuntimeConfig defines timing and randomness.
type RuntimeConfig struct {
	TickMS int   `yaml:"tick_ms"`
	Seed   int64 `yaml:"seed"` // 0 = random based on time
}

// PersistenceConfig defines where learned values and run history live.
type PersistenceConfig struct {
	TablePath string `yaml:"table_path"`
	DBPath    string `yaml:"db_path"`
	SaveEvery int    `yaml:"save_every"` // Episodes between table flushes, 0 = only on exit
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: invalid %s: %s", e.Field, e.Reason)
}

// MaxMoves returns the number of ticks an episode may last without eating.
func (g GridConfig) MaxMoves() int {
	return 2 * (g.Size + g.Size)
}

// SpawnBody returns the origin body, oldest segment first, trailing to the
// left of the spawn head.
func (g GridConfig) SpawnBody() []core.Coord {
	if g.Length < 1 {
		return nil
	}
	body := make([]core.Coord, 0, g.Length-1)
	for i := g.Length - 1; i >= 1; i-- {
		body = append(body, core.NewCoord(g.Spawn.Row, g.Spawn.Col-i))
	}
	return body
}

// Validate checks the grid geometry only.
func (g GridConfig) Validate() error {
	if g.Size <= 0 {
		return &ConfigError{Field: "grid.size", Reason: fmt.Sprintf("must be positive, got %d", g.Size)}
	}
	if g.Length < 1 {
		return &ConfigError{Field: "grid.length", Reason: fmt.Sprintf("must be at least 1, got %d", g.Length)}
	}
	if !g.Spawn.InBounds(g.Size) {
		return &ConfigError{Field: "grid.spawn", Reason: fmt.Sprintf("%v is outside a %dx%d grid", g.Spawn, g.Size, g.Size)}
	}
	body := g.SpawnBody()
	for _, seg := range body {
		if !seg.InBounds(g.Size) {
			return &ConfigError{Field: "grid.length", Reason: fmt.Sprintf("body segment %v leaves the grid", seg)}
		}
	}
	if !g.Target.InBounds(g.Size) {
		return &ConfigError{Field: "grid.target", Reason: fmt.Sprintf("%v is outside a %dx%d grid", g.Target, g.Size, g.Size)}
	}
	if g.Target == g.Spawn {
		return &ConfigError{Field: "grid.target", Reason: "overlaps the spawn head"}
	}
	for _, seg := range body {
		if g.Target == seg {
			return &ConfigError{Field: "grid.target", Reason: "overlaps the spawn body"}
		}
	}
	return nil
}

// Validate checks every section and returns the first problem found.
func (c Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	unit := []struct {
		field string
		value float64
	}{
		{"learner.alpha", c.Learner.Alpha},
		{"learner.gamma", c.Learner.Gamma},
		{"learner.epsilon", c.Learner.Epsilon},
	}
	for _, u := range unit {
		if u.value < 0 || u.value > 1 {
			return &ConfigError{Field: u.field, Reason: fmt.Sprintf("must be within [0, 1], got %g", u.value)}
		}
	}
	if c.Runtime.TickMS <= 0 {
		return &ConfigError{Field: "runtime.tick_ms", Reason: fmt.Sprintf("must be positive, got %d", c.Runtime.TickMS)}
	}
	if c.Persistence.SaveEvery < 0 {
		return &ConfigError{Field: "persistence.save_every", Reason: "must not be negative"}
	}
	return nil
}

// TickInterval returns the configured tick as a duration.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.Runtime.TickMS) * time.Millisecond
}
