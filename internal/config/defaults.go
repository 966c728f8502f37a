package config

import (
	_ "embed"

	"github.com/vovakirdan/snakeq/internal/core"
)

//go:embed defaults/snakeq.yaml
var defaultYAML []byte

// Default returns the built-in configuration: a 40x40 grid with the head a
// third of the way in and the target three quarters of the way across.
func Default() Config {
	const size = 40
	return Config{
		Grid: GridConfig{
			Size:   size,
			Length: 3,
			Spawn:  core.NewCoord(size/2, size/3),
			Target: core.NewCoord(size/2, (3*size)/4),
		},
		Learner: LearnerConfig{
			Alpha:    0.1,
			Gamma:    0.9,
			Epsilon:  0.1,
			Training: true,
		},
		Rewards: RewardConfig{
			Death:   -200,
			Eat:     10,
			Closer:  1,
			Farther: -1,
		},
		Runtime: RuntimeConfig{
			TickMS: 25,
		},
		Persistence: PersistenceConfig{
			TablePath: "q_values.txt",
			DBPath:    "~/.snakeq/runs.db",
			SaveEvery: 100,
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultYAML
}
