package qlearn

import (
	"github.com/vovakirdan/snakeq/internal/registry"
	"github.com/vovakirdan/snakeq/internal/snake"
)

func init() {
	registry.Register("agent", "Q-learning agent", func(deps registry.Deps) (snake.ActionSource, error) {
		cfg := deps.Config
		l := New(cfg.Learner, cfg.Rewards, deps.Rand)
		if err := l.Load(cfg.Persistence.TablePath); err != nil {
			return nil, err
		}
		return l, nil
	})
}
