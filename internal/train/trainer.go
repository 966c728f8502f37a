// Package train runs the learner against the environment without a
// front-end and reports progress once per finished episode.
package train

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snakeq/internal/export"
	"github.com/vovakirdan/snakeq/internal/qlearn"
	"github.com/vovakirdan/snakeq/internal/snake"
	"github.com/vovakirdan/snakeq/internal/storage"
)

const (
	StatusEpisode   = "episode"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed" // The entity filled the grid
)

// meanWindow is the number of recent episodes averaged in snapshots.
const meanWindow = 100

// EpisodeRecorder stores finished episodes.
type EpisodeRecorder interface {
	SaveEpisode(rec storage.EpisodeRecord) (int64, error)
}

// TraceWriter receives one row per tick.
type TraceWriter interface {
	WriteTrace(row export.TraceRow) error
}

// Snapshot reports progress after an episode or at the end of a run.
type Snapshot struct {
	Status     string
	Episode    int // Number of finished episodes
	Score      int
	Length     int
	Ticks      int
	Cause      snake.DeathCause
	HighScore  int
	MeanScore  float64 // Over the last meanWindow episodes
	States     int     // Visited states in the table
	TotalTicks uint64
}

// Trainer drives one environment with one learner on a single goroutine.
type Trainer struct {
	env     *snake.Env
	learner *qlearn.Learner
	logger  *log.Logger

	episodes  int // 0 = until cancelled
	saveEvery int
	runID     int64
	recorder  EpisodeRecorder
	trace     TraceWriter

	finished int
	recent   []int
	sum      int
	errs     []error
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithEpisodes stops the run after n finished episodes.
func WithEpisodes(n int) Option {
	return func(t *Trainer) { t.episodes = n }
}

// WithSaveEvery persists the table every n finished episodes.
func WithSaveEvery(n int) Option {
	return func(t *Trainer) { t.saveEvery = n }
}

// WithRecorder stores every finished episode under runID.
func WithRecorder(r EpisodeRecorder, runID int64) Option {
	return func(t *Trainer) {
		t.recorder = r
		t.runID = runID
	}
}

// WithTrace writes every tick to w.
func WithTrace(w TraceWriter) Option {
	return func(t *Trainer) { t.trace = w }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// NewTrainer attaches the learner to the environment as its action source.
func NewTrainer(env *snake.Env, learner *qlearn.Learner, opts ...Option) *Trainer {
	t := &Trainer{
		env:     env,
		learner: learner,
		logger:  log.New(io.Discard),
		recent:  make([]int, 0, meanWindow),
	}
	for _, opt := range opts {
		opt(t)
	}
	env.SetSource(learner)
	return t
}

// Run ticks the environment until the episode limit is reached, the grid is
// filled or ctx is cancelled. The channel is closed after the final snapshot;
// the table is persisted before that.
func (t *Trainer) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		status := t.loop(ctx, out)
		t.save("final")
		out <- t.snapshot(status)
	}()
	return out
}

func (t *Trainer) loop(ctx context.Context, out chan<- Snapshot) string {
	for {
		select {
		case <-ctx.Done():
			return StatusCancelled
		default:
		}

		episode := t.env.Episode()
		t.env.Tick()
		t.writeTrace(episode)

		if t.env.Completed() {
			t.logger.Info("grid filled", "episode", episode, "length", t.env.Length())
			return StatusCompleted
		}
		if !t.env.Died() {
			continue
		}

		res, _ := t.env.LastEpisode()
		t.finishEpisode(res)

		snap := t.snapshot(StatusEpisode)
		snap.Score, snap.Length, snap.Ticks, snap.Cause = res.Score, res.Length, res.Ticks, res.Cause
		select {
		case out <- snap:
		case <-ctx.Done():
			return StatusCancelled
		}

		if t.saveEvery > 0 && t.finished%t.saveEvery == 0 {
			t.save("periodic")
			t.logger.Info("progress",
				"episodes", t.finished,
				"high", t.env.HighScore(),
				"mean", snap.MeanScore,
				"states", snap.States,
			)
		}
		if t.episodes > 0 && t.finished >= t.episodes {
			return StatusDone
		}
	}
}

func (t *Trainer) finishEpisode(res snake.EpisodeResult) {
	t.finished++
	t.track(res.Score)

	t.logger.Debug("episode finished",
		"episode", res.Episode,
		"score", res.Score,
		"ticks", res.Ticks,
		"cause", res.Cause,
	)

	if t.recorder != nil {
		if _, err := t.recorder.SaveEpisode(storage.NewEpisodeRecord(t.runID, res)); err != nil {
			t.fail(err)
		}
	}
}

// track adds a score to the moving window.
func (t *Trainer) track(score int) {
	if len(t.recent) == meanWindow {
		t.sum -= t.recent[0]
		t.recent = t.recent[1:]
	}
	t.recent = append(t.recent, score)
	t.sum += score
}

func (t *Trainer) writeTrace(episode int) {
	if t.trace == nil {
		return
	}
	tr := t.learner.LastTransition()
	row := export.TraceRow{
		Run:     t.runID,
		Episode: int32(episode),
		Tick:    int64(t.env.Ticks()),
		State:   tr.State.String(),
		Action:  int32(tr.Action),
		Reward:  t.learner.Reward(t.env.Observe()),
		Died:    t.env.Died(),
		Ate:     t.env.AteTarget(),
		Score:   int32(t.env.Score()),
	}
	if err := t.trace.WriteTrace(row); err != nil {
		t.fail(err)
		t.trace = nil
	}
}

func (t *Trainer) save(reason string) {
	if err := t.learner.Persist(); err != nil {
		t.fail(err)
		return
	}
	if path := t.learner.Path(); path != "" {
		t.logger.Info("table saved", "reason", reason, "path", path, "states", t.learner.Table().Len())
	}
}

func (t *Trainer) fail(err error) {
	t.logger.Error("training side effect failed", "error", err)
	t.errs = append(t.errs, err)
}

func (t *Trainer) snapshot(status string) Snapshot {
	s := Snapshot{
		Status:     status,
		Episode:    t.finished,
		HighScore:  t.env.HighScore(),
		States:     t.learner.Table().Len(),
		TotalTicks: t.env.Ticks(),
	}
	if len(t.recent) > 0 {
		s.MeanScore = float64(t.sum) / float64(len(t.recent))
	}
	return s
}

// Err returns the persistence, recording and trace errors of the run. It is
// meaningful once the Run channel is closed.
func (t *Trainer) Err() error {
	return errors.Join(t.errs...)
}
