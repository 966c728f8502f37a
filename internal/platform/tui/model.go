package tui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snakeq/internal/core"
	"github.com/vovakirdan/snakeq/internal/snake"
	"github.com/vovakirdan/snakeq/internal/storage"
)

// Capabilities an action source may offer to the front-end.
type (
	trainable interface {
		SetTraining(on bool)
		Training() bool
	}
	keyReceiver interface {
		Press(o snake.Orientation)
	}
	persister interface {
		Persist() error
	}
)

const (
	minTickInterval = time.Millisecond
	maxTickInterval = time.Second
	deathOverlay    = 20 // Ticks the game over message stays visible
)

// Options configures a Model.
type Options struct {
	SourceID string
	Store    *storage.Store // Optional
	RunID    int64
	Logger   *log.Logger // Optional
	Runtime  core.RuntimeConfig
}

// Model is the Bubble Tea model for one environment and its action source.
type Model struct {
	env        *snake.Env
	sourceID   string
	store      *storage.Store
	runID      int64
	logger     *log.Logger
	screen     *core.Screen
	config     core.RuntimeConfig
	keys       *KeyMapper
	help       help.Model
	inputFrame core.InputFrame

	paused     bool
	quitting   bool
	episodes   int
	lastDeath  snake.EpisodeResult
	deathTicks int
	err        error
}

// NewModel creates a new Bubble Tea model around env. The environment's
// action source decides who steers.
func NewModel(env *snake.Env, opts Options) Model {
	cfg := opts.Runtime
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = core.DefaultConfig().TickInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return Model{
		env:        env,
		sourceID:   opts.SourceID,
		store:      opts.Store,
		runID:      opts.RunID,
		logger:     logger,
		screen:     core.NewScreen(cfg.ScreenW, max(cfg.ScreenH-1, 1)),
		config:     cfg,
		keys:       NewKeyMapper(),
		help:       help.New(),
		inputFrame: core.NewInputFrame(),
	}
}

// Init starts the tick loop.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.config.TickInterval)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.config.ScreenW = msg.Width
		m.config.ScreenH = msg.Height
		m.screen.Resize(msg.Width, max(msg.Height-1, 1))
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		return m.handleTick()
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+s" {
		m.saveScreenshot()
		return m, nil
	}

	action := m.keys.MapKey(msg)
	switch {
	case action == core.ActionQuit:
		m.shutdown()
		m.quitting = true
		return m, tea.Quit

	case action.IsSteering():
		// Presses go straight to the source so none is lost between ticks
		if kr, ok := m.env.Source().(keyReceiver); ok {
			if o, ok := Orientation(action); ok {
				kr.Press(o)
			}
		}

	case action != core.ActionNone:
		m.inputFrame.Set(action)
	}

	return m, nil
}

// handleTick applies the buffered actions and advances the simulation.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}
	m.applyFrame()
	m.inputFrame.Clear()

	if m.paused || m.env.Completed() {
		return m, tickCmd(m.config.TickInterval)
	}

	m.env.Tick()
	if m.deathTicks > 0 {
		m.deathTicks--
	}

	if m.env.Died() {
		res, _ := m.env.LastEpisode()
		m.episodes++
		m.lastDeath = res
		m.deathTicks = deathOverlay
		m.logger.Debug("episode finished", "episode", res.Episode, "score", res.Score, "cause", res.Cause)

		if m.store != nil && m.runID != 0 {
			if _, err := m.store.SaveEpisode(storage.NewEpisodeRecord(m.runID, res)); err != nil {
				m.logger.Warn("could not save episode", "error", err)
			}
		}
	}

	if m.env.Completed() {
		m.logger.Info("grid filled", "length", m.env.Length())
	}

	return m, tickCmd(m.config.TickInterval)
}

// applyFrame handles the non-steering actions pressed since the last tick.
func (m *Model) applyFrame() {
	if m.inputFrame.Has(core.ActionPause) {
		m.paused = !m.paused
	}
	if m.inputFrame.Has(core.ActionToggleTraining) {
		if tr, ok := m.env.Source().(trainable); ok {
			tr.SetTraining(!tr.Training())
			m.logger.Info("training toggled", "training", tr.Training())
		}
	}
	if m.inputFrame.Has(core.ActionFaster) {
		m.config.TickInterval = core.Clamp(m.config.TickInterval/2, minTickInterval, maxTickInterval)
	}
	if m.inputFrame.Has(core.ActionSlower) {
		m.config.TickInterval = core.Clamp(m.config.TickInterval*2, minTickInterval, maxTickInterval)
	}
}

// shutdown flushes the source and closes the run.
func (m *Model) shutdown() {
	if p, ok := m.env.Source().(persister); ok {
		if err := p.Persist(); err != nil {
			m.logger.Error("could not save table", "error", err)
			m.err = err
		} else {
			m.logger.Info("table saved")
		}
	}
	if m.store != nil && m.runID != 0 {
		if err := m.store.FinishRun(m.runID, m.episodes, m.env.HighScore()); err != nil {
			m.logger.Warn("could not finish run", "error", err)
		}
	}
}

// saveScreenshot saves the board as text.
func (m *Model) saveScreenshot() {
	dir := filepath.Join(os.Getenv("HOME"), ".snakeq", "screenshots")
	//nolint:errcheck // Best-effort directory creation
	os.MkdirAll(dir, 0o755)

	timestamp := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.txt", m.sourceID, timestamp))

	//nolint:errcheck // Best-effort save, session continues regardless
	os.WriteFile(path, []byte(m.env.String()), 0o600)
}

// hud is the status line above the board.
func (m Model) hud() string {
	training := "-"
	if tr, ok := m.env.Source().(trainable); ok {
		training = "off"
		if tr.Training() {
			training = "on"
		}
	}
	return fmt.Sprintf("%s  score %d  best %d  moves %d  episode %d  training %s  tick %s",
		m.sourceID,
		m.env.Score(),
		m.env.HighScore(),
		m.env.MovesLeft(),
		m.env.Episode(),
		training,
		m.config.TickInterval,
	)
}

// render draws the HUD, the board and any overlay into the screen buffer.
func (m Model) render() {
	m.screen.Clear()

	bw, bh := m.env.BoardSize()
	if m.screen.Width() < bw || m.screen.Height() < bh+1 {
		m.screen.DrawTextCentered(m.screen.Height()/2,
			fmt.Sprintf("Terminal too small: need %dx%d", bw, bh+2))
		return
	}

	m.screen.DrawTextColored(0, 0, m.hud(), core.ColorCyan)

	x := (m.screen.Width() - bw) / 2
	m.env.Render(m.screen, x, 1)

	mid := 1 + bh/2
	switch {
	case m.env.Completed():
		m.screen.DrawTextCentered(mid, " COMPLETED ")
	case m.paused:
		m.screen.DrawTextCentered(mid, " PAUSED ")
	case m.deathTicks > 0:
		msg := fmt.Sprintf(" GAME OVER (%s) score %d ", m.lastDeath.Cause, m.lastDeath.Score)
		m.screen.DrawTextColored((m.screen.Width()-len(msg))/2, mid, msg, core.ColorYellow)
	}
}

// View renders the current state to a string for display.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	m.render()
	return RenderScreen(m.screen) + "\n" + m.help.View(m.keys.Keys())
}

// Err returns the error of the shutdown flush, if any.
func (m Model) Err() error {
	return m.err
}

// Run starts the Bubble Tea program with the given model.
func Run(env *snake.Env, opts Options) error {
	p := tea.NewProgram(
		NewModel(env, opts),
		tea.WithAltScreen(),
	)

	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return fm.Err()
	}
	return nil
}
