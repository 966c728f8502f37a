package tui

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/snakeq/internal/config"
	"github.com/vovakirdan/snakeq/internal/core"
	"github.com/vovakirdan/snakeq/internal/qlearn"
	"github.com/vovakirdan/snakeq/internal/snake"
	"github.com/vovakirdan/snakeq/internal/storage"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Grid = config.GridConfig{Size: 10, Length: 3, Spawn: core.NewCoord(5, 3), Target: core.NewCoord(5, 7)}
	return cfg
}

func newTestModel(t *testing.T, src snake.ActionSource, opts Options) Model {
	t.Helper()
	env, err := snake.New(testConfig().Grid, rand.New(rand.NewSource(1)), src)
	if err != nil {
		t.Fatalf("snake.New() failed: %v", err)
	}
	if opts.Runtime.ScreenW == 0 {
		opts.Runtime = core.DefaultConfig()
	}
	return NewModel(env, opts)
}

func press(m Model, msg tea.KeyMsg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func tick(m Model) Model {
	next, _ := m.Update(TickMsg(time.Now()))
	return next.(Model)
}

func TestMapKey(t *testing.T) {
	km := NewKeyMapper()
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want core.Action
	}{
		{"arrow up", tea.KeyMsg{Type: tea.KeyUp}, core.ActionUp},
		{"w", runeKey('w'), core.ActionUp},
		{"s", runeKey('s'), core.ActionDown},
		{"arrow left", tea.KeyMsg{Type: tea.KeyLeft}, core.ActionLeft},
		{"d", runeKey('d'), core.ActionRight},
		{"pause", runeKey('p'), core.ActionPause},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, core.ActionPause},
		{"training", runeKey('t'), core.ActionToggleTraining},
		{"faster", runeKey('+'), core.ActionFaster},
		{"faster alt", runeKey('='), core.ActionFaster},
		{"slower", runeKey('-'), core.ActionSlower},
		{"quit", runeKey('q'), core.ActionQuit},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}, core.ActionQuit},
		{"unbound", runeKey('z'), core.ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := km.MapKey(tt.msg); got != tt.want {
				t.Errorf("MapKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrientation(t *testing.T) {
	cases := map[core.Action]snake.Orientation{
		core.ActionUp:    snake.Up,
		core.ActionDown:  snake.Down,
		core.ActionLeft:  snake.Left,
		core.ActionRight: snake.Right,
	}
	for a, want := range cases {
		got, ok := Orientation(a)
		if !ok || got != want {
			t.Errorf("Orientation(%v) = %v, %v; want %v", a, got, ok, want)
		}
	}
	if _, ok := Orientation(core.ActionPause); ok {
		t.Error("pause is not a steering action")
	}
}

func TestModelSteering(t *testing.T) {
	m := newTestModel(t, snake.NewKeyboardSource(), Options{SourceID: "human"})

	m = press(m, runeKey('w'))
	m = tick(m)

	if got := m.env.Head(); got != core.NewCoord(4, 3) {
		t.Errorf("head = %v, expected to move up to (4,3)", got)
	}
	if m.env.Orientation() != snake.Up {
		t.Errorf("orientation = %v, expected up", m.env.Orientation())
	}
}

func TestModelPause(t *testing.T) {
	m := newTestModel(t, snake.NewKeyboardSource(), Options{})

	m = press(m, runeKey('p'))
	m = tick(m)
	if !m.paused {
		t.Fatal("expected the model to be paused")
	}
	if m.env.Ticks() != 0 {
		t.Errorf("paused model advanced to tick %d", m.env.Ticks())
	}

	m = press(m, runeKey('p'))
	m = tick(m)
	if m.paused || m.env.Ticks() != 1 {
		t.Errorf("paused=%v ticks=%d after resuming", m.paused, m.env.Ticks())
	}
}

func TestModelSpeed(t *testing.T) {
	m := newTestModel(t, nil, Options{})
	start := m.config.TickInterval

	m = press(m, runeKey('+'))
	m = tick(m)
	if m.config.TickInterval != start/2 {
		t.Errorf("interval = %v, expected %v", m.config.TickInterval, start/2)
	}

	for i := 0; i < 20; i++ {
		m = press(m, runeKey('-'))
		m = tick(m)
	}
	if m.config.TickInterval != maxTickInterval {
		t.Errorf("interval = %v, expected the cap %v", m.config.TickInterval, maxTickInterval)
	}

	for i := 0; i < 40; i++ {
		m = press(m, runeKey('+'))
		m = tick(m)
	}
	if m.config.TickInterval != minTickInterval {
		t.Errorf("interval = %v, expected the floor %v", m.config.TickInterval, minTickInterval)
	}
}

func TestModelToggleTraining(t *testing.T) {
	cfg := testConfig()
	l := qlearn.New(cfg.Learner, cfg.Rewards, rand.New(rand.NewSource(1)))
	l.SetTraining(true)
	m := newTestModel(t, l, Options{SourceID: "agent"})

	m = press(m, runeKey('t'))
	m = tick(m)
	if l.Training() {
		t.Error("training should be off after the toggle")
	}
	if !strings.Contains(m.hud(), "training off") {
		t.Errorf("hud = %q", m.hud())
	}

	// The keyboard source cannot train
	h := newTestModel(t, snake.NewKeyboardSource(), Options{})
	if !strings.Contains(h.hud(), "training -") {
		t.Errorf("hud = %q", h.hud())
	}
}

func TestModelQuitPersistsTable(t *testing.T) {
	cfg := testConfig()
	path := filepath.Join(t.TempDir(), "q_values.txt")
	l := qlearn.New(cfg.Learner, cfg.Rewards, rand.New(rand.NewSource(1)))
	if err := l.Load(path); err != nil {
		t.Fatal(err)
	}
	m := newTestModel(t, l, Options{SourceID: "agent"})
	for i := 0; i < 5; i++ {
		m = tick(m)
	}

	next, cmd := m.Update(runeKey('q'))
	m = next.(Model)
	if !m.quitting || cmd == nil {
		t.Fatal("expected the model to quit")
	}
	if m.Err() != nil {
		t.Fatalf("Err() = %v", m.Err())
	}
	back, err := qlearn.ReadTableFile(path)
	if err != nil {
		t.Fatalf("ReadTableFile() failed: %v", err)
	}
	if back.Len() == 0 || !back.Equal(l.Table()) {
		t.Errorf("persisted table has %d states, live one %d", back.Len(), l.Table().Len())
	}
	if m.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestModelRecordsEpisodes(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	runID, err := store.StartRun("human", testConfig())
	if err != nil {
		t.Fatal(err)
	}

	m := newTestModel(t, snake.NewKeyboardSource(), Options{SourceID: "human", Store: store, RunID: runID})
	for i := 0; i < 100 && m.episodes == 0; i++ {
		m = tick(m)
	}
	if m.episodes != 1 {
		t.Fatalf("no episode finished, episodes = %d", m.episodes)
	}
	if m.deathTicks != deathOverlay {
		t.Errorf("deathTicks = %d, expected %d", m.deathTicks, deathOverlay)
	}
	if !strings.Contains(m.View(), "GAME OVER") {
		t.Error("view should show the game over overlay")
	}

	eps, err := store.TopEpisodes("human", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(eps) != 1 || eps[0].RunID != runID || eps[0].Cause != string(snake.CauseWall) {
		t.Errorf("episodes = %+v", eps)
	}

	m = press(m, runeKey('q'))
	runs, err := store.RecentRuns(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Episodes != 1 {
		t.Errorf("runs = %+v", runs)
	}
}

func TestModelView(t *testing.T) {
	m := newTestModel(t, nil, Options{SourceID: "human"})
	view := m.View()
	if !strings.Contains(view, "human  score 0") {
		t.Errorf("view is missing the hud:\n%s", view)
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 10, Height: 5})
	m = next.(Model)
	if !strings.Contains(m.View(), "small") {
		t.Errorf("expected a too-small message:\n%s", m.View())
	}
}

func TestRenderScreen(t *testing.T) {
	s := core.NewScreen(6, 2)
	s.DrawText(0, 0, "ab")
	s.SetColored(3, 0, 'x', core.ColorRed)
	s.DrawText(0, 1, "cd")

	lines := strings.Split(RenderScreen(s), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, want := range []string{"ab", "x"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line 0 = %q, missing %q", lines[0], want)
		}
	}
	if !strings.Contains(lines[1], "cd") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestScoreboardWithoutStore(t *testing.T) {
	m := NewScoreboardModel(nil, 100, 30)
	if m.sources[0].ID != "" {
		t.Errorf("first source = %+v, expected all sources", m.sources[0])
	}
	if !strings.Contains(m.View(), "No database available.") {
		t.Errorf("view:\n%s", m.View())
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(ScoreboardModel)
	if m.cursor != 1 {
		t.Errorf("cursor = %d after tab", m.cursor)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	next, _ = next.(ScoreboardModel).Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(ScoreboardModel)
	if m.cursor != len(m.sources)-1 {
		t.Errorf("cursor = %d, expected wrap to %d", m.cursor, len(m.sources)-1)
	}
}

func TestScoreboardLoadsEpisodes(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	runID, err := store.StartRun("agent", testConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i, score := range []int{3, 9, 1} {
		rec := storage.NewEpisodeRecord(runID, snake.EpisodeResult{Episode: i + 1, Score: score, Length: 3 + score, Ticks: 40, Cause: snake.CauseBody})
		if _, err := store.SaveEpisode(rec); err != nil {
			t.Fatal(err)
		}
	}

	m := NewScoreboardModel(store, 120, 30)
	rows := m.table.Rows()
	if len(rows) != 3 {
		t.Fatalf("table has %d rows, expected 3", len(rows))
	}
	if rows[0][0] != "#1" || rows[0][1] != "9" {
		t.Errorf("first row = %v", rows[0])
	}
	if !strings.Contains(m.View(), "Sources") {
		t.Error("wide layout should show the source sidebar")
	}
}

func TestSaveScreenshot(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	m := newTestModel(t, nil, Options{SourceID: "human"})

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlS})

	files, err := filepath.Glob(filepath.Join(home, ".snakeq", "screenshots", "human_*.txt"))
	if err != nil || len(files) != 1 {
		t.Fatalf("screenshots = %v, %v", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != m.env.String() {
		t.Errorf("screenshot differs from the board dump")
	}
}

func TestSSHSessionIsFrozenCopy(t *testing.T) {
	shared := qlearn.NewTable()
	shared.Set(qlearn.State{FoodRight: true, FacingRight: true}, qlearn.Straight.Index(), 2.5)
	srv := &SSHServer{config: SSHServerConfig{Config: testConfig()}, table: shared}

	env, learner, err := srv.newSession(7)
	if err != nil {
		t.Fatalf("newSession() failed: %v", err)
	}
	if learner.Training() {
		t.Error("session learners must not train")
	}
	if env.Source() != snake.ActionSource(learner) {
		t.Error("the learner should steer the session environment")
	}
	if !learner.Table().Equal(shared) {
		t.Fatal("session table should start as a copy of the shared one")
	}

	learner.Table().Set(qlearn.State{}, 0, 1)
	if shared.Len() != 1 {
		t.Error("changing a session table leaked into the shared table")
	}
	if learner.Path() != "" {
		t.Error("session learners must not persist")
	}
}
