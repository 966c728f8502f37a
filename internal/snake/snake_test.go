package snake

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/vovakirdan/snakeq/internal/config"
	"github.com/vovakirdan/snakeq/internal/core"
)

func testGrid() config.GridConfig {
	return config.GridConfig{
		Size:   15,
		Length: 3,
		Spawn:  core.NewCoord(7, 4),
		Target: core.NewCoord(7, 10),
	}
}

func newTestEnv(t *testing.T, seed int64) *Env {
	t.Helper()
	e, err := New(testGrid(), rand.New(rand.NewSource(seed)), nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return e
}

func TestOriginState(t *testing.T) {
	e := newTestEnv(t, 1)

	if e.Head() != core.NewCoord(7, 4) {
		t.Errorf("Head = %v, expected (7,4)", e.Head())
	}
	body := e.Body()
	if len(body) != 2 || body[0] != core.NewCoord(7, 2) || body[1] != core.NewCoord(7, 3) {
		t.Errorf("Body = %v, expected [(7,2) (7,3)]", body)
	}
	if len(body) != e.Length()-1 {
		t.Errorf("len(body) = %d, expected length-1 = %d", len(body), e.Length()-1)
	}
	if e.Orientation() != Right || e.PreviousOrientation() != Right {
		t.Errorf("Orientation = %v/%v, expected right/right", e.Orientation(), e.PreviousOrientation())
	}
	if e.MaxMoves() != 60 || e.MovesLeft() != 60 {
		t.Errorf("moves = %d/%d, expected 60/60", e.MovesLeft(), e.MaxMoves())
	}
}

func TestNewRejectsInvalidGrid(t *testing.T) {
	grid := testGrid()
	grid.Size = 0

	_, err := New(grid, nil, nil)
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("New() = %v, expected *config.ConfigError", err)
	}
}

func TestNormalMove(t *testing.T) {
	e := newTestEnv(t, 2)
	movesBefore := e.MovesLeft()

	e.Step()

	if e.Head() != core.NewCoord(7, 5) {
		t.Errorf("Head = %v, expected (7,5)", e.Head())
	}
	body := e.Body()
	if len(body) != 2 || body[0] != core.NewCoord(7, 3) || body[1] != core.NewCoord(7, 4) {
		t.Errorf("Body = %v, expected [(7,3) (7,4)]", body)
	}
	if e.MovesLeft() != movesBefore-1 {
		t.Errorf("MovesLeft = %d, expected %d", e.MovesLeft(), movesBefore-1)
	}
	if !e.GotCloser() {
		t.Error("moving right toward (7,10) should get closer")
	}
	if e.Died() || e.AteTarget() {
		t.Errorf("flags died=%v ate=%v, expected both false", e.Died(), e.AteTarget())
	}
}

func TestGotFartherAway(t *testing.T) {
	e := newTestEnv(t, 3)
	e.SetOrientation(Up)
	e.Step()

	if e.GotCloser() {
		t.Error("moving up away from a target on the same row should not get closer")
	}
}

func TestReversalGuard(t *testing.T) {
	e := newTestEnv(t, 4)
	head, body, moves := e.Head(), e.Body(), e.MovesLeft()
	e.gotCloser = true // Left over from an earlier move

	e.SetOrientation(Left) // Opposite of the previous Right
	e.Step()

	if e.Head() != head {
		t.Errorf("Head moved to %v on a reversal", e.Head())
	}
	if got := e.Body(); len(got) != len(body) || got[0] != body[0] || got[1] != body[1] {
		t.Errorf("Body changed to %v on a reversal", got)
	}
	if e.MovesLeft() != moves {
		t.Errorf("MovesLeft = %d, expected %d", e.MovesLeft(), moves)
	}
	if e.Orientation() != Right {
		t.Errorf("Orientation = %v, expected right restored", e.Orientation())
	}
	if e.Died() {
		t.Error("a refused reversal must not kill")
	}
	if obs := e.Observe(); obs.GotCloser || obs.AteTarget || obs.Died {
		t.Errorf("a refused reversal must clear the outcome flags, got %+v", obs)
	}

	// The next step moves normally
	e.Step()
	if e.Head() != head.Add(core.NewCoord(0, 1)) {
		t.Errorf("Head = %v after the guard, expected one cell right", e.Head())
	}
}

func TestMoveBudgetDeath(t *testing.T) {
	e := newTestEnv(t, 5)
	e.score = 4
	e.movesLeft = 1

	e.Step()

	if !e.Died() {
		t.Fatal("exhausted move budget should kill")
	}
	last, ok := e.LastEpisode()
	if !ok || last.Cause != CauseHunger || last.Score != 4 {
		t.Errorf("LastEpisode = %+v, %v", last, ok)
	}
	assertOrigin(t, e)
	if e.HighScore() != 4 {
		t.Errorf("HighScore = %d, expected 4", e.HighScore())
	}
}

func TestWallCollision(t *testing.T) {
	e := newTestEnv(t, 6)
	e.head = core.NewCoord(0, 5)
	e.body = []core.Coord{core.NewCoord(0, 3), core.NewCoord(0, 4)}
	e.SetOrientation(Up)

	e.Step()

	if !e.Died() {
		t.Fatal("stepping off the top row should kill")
	}
	if e.GotCloser() {
		t.Error("gotCloser must be cleared on death")
	}
	if last, _ := e.LastEpisode(); last.Cause != CauseWall {
		t.Errorf("Cause = %q, expected wall", last.Cause)
	}
	assertOrigin(t, e)
}

func TestSelfCollision(t *testing.T) {
	e := newTestEnv(t, 7)
	// Head at (5,5) heading down into its own body at (6,5)
	e.head = core.NewCoord(5, 5)
	e.body = []core.Coord{
		core.NewCoord(6, 4),
		core.NewCoord(6, 5),
		core.NewCoord(6, 6),
		core.NewCoord(5, 6),
	}
	e.length = 5
	e.orientation = Down
	e.previous = Left

	e.Step()

	if !e.Died() {
		t.Fatal("moving onto the body should kill")
	}
	if last, _ := e.LastEpisode(); last.Cause != CauseBody || last.Length != 5 {
		t.Errorf("LastEpisode = %+v", last)
	}
	assertOrigin(t, e)
}

func TestDiedFlagLastsOneTick(t *testing.T) {
	e := newTestEnv(t, 8)
	e.movesLeft = 1
	e.Step()
	if !e.Died() {
		t.Fatal("expected died on the fatal tick")
	}

	e.Step()
	if e.Died() {
		t.Error("died flag should be cleared at the start of the next step")
	}
	if e.Episode() != 2 {
		t.Errorf("Episode = %d, expected 2", e.Episode())
	}
}

func TestGrowth(t *testing.T) {
	e := newTestEnv(t, 9)
	e.target = core.NewCoord(7, 5)
	e.movesLeft = 10

	e.Step()

	if !e.AteTarget() || !e.GotCloser() {
		t.Errorf("flags ate=%v closer=%v, expected both true", e.AteTarget(), e.GotCloser())
	}
	if e.Length() != 4 || e.Score() != 1 {
		t.Errorf("Length=%d Score=%d, expected 4 and 1", e.Length(), e.Score())
	}
	body := e.Body()
	if len(body) != 3 || body[2] != core.NewCoord(7, 4) {
		t.Errorf("Body = %v, expected old head appended", body)
	}
	if e.MovesLeft() != e.MaxMoves() {
		t.Errorf("MovesLeft = %d, expected refill to %d", e.MovesLeft(), e.MaxMoves())
	}

	// The flag only describes the tick it happened on
	e.target = core.NewCoord(0, 0)
	e.Step()
	if e.AteTarget() {
		t.Error("ateTarget should be cleared on the next step")
	}
}

func TestTargetRespawnValidity(t *testing.T) {
	e := newTestEnv(t, 999)

	// A body that covers most of the grid leaves few free cells
	e.head = core.NewCoord(0, 0)
	e.body = e.body[:0]
	for r := 0; r < e.Size(); r++ {
		for c := 0; c < e.Size(); c++ {
			p := core.NewCoord(r, c)
			if p != e.head && (r+c)%5 != 0 {
				e.body = append(e.body, p)
			}
		}
	}

	for i := 0; i < 500; i++ {
		e.spawnTarget()

		if e.Target() == e.Head() {
			t.Fatalf("iteration %d: target spawned on head %v", i, e.Target())
		}
		if e.onBody(e.Target()) {
			t.Fatalf("iteration %d: target spawned on body %v", i, e.Target())
		}
		if !e.Target().InBounds(e.Size()) {
			t.Fatalf("iteration %d: target out of bounds %v", i, e.Target())
		}
	}
}

func TestCompletedGrid(t *testing.T) {
	grid := config.GridConfig{
		Size:   2,
		Length: 2,
		Spawn:  core.NewCoord(0, 1),
		Target: core.NewCoord(1, 1),
	}
	e, err := New(grid, rand.New(rand.NewSource(1)), nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	e.SetOrientation(Down)
	e.Step()
	if !e.AteTarget() || e.Target() != core.NewCoord(1, 0) {
		t.Fatalf("expected to eat and respawn on the only free cell, target=%v", e.Target())
	}
	if e.Completed() {
		t.Fatal("grid is not full yet")
	}

	e.SetOrientation(Left)
	e.Step()
	if !e.Completed() {
		t.Fatalf("Length = %d, expected the grid to be full", e.Length())
	}
	if e.Target() != offGrid {
		t.Errorf("Target = %v, expected off-grid", e.Target())
	}
	if e.Snapshot().Status != StatusCompleted {
		t.Errorf("Status = %q, expected completed", e.Snapshot().Status)
	}
}

func TestHighScoreMonotonic(t *testing.T) {
	e := newTestEnv(t, 10)
	scores := []int{3, 1, 5, 0, 2}
	best := 0

	for _, s := range scores {
		e.score = s
		e.movesLeft = 1
		e.Step()
		if !e.Died() {
			t.Fatal("expected death")
		}
		best = max(best, s)
		if e.HighScore() != best {
			t.Errorf("HighScore = %d after score %d, expected %d", e.HighScore(), s, best)
		}
		if e.Score() != 0 {
			t.Errorf("Score = %d, expected reset to 0", e.Score())
		}
	}
}

func TestDeterminism(t *testing.T) {
	e1 := newTestEnv(t, 12345)
	e2 := newTestEnv(t, 12345)

	turns := map[int]Orientation{3: Down, 6: Right, 9: Up, 12: Right}
	for i := 0; i < 200; i++ {
		if o, ok := turns[i%15]; ok {
			e1.SetOrientation(o)
			e2.SetOrientation(o)
		}
		e1.Step()
		e2.Step()
	}

	if e1.Snapshot() != e2.Snapshot() {
		t.Errorf("snapshots differ:\n%+v\n%+v", e1.Snapshot(), e2.Snapshot())
	}
}

func TestSetOrientationIgnoresUnknown(t *testing.T) {
	e := newTestEnv(t, 11)
	e.SetOrientation(Orientation(42))
	if e.Orientation() != Right {
		t.Errorf("Orientation = %v, expected unchanged", e.Orientation())
	}
}

func TestKeyboardSource(t *testing.T) {
	k := NewKeyboardSource()
	e, err := New(testGrid(), rand.New(rand.NewSource(1)), k)
	if err != nil {
		t.Fatal(err)
	}

	k.Press(Orientation(-1)) // Ignored
	k.Press(Down)
	k.Press(Up) // Second press in the same tick is dropped
	e.Tick()

	if e.Head() != core.NewCoord(8, 4) {
		t.Errorf("Head = %v, expected (8,4) after pressing down", e.Head())
	}

	// No press: keep going down
	e.Tick()
	if e.Head() != core.NewCoord(9, 4) {
		t.Errorf("Head = %v, expected (9,4)", e.Head())
	}
}

func TestObservationBlocked(t *testing.T) {
	obs := Observation{
		Size: 5,
		Head: core.NewCoord(0, 2),
		Body: []core.Coord{core.NewCoord(0, 1), core.NewCoord(1, 1)},
	}

	tests := []struct {
		dir      Orientation
		expected bool
	}{
		{Up, true},    // Top wall
		{Left, true},  // Body
		{Right, false},
		{Down, false},
	}
	for _, tc := range tests {
		t.Run(tc.dir.String(), func(t *testing.T) {
			if got := obs.Blocked(tc.dir); got != tc.expected {
				t.Errorf("Blocked(%v) = %v, expected %v", tc.dir, got, tc.expected)
			}
		})
	}
}

func TestOrientationTurn(t *testing.T) {
	tests := []struct {
		o        Orientation
		steps    int
		expected Orientation
	}{
		{Left, -1, Down},
		{Left, 1, Up},
		{Down, 1, Left},
		{Right, 0, Right},
		{Up, 2, Down},
	}
	for _, tc := range tests {
		if got := tc.o.Turn(tc.steps); got != tc.expected {
			t.Errorf("%v.Turn(%d) = %v, expected %v", tc.o, tc.steps, got, tc.expected)
		}
	}
	if Left.Opposite() != Right || Up.Opposite() != Down {
		t.Error("Opposite() should be a half turn")
	}
}

func TestString(t *testing.T) {
	e := newTestEnv(t, 13)
	lines := strings.Split(strings.TrimRight(e.String(), "\n"), "\n")
	if len(lines) != 15 {
		t.Fatalf("expected 15 rows, got %d", len(lines))
	}
	if lines[7] != strings.Repeat("_ ", 2)+"b b s "+strings.Repeat("_ ", 5)+"a "+strings.Repeat("_ ", 4) {
		t.Errorf("row 7 = %q", lines[7])
	}
}

func TestRender(t *testing.T) {
	e := newTestEnv(t, 14)
	w, h := e.BoardSize()
	screen := core.NewScreen(w, h)
	e.Render(screen, 0, 0)

	if screen.Get(0, 0) != '┌' {
		t.Errorf("expected border corner, got %q", screen.Get(0, 0))
	}
	head := screen.GetCell(1+4*CellWidth, 1+7)
	if head.Rune != '█' || head.Color != core.ColorBrightGreen {
		t.Errorf("head cell = %+v", head)
	}
	target := screen.GetCell(1+10*CellWidth, 1+7)
	if target.Color != core.ColorRed {
		t.Errorf("target cell = %+v", target)
	}
}

func assertOrigin(t *testing.T, e *Env) {
	t.Helper()
	grid := testGrid()
	if e.Head() != grid.Spawn {
		t.Errorf("Head = %v, expected origin %v", e.Head(), grid.Spawn)
	}
	if e.Length() != grid.Length || len(e.Body()) != grid.Length-1 {
		t.Errorf("Length = %d body = %v, expected origin", e.Length(), e.Body())
	}
	if e.Target() != grid.Target {
		t.Errorf("Target = %v, expected origin %v", e.Target(), grid.Target)
	}
	if e.Orientation() != Right || e.PreviousOrientation() != Right {
		t.Errorf("Orientation = %v, expected right", e.Orientation())
	}
	if e.Score() != 0 {
		t.Errorf("Score = %d, expected 0", e.Score())
	}
	if e.MovesLeft() != e.MaxMoves() {
		t.Errorf("MovesLeft = %d, expected %d", e.MovesLeft(), e.MaxMoves())
	}
}
