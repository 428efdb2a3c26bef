package telemetry

import (
	"errors"
	"testing"

	"github.com/pthm-cable/deadend/ai"
	"github.com/pthm-cable/deadend/geom"
	"github.com/pthm-cable/deadend/sim"
)

var field16 = geom.Field{Width: 16, Height: 16}

func TestDataLoggerRequiresOpenEpisode(t *testing.T) {
	l := NewDataLogger(DefaultParams())

	if err := l.GameTicked(sim.State{}); !errors.Is(err, ErrNoEpisode) {
		t.Errorf("GameTicked before start: %v", err)
	}
	if err := l.GameEnded(true); !errors.Is(err, ErrNoEpisode) {
		t.Errorf("GameEnded before start: %v", err)
	}

	if err := l.GameStarted(field16, []geom.Vec2{{X: 1, Y: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := l.GameEnded(false); err != nil {
		t.Fatal(err)
	}
	if err := l.GameEnded(false); !errors.Is(err, ErrNoEpisode) {
		t.Errorf("second GameEnded: %v", err)
	}
}

func TestDataLoggerRejectsInvalidStart(t *testing.T) {
	l := NewDataLogger(DefaultParams())

	if err := l.GameStarted(field16, nil); !errors.Is(err, ErrInvalidEpisode) {
		t.Errorf("no dogs: %v", err)
	}
	if err := l.GameStarted(geom.Field{Width: 0, Height: 4}, []geom.Vec2{{}}); !errors.Is(err, ErrInvalidEpisode) {
		t.Errorf("bad field: %v", err)
	}
}

func TestDataLoggerCountsVisits(t *testing.T) {
	l := NewDataLogger(DefaultParams())
	if err := l.GameStarted(field16, make([]geom.Vec2, 2)); err != nil {
		t.Fatal(err)
	}

	ticks := []sim.State{
		{Dogs: []geom.Vec2{{X: 3.2, Y: 4.6}, {X: 16, Y: 16}}},
		{Dogs: []geom.Vec2{{X: 3.4, Y: 5.1}, {X: 2.5, Y: 0.5}}},
		{Dogs: []geom.Vec2{{X: 3, Y: 5}, {X: -1, Y: 0}}, Outcome: sim.Captured},
	}
	for _, st := range ticks {
		if err := l.GameTicked(st); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.GameEnded(false); err != nil {
		t.Fatal(err)
	}

	eps := l.Episodes()
	if len(eps) != 1 {
		t.Fatalf("episodes = %d", len(eps))
	}
	ep := eps[0]
	if ep.Ticks != 3 || ep.Outcome != sim.Captured || ep.Won {
		t.Errorf("episode = %+v", ep)
	}

	rows, cols := ep.Visits[0].Dims()
	if rows != 16 || cols != 16 {
		t.Fatalf("grid = %dx%d, want 16x16", rows, cols)
	}
	if got := ep.Visits[0].At(5, 3); got != 3 {
		t.Errorf("dog 0 cell (row 5, col 3) = %v, want 3", got)
	}
	// Out-of-range positions clamp to the edge; halves round to even.
	if got := ep.Visits[1].At(15, 15); got != 1 {
		t.Errorf("dog 1 far corner = %v, want 1", got)
	}
	if got := ep.Visits[1].At(0, 2); got != 1 {
		t.Errorf("dog 1 (2.5, 0.5) = %v, want 1 at (0, 2)", got)
	}
	if got := ep.Visits[1].At(0, 0); got != 1 {
		t.Errorf("dog 1 origin = %v, want 1", got)
	}
}

func TestDataLoggerDogCountMismatch(t *testing.T) {
	l := NewDataLogger(DefaultParams())
	if err := l.GameStarted(field16, make([]geom.Vec2, 2)); err != nil {
		t.Fatal(err)
	}
	if err := l.GameTicked(sim.State{Dogs: make([]geom.Vec2, 3)}); !errors.Is(err, ErrInvalidEpisode) {
		t.Errorf("err = %v, want ErrInvalidEpisode", err)
	}
}

func TestDataLoggerRestartDiscardsOpenEpisode(t *testing.T) {
	l := NewDataLogger(DefaultParams())
	l.GameStarted(field16, make([]geom.Vec2, 1))
	l.GameTicked(sim.State{Dogs: make([]geom.Vec2, 1)})

	l.GameStarted(field16, make([]geom.Vec2, 1))
	l.GameEnded(true)

	eps := l.Episodes()
	if len(eps) != 1 || eps[0].Ticks != 0 {
		t.Errorf("episodes = %+v, want one empty episode", eps)
	}
}

// playEpisode drives one full episode through the logger.
func playEpisode(t *testing.T, l *DataLogger, cat, dog ai.Decider, opts sim.Options) {
	t.Helper()
	s, err := sim.New(cat, dog, opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.GameStarted(s.FieldSize(), s.CurrentState().Dogs); err != nil {
		t.Fatal(err)
	}
	for !s.Over() {
		if err := l.GameTicked(s.Tick()); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.GameEnded(s.CurrentState().Win); err != nil {
		t.Fatal(err)
	}
}

func TestDataLoggerStats(t *testing.T) {
	l := NewDataLogger(DefaultParams())
	opts := sim.DefaultOptions()
	opts.MaxTicks = 60

	playEpisode(t, l, ai.Idle, ai.Follow{}, opts)
	playEpisode(t, l, ai.Exit{}, ai.Idle, opts)

	st := l.Stats(DefaultExponents())
	if st.Episodes != 2 {
		t.Errorf("episodes = %d, want 2", st.Episodes)
	}
	if st.Interest != 0 {
		t.Errorf("interest with two episodes = %v, want 0", st.Interest)
	}

	playEpisode(t, l, ai.NewRandom(3), ai.Follow{}, opts)
	st = l.Stats(DefaultExponents())
	if st.Episodes != 3 {
		t.Fatalf("episodes = %d, want 3", st.Episodes)
	}
	if st.Interest <= 0 || st.Interest > 1.5 {
		t.Errorf("interest = %v, want a positive score", st.Interest)
	}

	wins := 0
	for _, ep := range l.Episodes() {
		if ep.Won {
			wins++
		}
	}
	if st.Wins != wins {
		t.Errorf("wins = %d, want %d", st.Wins, wins)
	}
}

func TestDataLoggerMergeAndTrial(t *testing.T) {
	a := NewDataLogger(DefaultParams())
	b := NewDataLogger(DefaultParams())
	opts := sim.DefaultOptions()
	opts.MaxTicks = 40

	playEpisode(t, a, ai.Idle, ai.Follow{}, opts)
	playEpisode(t, b, ai.Exit{}, ai.Idle, opts)
	playEpisode(t, b, ai.Idle, ai.Idle, opts)

	first := a.Episodes()[0]
	a.Merge(b)

	eps := a.Episodes()
	if len(eps) != 3 {
		t.Fatalf("merged episodes = %d, want 3", len(eps))
	}
	if eps[0].Ticks != first.Ticks {
		t.Error("merge reordered existing episodes")
	}

	tr := a.Trial(DefaultExponents())
	if tr.Episodes != 3 {
		t.Errorf("trial episodes = %d", tr.Episodes)
	}
	if tr.Captures+tr.Reached+tr.Timeouts != 3 {
		t.Errorf("outcome counts %d+%d+%d do not add up", tr.Captures, tr.Reached, tr.Timeouts)
	}
	// Nobody moves in the idle/idle episode, so it can only time out.
	if eps[2].Outcome != sim.TimedOut || eps[2].Ticks != 40 {
		t.Errorf("idle episode = %+v", eps[2])
	}
	if tr.Interest != a.Stats(DefaultExponents()).Interest {
		t.Error("trial interest disagrees with Stats")
	}
}
