package sim

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/pthm-cable/deadend/ai"
	"github.com/pthm-cable/deadend/geom"
)

// recorder counts calls and always answers with the same direction.
type recorder struct {
	dir   geom.Direction
	views []ai.View
}

func (r *recorder) Decide(v ai.View) geom.Direction {
	r.views = append(r.views, v)
	return r.dir
}

func always(d geom.Direction) ai.Decider {
	return ai.DeciderFunc(func(ai.View) geom.Direction { return d })
}

func mustNew(t *testing.T, cat, dog ai.Decider, opts Options) *Simulation {
	t.Helper()
	s, err := New(cat, dog, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func allInside(t *testing.T, s *Simulation) {
	t.Helper()
	v := s.View()
	field := s.FieldSize()
	shapes := []geom.Shape{v.Cat.Shape, v.Goal.Shape}
	for _, d := range v.Dogs {
		shapes = append(shapes, d.Shape)
	}
	for _, sh := range shapes {
		if !geom.Inside(sh, field) {
			t.Fatalf("shape %+v outside field %+v", sh, field)
		}
	}
}

func TestNewDefaultLayout(t *testing.T) {
	s := mustNew(t, ai.Idle, ai.Idle, DefaultOptions())
	st := s.CurrentState()

	if len(st.Dogs) != 4 {
		t.Fatalf("dogs = %d, want 4", len(st.Dogs))
	}
	if st.GameOver || st.Win || st.Tick != 0 {
		t.Errorf("fresh state = %+v", st)
	}
	if st.Cat != (geom.Vec2{X: 8, Y: 15.25}) {
		t.Errorf("cat = %+v, want flush with bottom center", st.Cat)
	}
	if st.Goal != (geom.Vec2{X: 8, Y: 1}) {
		t.Errorf("goal = %+v, want flush with top center", st.Goal)
	}
	// Spacing is width/(N+1), offset by half a space.
	for i, want := range []float64{1.6, 4.8, 8, 11.2} {
		if d := st.Dogs[i]; math.Abs(d.X-want) > 1e-9 || d.Y != 3 {
			t.Errorf("dog %d = %+v, want (%v, 3)", i, d, want)
		}
	}
	allInside(t, s)
}

func TestViewFollowsRoles(t *testing.T) {
	opts := DefaultOptions()
	opts.NumDogs = 7
	layout := RandomLayout(rand.New(rand.NewSource(11)), opts)
	opts.Layout = &layout
	s := mustNew(t, ai.Idle, ai.Idle, opts)

	v := s.View()
	if v.Cat.Pos() != layout.Cat || v.Self != v.Cat {
		t.Errorf("cat = %+v, self = %+v, want cat at %v", v.Cat, v.Self, layout.Cat)
	}
	if v.Goal.Pos() != layout.Goal || v.Goal.Speed != 0 {
		t.Errorf("goal = %+v, want still at %v", v.Goal, layout.Goal)
	}
	if len(v.Dogs) != len(layout.Dogs) {
		t.Fatalf("dogs = %d, want %d", len(v.Dogs), len(layout.Dogs))
	}
	for i, d := range v.Dogs {
		if d.Pos() != layout.Dogs[i] || d.Speed != opts.Bodies.DogSpeed {
			t.Errorf("dog %d = %+v, want spawn %d at %v", i, d, i, layout.Dogs[i])
		}
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero width", func(o *Options) { o.Field.Width = 0 }},
		{"negative height", func(o *Options) { o.Field.Height = -4 }},
		{"no dogs", func(o *Options) { o.NumDogs = 0 }},
		{"negative cat speed", func(o *Options) { o.Bodies.CatSpeed = -1 }},
		{"negative dog speed", func(o *Options) { o.Bodies.DogSpeed = -0.1 }},
		{"zero radius", func(o *Options) { o.Bodies.CatRadius = 0 }},
		{"goal wider than field", func(o *Options) { o.Bodies.GoalSize.X = 20 }},
		{"negative max ticks", func(o *Options) { o.MaxTicks = -1 }},
		{"layout dog count", func(o *Options) { o.Layout = &Layout{Dogs: make([]geom.Vec2, 2)} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			tc.mutate(&opts)
			_, err := New(ai.Idle, ai.Idle, opts)
			if !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("err = %v, want ErrInvalidOptions", err)
			}
		})
	}

	if _, err := New(nil, ai.Idle, DefaultOptions()); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("nil decider: err = %v", err)
	}
}

func TestTickCallsEachAIOncePerEntity(t *testing.T) {
	cat := &recorder{dir: geom.Left}
	dog := &recorder{dir: geom.Left}
	s := mustNew(t, cat, dog, DefaultOptions())
	before := s.CurrentState()

	s.Tick()

	if len(cat.views) != 1 {
		t.Errorf("cat AI calls = %d, want 1", len(cat.views))
	}
	if len(dog.views) != 4 {
		t.Fatalf("dog AI calls = %d, want 4", len(dog.views))
	}

	// All decisions see the pre-move state.
	if cat.views[0].Self.Pos() != before.Cat {
		t.Errorf("cat self = %+v, want %+v", cat.views[0].Self.Pos(), before.Cat)
	}
	for i, v := range dog.views {
		if v.Self.Pos() != before.Dogs[i] {
			t.Errorf("dog %d self = %+v, want %+v", i, v.Self.Pos(), before.Dogs[i])
		}
		if v.Cat.Pos() != before.Cat {
			t.Errorf("dog %d saw cat at %+v, want %+v", i, v.Cat.Pos(), before.Cat)
		}
		for j, d := range v.Dogs {
			if d.Pos() != before.Dogs[j] {
				t.Errorf("dog %d saw dog %d at %+v, want %+v", i, j, d.Pos(), before.Dogs[j])
			}
		}
	}
}

func TestTickMovesAndRecordsDirections(t *testing.T) {
	s := mustNew(t, always(geom.Up), always(geom.Down), DefaultOptions())
	before := s.CurrentState()
	st := s.Tick()

	wantCat := before.Cat.Add(geom.Vec2{Y: -1.5})
	if st.Cat != wantCat {
		t.Errorf("cat = %+v, want %+v", st.Cat, wantCat)
	}
	for i := range st.Dogs {
		want := before.Dogs[i].Add(geom.Vec2{Y: 1.125})
		if st.Dogs[i] != want {
			t.Errorf("dog %d = %+v, want %+v", i, st.Dogs[i], want)
		}
	}
	if st.Tick != 1 {
		t.Errorf("tick = %d, want 1", st.Tick)
	}

	moves := s.LastMoves()
	if moves[0] != geom.Up || moves[1] != geom.Down {
		t.Errorf("last moves = %v", moves)
	}
}

func TestTickClampsToField(t *testing.T) {
	opts := DefaultOptions()
	opts.NumDogs = 1
	opts.Layout = &Layout{
		Cat:  geom.Vec2{X: 8, Y: 15.25},
		Dogs: []geom.Vec2{{X: 15, Y: 5}},
		Goal: geom.Vec2{X: 8, Y: 1},
	}
	s := mustNew(t, always(geom.Down), always(geom.Right), opts)

	st := s.Tick()
	if st.Cat.Y != 15.25 {
		t.Errorf("cat y = %v, want flush at 15.25", st.Cat.Y)
	}
	if st.Dogs[0].X != 15.25 {
		t.Errorf("dog x = %v, want flush at 15.25", st.Dogs[0].X)
	}
	allInside(t, s)
}

func TestTickStaysInsideRandomWalk(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		opts := DefaultOptions()
		opts.MaxTicks = 200
		opts.Layout = ptr(RandomLayout(rand.New(rand.NewSource(seed)), opts))
		s := mustNew(t, ai.NewRandom(seed), ai.NewRandom(seed+100), opts)

		for !s.Over() {
			s.Tick()
			allInside(t, s)
		}
	}
}

func TestTickWinAndFreeze(t *testing.T) {
	opts := DefaultOptions()
	opts.NumDogs = 1
	// Cat sits just right of the goal; one step left reaches it.
	opts.Layout = &Layout{
		Cat:  geom.Vec2{X: 12, Y: 1},
		Dogs: []geom.Vec2{{X: 2, Y: 14}},
		Goal: geom.Vec2{X: 8, Y: 1},
	}
	s := mustNew(t, always(geom.Left), ai.Idle, opts)

	st := s.Tick()
	if !st.GameOver || !st.Win || st.Outcome != Reached {
		t.Fatalf("state = %+v, want reached win", st)
	}

	for i := 0; i < 3; i++ {
		again := s.Tick()
		if !reflect.DeepEqual(st, again) {
			t.Fatalf("post-terminal tick changed state: %+v -> %+v", st, again)
		}
	}
}

func TestTickCapture(t *testing.T) {
	opts := DefaultOptions()
	opts.NumDogs = 1
	opts.Layout = &Layout{
		Cat:  geom.Vec2{X: 4.5, Y: 8},
		Dogs: []geom.Vec2{{X: 2.5, Y: 8}},
		Goal: geom.Vec2{X: 8, Y: 1},
	}
	s := mustNew(t, always(geom.Left), ai.Idle, opts)

	st := s.Tick()
	if !st.GameOver || st.Win || st.Outcome != Captured {
		t.Fatalf("state = %+v, want capture", st)
	}
}

func TestTickCaptureBeatsGoal(t *testing.T) {
	opts := DefaultOptions()
	opts.NumDogs = 1
	// Cat and dog both step into the goal's corner on the same tick.
	opts.Layout = &Layout{
		Cat:  geom.Vec2{X: 12, Y: 1},
		Dogs: []geom.Vec2{{X: 12, Y: 1}},
		Goal: geom.Vec2{X: 8, Y: 1},
	}
	s := mustNew(t, always(geom.Left), always(geom.Left), opts)

	st := s.Tick()
	if !st.GameOver {
		t.Fatal("episode should be over")
	}
	if st.Win || st.Outcome != Captured {
		t.Errorf("state = %+v, want loss by capture", st)
	}
}

func TestTimeoutPolicy(t *testing.T) {
	for _, wins := range []bool{true, false} {
		opts := DefaultOptions()
		opts.MaxTicks = 3
		opts.TimeoutWins = wins
		s := mustNew(t, ai.Idle, ai.Idle, opts)

		s.Tick()
		if st := s.Tick(); st.GameOver {
			t.Fatalf("over after 2 ticks: %+v", st)
		}
		st := s.Tick()
		if !st.GameOver || st.Outcome != TimedOut || st.Win != wins {
			t.Errorf("TimeoutWins=%v: state = %+v", wins, st)
		}
	}
}

func TestStateDoesNotAlias(t *testing.T) {
	s := mustNew(t, ai.Idle, ai.Idle, DefaultOptions())
	st := s.CurrentState()
	st.Dogs[0] = geom.Vec2{X: -100, Y: -100}

	if s.CurrentState().Dogs[0] == st.Dogs[0] {
		t.Error("mutating a returned state changed the simulation")
	}
}

func TestIndependentSimulations(t *testing.T) {
	a := mustNew(t, always(geom.Up), ai.Idle, DefaultOptions())
	b := mustNew(t, always(geom.Down), ai.Idle, DefaultOptions())
	a.Tick()
	b.Tick()
	if a.CurrentState().Cat == b.CurrentState().Cat {
		t.Error("simulations share state")
	}
}

func TestRandomLayoutWithinBounds(t *testing.T) {
	opts := DefaultOptions()
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 100; i++ {
		l := RandomLayout(rng, opts)
		if len(l.Dogs) != opts.NumDogs {
			t.Fatalf("dogs = %d", len(l.Dogs))
		}
		for _, d := range l.Dogs {
			r := geom.NewRect(d.X, d.Y, opts.Bodies.DogSize.X, opts.Bodies.DogSize.Y)
			if !geom.Inside(r, opts.Field) || d.Y > opts.Field.Height/2 {
				t.Fatalf("dog at %+v outside the upper half", d)
			}
		}
		if !geom.Inside(geom.NewCircle(l.Cat.X, l.Cat.Y, opts.Bodies.CatRadius), opts.Field) {
			t.Fatalf("cat at %+v outside field", l.Cat)
		}
	}
}

type phaseLog struct{ phases []string }

func (p *phaseLog) StartTick()              { p.phases = append(p.phases, "start") }
func (p *phaseLog) StartPhase(phase string) { p.phases = append(p.phases, phase) }
func (p *phaseLog) EndTick()                { p.phases = append(p.phases, "end") }

func TestPhaseTimer(t *testing.T) {
	log := &phaseLog{}
	opts := DefaultOptions()
	opts.Phases = log
	s := mustNew(t, ai.Idle, ai.Idle, opts)
	s.Tick()

	want := []string{"start", PhaseDecide, PhaseMove, PhaseClamp, PhaseCollide, "end"}
	if !reflect.DeepEqual(log.phases, want) {
		t.Errorf("phases = %v, want %v", log.phases, want)
	}
}

func ptr[T any](v T) *T { return &v }
