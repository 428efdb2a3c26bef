// Package sim runs one cat-and-dogs episode as a discrete tick state machine.
package sim

import (
	"fmt"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/deadend/ai"
	"github.com/pthm-cable/deadend/components"
	"github.com/pthm-cable/deadend/geom"
)

// Outcome is how an episode ended.
type Outcome uint8

const (
	Running  Outcome = iota
	Captured         // a dog touched the cat
	Reached          // the cat touched the goal with no dog on it
	TimedOut         // MaxTicks elapsed
)

func (o Outcome) String() string {
	switch o {
	case Captured:
		return "captured"
	case Reached:
		return "reached"
	case TimedOut:
		return "timed_out"
	}
	return "running"
}

// State is a copy of the episode at the end of a tick.
type State struct {
	Tick     int
	Cat      geom.Vec2
	Dogs     []geom.Vec2
	Goal     geom.Vec2
	GameOver bool
	Win      bool
	Outcome  Outcome
}

func (s State) clone() State {
	s.Dogs = slices.Clone(s.Dogs)
	return s
}

// Phase names reported to a PhaseTimer.
const (
	PhaseDecide  = "decide"
	PhaseMove    = "move"
	PhaseClamp   = "clamp"
	PhaseCollide = "collide"
)

// PhaseTimer receives tick phase boundaries. telemetry.PerfCollector implements it.
type PhaseTimer interface {
	StartTick()
	StartPhase(phase string)
	EndTick()
}

type noTimer struct{}

func (noTimer) StartTick()        {}
func (noTimer) StartPhase(string) {}
func (noTimer) EndTick()          {}

// Simulation owns the entities of one episode. It is not safe for concurrent
// use; run independent episodes on independent Simulations.
type Simulation struct {
	world   *ecs.World
	spawner *ecs.Map3[components.Body, components.Motion, components.Role]
	bodies  *ecs.Map[components.Body]
	motions *ecs.Map[components.Motion]
	movers  *ecs.Filter2[components.Body, components.Motion]
	agents  *ecs.Filter3[components.Body, components.Motion, components.Role]

	cat  ecs.Entity
	dogs []ecs.Entity
	goal ecs.Entity

	catAI ai.Decider
	dogAI ai.Decider
	opts  Options
	timer PhaseTimer

	tick    int
	outcome Outcome
	last    State
	moves   []geom.Direction
}

// New builds an episode. catAI decides for the cat, dogAI is called once
// per dog each tick.
func New(catAI, dogAI ai.Decider, opts Options) (*Simulation, error) {
	if catAI == nil || dogAI == nil {
		return nil, fmt.Errorf("%w: nil decider", ErrInvalidOptions)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	layout := DefaultLayout(opts)
	if opts.Layout != nil {
		layout = *opts.Layout
	}

	world := ecs.NewWorld()
	s := &Simulation{
		world:   world,
		spawner: ecs.NewMap3[components.Body, components.Motion, components.Role](world),
		bodies:  ecs.NewMap[components.Body](world),
		motions: ecs.NewMap[components.Motion](world),
		movers:  ecs.NewFilter2[components.Body, components.Motion](world),
		agents:  ecs.NewFilter3[components.Body, components.Motion, components.Role](world),
		catAI:   catAI,
		dogAI:   dogAI,
		opts:    opts,
		timer:   opts.Phases,
		moves:   make([]geom.Direction, opts.NumDogs+1),
	}
	if s.timer == nil {
		s.timer = noTimer{}
	}

	b := opts.Bodies
	s.cat = s.spawn(geom.Circle{Pos: layout.Cat, Radius: b.CatRadius}, b.CatSpeed, components.Role{Kind: components.KindCat})
	s.goal = s.spawn(geom.Rect{Pos: layout.Goal, Size: b.GoalSize}, 0, components.Role{Kind: components.KindGoal})
	s.dogs = make([]ecs.Entity, len(layout.Dogs))
	for i, p := range layout.Dogs {
		s.dogs[i] = s.spawn(geom.Rect{Pos: p, Size: b.DogSize}, b.DogSpeed, components.Role{Kind: components.KindDog, Index: i})
	}

	s.last = s.snapshot()
	return s, nil
}

func (s *Simulation) spawn(shape geom.Shape, speed float64, role components.Role) ecs.Entity {
	body := components.Body{Shape: shape}
	motion := components.Motion{Speed: speed}
	return s.spawner.NewEntity(&body, &motion, &role)
}

// Tick advances the episode by one step and returns the resulting state.
// Once the episode is over, Tick does nothing and returns the final state.
func (s *Simulation) Tick() State {
	if s.outcome != Running {
		return s.last.clone()
	}

	s.timer.StartTick()

	// Every decision sees the state from before anyone moved.
	s.timer.StartPhase(PhaseDecide)
	view := s.View()
	s.moves[0] = s.catAI.Decide(view)
	dogs := view.Dogs
	for i := range dogs {
		view.Self = dogs[i]
		s.moves[i+1] = s.dogAI.Decide(view)
	}

	s.timer.StartPhase(PhaseMove)
	components.Move(s.bodies.Get(s.cat), s.motions.Get(s.cat), s.moves[0])
	for i, dog := range s.dogs {
		components.Move(s.bodies.Get(dog), s.motions.Get(dog), s.moves[i+1])
	}

	s.timer.StartPhase(PhaseClamp)
	query := s.movers.Query()
	for query.Next() {
		body, _ := query.Get()
		body.Shape = geom.ClampToField(body.Shape, s.opts.Field)
	}

	s.timer.StartPhase(PhaseCollide)
	s.tick++
	s.outcome = s.resolve()
	s.timer.EndTick()

	s.last = s.snapshot()
	return s.last.clone()
}

// resolve checks collisions after every entity has moved.
// A capture beats reaching the goal on the same tick.
func (s *Simulation) resolve() Outcome {
	cat := s.bodies.Get(s.cat).Shape
	for _, dog := range s.dogs {
		if geom.Overlaps(cat, s.bodies.Get(dog).Shape) {
			return Captured
		}
	}
	if geom.Overlaps(cat, s.bodies.Get(s.goal).Shape) {
		return Reached
	}
	if s.opts.MaxTicks > 0 && s.tick >= s.opts.MaxTicks {
		return TimedOut
	}
	return Running
}

func (s *Simulation) win() bool {
	switch s.outcome {
	case Reached:
		return true
	case TimedOut:
		return s.opts.TimeoutWins
	}
	return false
}

func (s *Simulation) snapshot() State {
	v := s.View()
	st := State{
		Tick:     s.tick,
		Cat:      v.Cat.Pos(),
		Goal:     v.Goal.Pos(),
		Dogs:     make([]geom.Vec2, len(v.Dogs)),
		GameOver: s.outcome != Running,
		Win:      s.win(),
		Outcome:  s.outcome,
	}
	for i, dog := range v.Dogs {
		st.Dogs[i] = dog.Pos()
	}
	return st
}

// View returns a read-only view of the current entities with Self set to the cat.
// Dogs are ordered by their Role index, which is their spawn order.
func (s *Simulation) View() ai.View {
	v := ai.View{
		Dogs:  make([]ai.Agent, len(s.dogs)),
		Field: s.opts.Field,
	}
	query := s.agents.Query()
	for query.Next() {
		body, motion, role := query.Get()
		a := ai.Agent{Shape: body.Shape, Speed: motion.Speed}
		switch role.Kind {
		case components.KindCat:
			v.Cat = a
		case components.KindDog:
			v.Dogs[role.Index] = a
		case components.KindGoal:
			v.Goal = a
		default:
			panic("sim: entity with unknown role " + role.Kind.String())
		}
	}
	v.Self = v.Cat
	return v
}

// CurrentState returns the state without advancing the episode.
func (s *Simulation) CurrentState() State { return s.last.clone() }

// FieldSize returns the field the episode is played on.
func (s *Simulation) FieldSize() geom.Field { return s.opts.Field }

// Over reports whether the episode has ended.
func (s *Simulation) Over() bool { return s.outcome != Running }

// Outcome returns how the episode ended, or Running.
func (s *Simulation) Outcome() Outcome { return s.outcome }

// LastMoves returns the direction each entity last moved in, cat first.
func (s *Simulation) LastMoves() []geom.Direction {
	out := make([]geom.Direction, 0, len(s.dogs)+1)
	out = append(out, s.motions.Get(s.cat).LastDir)
	for _, dog := range s.dogs {
		out = append(out, s.motions.Get(dog).LastDir)
	}
	return out
}
