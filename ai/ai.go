// Package ai provides decision functions that pick a movement direction for
// an agent from a read-only view of the episode.
package ai

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/pthm-cable/deadend/geom"
)

// Agent is the public state of one entity as seen by an AI.
type Agent struct {
	Shape geom.Shape
	Speed float64
}

// Pos returns the agent's center.
func (a Agent) Pos() geom.Vec2 { return a.Shape.Center() }

// View is the snapshot passed to a Decider. Self is the entity being moved
// and is also present in Cat or Dogs. Deciders must not modify Dogs.
type View struct {
	Self  Agent
	Cat   Agent
	Dogs  []Agent
	Goal  Agent
	Field geom.Field
}

// Decider chooses the next move for one entity. Implementations must always
// return a direction and must be safe to call once per entity per tick.
type Decider interface {
	Decide(v View) geom.Direction
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(v View) geom.Direction

func (f DeciderFunc) Decide(v View) geom.Direction { return f(v) }

// Idle never moves.
var Idle = DeciderFunc(func(View) geom.Direction { return geom.None })

// Random picks one of the four directions uniformly.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a random decider with its own seeded source.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Decide(View) geom.Direction {
	return geom.Candidates[r.rng.Intn(len(geom.Candidates))]
}

// Follow chases the cat greedily, closing the larger axis gap first.
type Follow struct{}

func (Follow) Decide(v View) geom.Direction {
	return toward(v.Self.Pos(), v.Cat.Pos())
}

// Exit heads straight for the goal along the larger axis gap.
type Exit struct{}

func (Exit) Decide(v View) geom.Direction {
	return toward(v.Self.Pos(), v.Goal.Pos())
}

// toward returns the axis move that reduces the larger of the two gaps.
// Horizontal wins ties; a zero gap returns None.
func toward(from, to geom.Vec2) geom.Direction {
	d := to.Sub(from)
	if d.X == 0 && d.Y == 0 {
		return geom.None
	}
	if math.Abs(d.X) >= math.Abs(d.Y) {
		if d.X > 0 {
			return geom.Right
		}
		return geom.Left
	}
	if d.Y > 0 {
		return geom.Down
	}
	return geom.Up
}

// Params holds tunables for the named strategies.
type Params struct {
	Potential PotentialField
}

// Factory builds a fresh decider. Each Simulation gets its own instance so
// stateful deciders are never shared between goroutines.
type Factory func(seed int64) Decider

var registry = map[string]func(p Params) Factory{
	"random": func(Params) Factory {
		return func(seed int64) Decider { return NewRandom(seed) }
	},
	"follow": func(Params) Factory {
		return func(int64) Decider { return Follow{} }
	},
	"exit": func(Params) Factory {
		return func(int64) Decider { return Exit{} }
	},
	"potential": func(p Params) Factory {
		pf := p.Potential
		return func(int64) Decider { return pf }
	},
	"idle": func(Params) Factory {
		return func(int64) Decider { return Idle }
	},
}

// New returns a factory for the named strategy.
func New(name string, p Params) (Factory, error) {
	mk, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("ai: unknown strategy %q (known: %v)", name, Names())
	}
	return mk(p), nil
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
