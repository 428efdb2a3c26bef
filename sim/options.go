package sim

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/deadend/config"
	"github.com/pthm-cable/deadend/geom"
)

// ErrInvalidOptions is returned by New when the episode cannot be set up.
var ErrInvalidOptions = errors.New("sim: invalid options")

// Bodies holds entity sizes and speeds.
type Bodies struct {
	CatRadius float64
	CatSpeed  float64
	DogSize   geom.Vec2
	DogSpeed  float64
	GoalSize  geom.Vec2
}

// DefaultBodies returns the sizes used by the original testbed.
func DefaultBodies() Bodies {
	return Bodies{
		CatRadius: 0.75,
		CatSpeed:  1.5,
		DogSize:   geom.Vec2{X: 1.5, Y: 1.5},
		DogSpeed:  1.125,
		GoalSize:  geom.Vec2{X: 5, Y: 2},
	}
}

// Layout fixes the starting centers of every entity.
type Layout struct {
	Cat  geom.Vec2
	Dogs []geom.Vec2
	Goal geom.Vec2
}

// Options configures a Simulation.
type Options struct {
	Field   geom.Field
	NumDogs int
	Bodies  Bodies

	// MaxTicks ends the episode after this many ticks (0 = unlimited).
	MaxTicks int
	// TimeoutWins decides the outcome when MaxTicks is reached.
	TimeoutWins bool

	// Layout overrides the default starting positions when non-nil.
	Layout *Layout

	// Phases, when set, is told when each tick phase starts and ends.
	Phases PhaseTimer
}

// DefaultOptions returns a 16x16 field with four dogs and no tick limit.
func DefaultOptions() Options {
	return Options{
		Field:   geom.Field{Width: 16, Height: 16},
		NumDogs: 4,
		Bodies:  DefaultBodies(),
	}
}

// OptionsFromConfig builds options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Field:   geom.Field{Width: cfg.Field.Width, Height: cfg.Field.Height},
		NumDogs: cfg.Dogs.Count,
		Bodies: Bodies{
			CatRadius: cfg.Cat.Radius,
			CatSpeed:  cfg.Cat.Speed,
			DogSize:   geom.Vec2{X: cfg.Dogs.Width, Y: cfg.Dogs.Height},
			DogSpeed:  cfg.Dogs.Speed,
			GoalSize:  geom.Vec2{X: cfg.Goal.Width, Y: cfg.Goal.Height},
		},
		MaxTicks:    cfg.Episode.MaxTicks,
		TimeoutWins: cfg.Episode.TimeoutWins,
	}
}

// Validate reports the first problem that would prevent New from building an episode.
func (o Options) Validate() error {
	if err := o.Field.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if o.NumDogs < 1 {
		return fmt.Errorf("%w: need at least one dog, got %d", ErrInvalidOptions, o.NumDogs)
	}
	b := o.Bodies
	if b.CatSpeed < 0 || b.DogSpeed < 0 {
		return fmt.Errorf("%w: negative speed (cat %g, dog %g)", ErrInvalidOptions, b.CatSpeed, b.DogSpeed)
	}
	for _, s := range []geom.Shape{
		geom.Circle{Radius: b.CatRadius},
		geom.Rect{Size: b.DogSize},
		geom.Rect{Size: b.GoalSize},
	} {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
	}
	if 2*b.CatRadius > o.Field.Width || 2*b.CatRadius > o.Field.Height ||
		b.DogSize.X > o.Field.Width || b.DogSize.Y > o.Field.Height ||
		b.GoalSize.X > o.Field.Width || b.GoalSize.Y > o.Field.Height {
		return fmt.Errorf("%w: bodies do not fit in a %gx%g field", ErrInvalidOptions, o.Field.Width, o.Field.Height)
	}
	if o.MaxTicks < 0 {
		return fmt.Errorf("%w: negative max ticks %d", ErrInvalidOptions, o.MaxTicks)
	}
	if o.Layout != nil && len(o.Layout.Dogs) != o.NumDogs {
		return fmt.Errorf("%w: layout has %d dogs, want %d", ErrInvalidOptions, len(o.Layout.Dogs), o.NumDogs)
	}
	return nil
}

// DefaultLayout places the cat flush with the bottom edge and the goal flush
// with the top edge, both centered, and puts the dogs on a row two
// dog-heights from the top, dog i at width/(N+1) * (i+0.5).
func DefaultLayout(o Options) Layout {
	w, h := o.Field.Width, o.Field.Height
	l := Layout{
		Cat:  geom.Vec2{X: w * 0.5, Y: h - o.Bodies.CatRadius},
		Goal: geom.Vec2{X: w * 0.5, Y: o.Bodies.GoalSize.Y * 0.5},
		Dogs: make([]geom.Vec2, o.NumDogs),
	}
	space := w / float64(o.NumDogs+1)
	for i := range l.Dogs {
		l.Dogs[i] = geom.Vec2{X: space * (float64(i) + 0.5), Y: o.Bodies.DogSize.Y * 2}
	}
	return l
}

// RandomLayout keeps the goal in place, puts the cat at a random spot on the
// bottom row and scatters the dogs over the upper half of the field.
func RandomLayout(rng *rand.Rand, o Options) Layout {
	l := DefaultLayout(o)
	w, h := o.Field.Width, o.Field.Height
	r := o.Bodies.CatRadius
	l.Cat.X = r + rng.Float64()*(w-2*r)

	hw, hh := o.Bodies.DogSize.X*0.5, o.Bodies.DogSize.Y*0.5
	maxY := (h - o.Bodies.DogSize.Y) * 0.5
	if maxY < hh {
		maxY = hh
	}
	for i := range l.Dogs {
		l.Dogs[i] = geom.Vec2{
			X: hw + rng.Float64()*(w-2*hw),
			Y: hh + rng.Float64()*(maxY-hh),
		}
	}
	return l
}
