// Package components defines ECS components for the simulation.
package components

// Kind identifies what an entity represents in an episode.
type Kind uint8

const (
	KindCat Kind = iota
	KindDog
	KindGoal
)

func (k Kind) String() string {
	switch k {
	case KindCat:
		return "cat"
	case KindDog:
		return "dog"
	case KindGoal:
		return "goal"
	}
	return "unknown"
}

// Role tags an entity with its kind.
// Index is the dog's position in spawn order (0 for cat and goal).
type Role struct {
	Kind  Kind
	Index int
}
