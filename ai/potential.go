package ai

import (
	"math"

	"github.com/pthm-cable/deadend/geom"
)

// Reference values for the potential field.
const (
	DefaultRepulsion    = 75.0
	DefaultAttraction   = 4.0
	DefaultStepFraction = 0.25
	DefaultVetoCost     = 1e9
)

// PotentialField scores each candidate move by walking the segment it would
// cover and averaging a cost that grows near dogs and with distance to the goal.
//
//	cost(p) = sum_dogs Repulsion/manhattan(dog, p) + |(p - goal) * Attraction|
//
// A sample that lands exactly on a dog costs VetoCost for that dog.
type PotentialField struct {
	Repulsion    float64 `yaml:"repulsion"`
	Attraction   float64 `yaml:"attraction"`
	StepFraction float64 `yaml:"step_fraction"` // fraction of the segment per sample, in (0,1]
	VetoCost     float64 `yaml:"veto_cost"`
}

// NewPotentialField returns a field with the reference constants.
func NewPotentialField() PotentialField {
	return PotentialField{
		Repulsion:    DefaultRepulsion,
		Attraction:   DefaultAttraction,
		StepFraction: DefaultStepFraction,
		VetoCost:     DefaultVetoCost,
	}
}

// Decide returns the candidate with the strictly smallest average cost.
// Candidates are compared in geom.Candidates order so ties keep the earlier one.
func (pf PotentialField) Decide(v View) geom.Direction {
	costs := pf.Costs(v)
	best := 0
	for i := 1; i < len(costs); i++ {
		if costs[i] < costs[best] {
			best = i
		}
	}
	return geom.Candidates[best]
}

// Costs returns the average segment cost for each direction in geom.Candidates order.
func (pf PotentialField) Costs(v View) [4]float64 {
	var out [4]float64
	start := v.Self.Pos()
	half := v.Self.Shape.HalfSize()
	for i, dir := range geom.Candidates {
		end := geom.ClampPoint(start.Add(dir.Vector().Scale(v.Self.Speed)), half, v.Field)
		out[i] = pf.SegmentCost(start, end, v)
	}
	return out
}

// SegmentCost samples the cost at evenly spaced points along start->end
// (excluding start, including end) and returns their mean.
// A collapsed segment is scored at its single point.
func (pf PotentialField) SegmentCost(start, end geom.Vec2, v View) float64 {
	if start == end {
		return pf.Cost(start, v)
	}

	f := pf.StepFraction
	if !(f > 0) || f > 1 {
		f = DefaultStepFraction
	}
	steps := int(math.Ceil(1/f - 1e-9))

	var sum float64
	for i := 1; i <= steps; i++ {
		t := math.Min(float64(i)*f, 1)
		sum += pf.Cost(start.Lerp(end, t), v)
	}
	return sum / float64(steps)
}

// Cost evaluates the field at p.
func (pf PotentialField) Cost(p geom.Vec2, v View) float64 {
	veto := pf.VetoCost
	if !(veto > 0) {
		veto = DefaultVetoCost
	}

	var c float64
	for _, dog := range v.Dogs {
		d := dog.Pos().Manhattan(p)
		if d == 0 {
			c += veto
			continue
		}
		c += pf.Repulsion / d
	}
	return c + p.Sub(v.Goal.Pos()).Scale(pf.Attraction).Len()
}
