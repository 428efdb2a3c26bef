// Package geom provides the shapes, directions and overlap tests used by the simulation.
package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidShape is returned when a shape or field has non-positive dimensions.
var ErrInvalidShape = errors.New("geom: invalid dimensions")

// Vec2 is a point or displacement on the field.
type Vec2 struct {
	X, Y float64
}

// Add returns a + b.
func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a.X + b.X, a.Y + b.Y} }

// Sub returns a - b.
func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }

// Scale returns a * s.
func (a Vec2) Scale(s float64) Vec2 { return Vec2{a.X * s, a.Y * s} }

// Len returns the Euclidean length.
func (a Vec2) Len() float64 { return math.Hypot(a.X, a.Y) }

// Manhattan returns the L1 distance between a and b.
func (a Vec2) Manhattan(b Vec2) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
}

// Lerp interpolates between a (t=0) and b (t=1).
func (a Vec2) Lerp(b Vec2, t float64) Vec2 {
	return Vec2{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

// Field is the closed rectangle [0,Width] x [0,Height] agents live in.
type Field struct {
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Validate reports whether both dimensions are positive.
func (f Field) Validate() error {
	if !(f.Width > 0) || !(f.Height > 0) {
		return fmt.Errorf("%w: field %gx%g", ErrInvalidShape, f.Width, f.Height)
	}
	return nil
}

// Cells returns the field rounded to a whole number of grid cells (at least 1x1).
func (f Field) Cells() (cols, rows int) {
	cols = int(math.Round(f.Width))
	rows = int(math.Round(f.Height))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

// Direction is a discrete movement command.
// The zero value is None, which leaves the mover in place.
type Direction uint8

const (
	None Direction = iota
	Left
	Right
	Up
	Down
)

// Candidates is the fixed order directions are evaluated in when an AI scores
// moves. Ties resolve to the earliest entry.
var Candidates = [4]Direction{Right, Left, Up, Down}

// Vector returns the unit displacement for d. Up is negative Y.
func (d Direction) Vector() Vec2 {
	switch d {
	case Left:
		return Vec2{-1, 0}
	case Right:
		return Vec2{1, 0}
	case Up:
		return Vec2{0, -1}
	case Down:
		return Vec2{0, 1}
	}
	return Vec2{}
}

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "none"
}

// ParseDirection converts a name produced by String back to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "", "none":
		return None, nil
	}
	return None, fmt.Errorf("geom: unknown direction %q", s)
}
