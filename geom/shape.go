package geom

import "fmt"

// Extents is the axis-aligned bounding box of a shape.
// Top is the smaller Y value.
type Extents struct {
	Left, Right, Top, Bottom float64
}

// Shape is either a Rect or a Circle. The set of implementations is closed;
// pairwise tests dispatch in Overlaps.
type Shape interface {
	Center() Vec2
	// HalfSize is the distance from the center to the bounding box edges.
	HalfSize() Vec2
	Extents() Extents
	// At returns a copy of the shape centered on p.
	At(p Vec2) Shape
	Validate() error

	isShape()
}

// Rect is an axis-aligned rectangle described by its center and full size.
type Rect struct {
	Pos  Vec2
	Size Vec2
}

// NewRect creates a rectangle centered on (x, y).
func NewRect(x, y, w, h float64) Rect {
	return Rect{Pos: Vec2{x, y}, Size: Vec2{w, h}}
}

func (r Rect) Center() Vec2   { return r.Pos }
func (r Rect) HalfSize() Vec2 { return r.Size.Scale(0.5) }
func (r Rect) At(p Vec2) Shape {
	r.Pos = p
	return r
}

func (r Rect) Extents() Extents {
	hw, hh := r.Size.X*0.5, r.Size.Y*0.5
	return Extents{
		Left:   r.Pos.X - hw,
		Right:  r.Pos.X + hw,
		Top:    r.Pos.Y - hh,
		Bottom: r.Pos.Y + hh,
	}
}

func (r Rect) Validate() error {
	if !(r.Size.X > 0) || !(r.Size.Y > 0) {
		return fmt.Errorf("%w: rect size %gx%g", ErrInvalidShape, r.Size.X, r.Size.Y)
	}
	return nil
}

func (Rect) isShape() {}

// Circle is described by its center and radius.
type Circle struct {
	Pos    Vec2
	Radius float64
}

// NewCircle creates a circle centered on (x, y).
func NewCircle(x, y, r float64) Circle {
	return Circle{Pos: Vec2{x, y}, Radius: r}
}

func (c Circle) Center() Vec2   { return c.Pos }
func (c Circle) HalfSize() Vec2 { return Vec2{c.Radius, c.Radius} }
func (c Circle) At(p Vec2) Shape {
	c.Pos = p
	return c
}

func (c Circle) Extents() Extents {
	return Extents{
		Left:   c.Pos.X - c.Radius,
		Right:  c.Pos.X + c.Radius,
		Top:    c.Pos.Y - c.Radius,
		Bottom: c.Pos.Y + c.Radius,
	}
}

func (c Circle) Validate() error {
	if !(c.Radius > 0) {
		return fmt.Errorf("%w: circle radius %g", ErrInvalidShape, c.Radius)
	}
	return nil
}

func (Circle) isShape() {}

// Moved returns s displaced by d.
func Moved(s Shape, d Vec2) Shape {
	return s.At(s.Center().Add(d))
}

// Inside reports whether s lies within the closed field.
func Inside(s Shape, f Field) bool {
	e := s.Extents()
	return e.Left >= 0 && e.Top >= 0 && e.Right <= f.Width && e.Bottom <= f.Height
}
