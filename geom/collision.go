package geom

import "math"

// Overlaps reports whether two shapes touch or intersect.
// Touching boundaries count as a collision.
func Overlaps(a, b Shape) bool {
	switch a := a.(type) {
	case Rect:
		switch b := b.(type) {
		case Rect:
			return RectOverlapsRect(a, b)
		case Circle:
			return CircleOverlapsRect(b, a)
		}
	case Circle:
		switch b := b.(type) {
		case Rect:
			return CircleOverlapsRect(a, b)
		case Circle:
			return CircleOverlapsCircle(a, b)
		}
	}
	return false
}

// RectOverlapsRect is a separating-axis test on the two bounding boxes.
func RectOverlapsRect(a, b Rect) bool {
	ea, eb := a.Extents(), b.Extents()
	if ea.Bottom < eb.Top || ea.Top > eb.Bottom {
		return false
	}
	if ea.Right < eb.Left || ea.Left > eb.Right {
		return false
	}
	return true
}

// CircleOverlapsRect tests the circle against the rectangle's nearest edge or corner.
func CircleOverlapsRect(c Circle, r Rect) bool {
	dx := math.Abs(c.Pos.X - r.Pos.X)
	dy := math.Abs(c.Pos.Y - r.Pos.Y)
	hw, hh := r.Size.X*0.5, r.Size.Y*0.5

	if dx > hw+c.Radius || dy > hh+c.Radius {
		return false
	}
	if dx <= hw || dy <= hh {
		return true
	}

	cx, cy := dx-hw, dy-hh
	return cx*cx+cy*cy <= c.Radius*c.Radius
}

// CircleOverlapsCircle compares squared center distance against the squared radius sum.
func CircleOverlapsCircle(a, b Circle) bool {
	dx := a.Pos.X - b.Pos.X
	dy := a.Pos.Y - b.Pos.Y
	sum := a.Radius + b.Radius
	return dx*dx+dy*dy <= sum*sum
}

// ClampToField moves s so its extents lie inside f. Only the center changes.
// A shape wider than the field is pinned flush with the low edge.
func ClampToField(s Shape, f Field) Shape {
	e := s.Extents()
	half := s.HalfSize()
	p := s.Center()

	if e.Left < 0 {
		p.X = half.X
	} else if e.Right > f.Width {
		p.X = f.Width - half.X
	}

	if e.Top < 0 {
		p.Y = half.Y
	} else if e.Bottom > f.Height {
		p.Y = f.Height - half.Y
	}

	if p == s.Center() {
		return s
	}
	return s.At(p)
}

// ClampPoint restricts a center point so a shape with the given half size
// would stay inside f.
func ClampPoint(p, half Vec2, f Field) Vec2 {
	p.X = math.Max(half.X, math.Min(f.Width-half.X, p.X))
	p.Y = math.Max(half.Y, math.Min(f.Height-half.Y, p.Y))
	return p
}
