// Package camera maps field coordinates onto a pixel viewport.
package camera

import (
	"math"

	"github.com/pthm-cable/deadend/geom"
)

// Camera controls the viewport into a closed field. At zoom 1 the whole
// field fits the viewport; the view never scrolls past the field edges.
type Camera struct {
	// Center is the camera center in field coordinates
	Center geom.Vec2

	// Zoom level (1.0 = whole field, 2.0 = 2x magnification)
	Zoom float64

	// Viewport dimensions in pixels
	ViewportW, ViewportH float64

	Field geom.Field

	MaxZoom float64
}

// New creates a camera centered on the field at zoom 1.
func New(viewportW, viewportH float64, field geom.Field) *Camera {
	return &Camera{
		Center:    geom.Vec2{X: field.Width / 2, Y: field.Height / 2},
		Zoom:      1.0,
		ViewportW: viewportW,
		ViewportH: viewportH,
		Field:     field,
		MaxZoom:   16.0,
	}
}

// scale returns pixels per field unit at the current zoom.
func (c *Camera) scale() float64 {
	return math.Min(c.ViewportW/c.Field.Width, c.ViewportH/c.Field.Height) * c.Zoom
}

// WorldToScreen converts field coordinates to pixel coordinates.
func (c *Camera) WorldToScreen(p geom.Vec2) (sx, sy float64) {
	s := c.scale()
	sx = c.ViewportW/2 + (p.X-c.Center.X)*s
	sy = c.ViewportH/2 + (p.Y-c.Center.Y)*s
	return sx, sy
}

// ScreenToWorld converts pixel coordinates to field coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) geom.Vec2 {
	s := c.scale()
	return geom.Vec2{
		X: c.Center.X + (sx-c.ViewportW/2)/s,
		Y: c.Center.Y + (sy-c.ViewportH/2)/s,
	}
}

// IsVisible returns true if a circle at p with the given radius could be
// visible in the viewport (conservative check for culling).
func (c *Camera) IsVisible(p geom.Vec2, radius float64) bool {
	minX, minY, maxX, maxY := c.VisibleWorldBounds()
	return p.X+radius >= minX && p.X-radius <= maxX && p.Y+radius >= minY && p.Y-radius <= maxY
}

// Pan moves the camera by the given delta in pixels.
func (c *Camera) Pan(dx, dy float64) {
	s := c.scale()
	c.LookAt(c.Center.Add(geom.Vec2{X: dx / s, Y: dy / s}))
}

// LookAt centers the camera on p, clamped so the view stays on the field.
func (c *Camera) LookAt(p geom.Vec2) {
	s := c.scale()
	half := geom.Vec2{X: c.ViewportW / (2 * s), Y: c.ViewportH / (2 * s)}
	c.Center = geom.Vec2{
		X: clampAxis(p.X, half.X, c.Field.Width),
		Y: clampAxis(p.Y, half.Y, c.Field.Height),
	}
}

// SetZoom sets the zoom level, clamped to [1, MaxZoom], and re-clamps the center.
func (c *Camera) SetZoom(zoom float64) {
	c.Zoom = clamp(zoom, 1, c.MaxZoom)
	c.LookAt(c.Center)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float64) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the default position and zoom.
func (c *Camera) Reset() {
	c.Center = geom.Vec2{X: c.Field.Width / 2, Y: c.Field.Height / 2}
	c.Zoom = 1.0
}

// VisibleWorldBounds returns the field-coordinate bounds of the viewport.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float64) {
	s := c.scale()
	halfW := c.ViewportW / (2 * s)
	halfH := c.ViewportH / (2 * s)
	return c.Center.X - halfW, c.Center.Y - halfH, c.Center.X + halfW, c.Center.Y + halfH
}

// clampAxis keeps a view of half-extent half inside [0, size]. A view wider
// than the field stays centered on it.
func clampAxis(x, half, size float64) float64 {
	if 2*half >= size {
		return size / 2
	}
	return clamp(x, half, size-half)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
