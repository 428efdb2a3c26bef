package ai

import (
	"slices"
	"sync/atomic"

	"github.com/pthm-cable/deadend/geom"
)

// Control returns whatever direction the input layer last set.
// The input layer owns the value; the simulation only reads it, so one
// Control may be written from an input goroutine while a tick runs.
type Control struct {
	dir atomic.Uint32
}

// NewControl creates a control decider that idles until a direction is set.
func NewControl() *Control {
	return &Control{}
}

// SetDirection replaces the direction returned by subsequent Decide calls.
// geom.None stops the agent.
func (c *Control) SetDirection(d geom.Direction) {
	c.dir.Store(uint32(d))
}

// Direction returns the currently set direction.
func (c *Control) Direction() geom.Direction {
	return geom.Direction(c.dir.Load())
}

func (c *Control) Decide(View) geom.Direction {
	return c.Direction()
}

// HeldKeys tracks held direction inputs so that releasing the newest key
// falls back to the one held before it.
type HeldKeys struct {
	current geom.Direction
	held    []geom.Direction
}

// Press makes d the active direction.
func (h *HeldKeys) Press(d geom.Direction) {
	if d == h.current {
		return
	}
	h.held = append(h.held, h.current)
	h.current = d
}

// Release drops d. If it was active, the previously held direction resumes.
func (h *HeldKeys) Release(d geom.Direction) {
	if d == geom.None {
		return
	}
	if d == h.current {
		h.current = geom.None
		for len(h.held) > 0 {
			prev := h.held[len(h.held)-1]
			h.held = h.held[:len(h.held)-1]
			if prev != geom.None {
				h.current = prev
				break
			}
		}
		return
	}
	if i := slices.Index(h.held, d); i >= 0 {
		h.held = slices.Delete(h.held, i, i+1)
	}
}

// Direction returns the active direction.
func (h *HeldKeys) Direction() geom.Direction { return h.current }

// Apply pushes the active direction into c.
func (h *HeldKeys) Apply(c *Control) {
	c.SetDirection(h.current)
}
