package components

import (
	"testing"

	"github.com/pthm-cable/deadend/geom"
)

func TestMove(t *testing.T) {
	body := &Body{Shape: geom.NewRect(1, 2, 1.5, 1.5)}
	motion := &Motion{Speed: 1.5}

	steps := []struct {
		dir  geom.Direction
		want geom.Vec2
	}{
		{geom.Left, geom.Vec2{X: -0.5, Y: 2}},
		{geom.Right, geom.Vec2{X: 1, Y: 2}},
		{geom.Down, geom.Vec2{X: 1, Y: 3.5}},
		{geom.Up, geom.Vec2{X: 1, Y: 2}},
		{geom.None, geom.Vec2{X: 1, Y: 2}},
	}

	for _, s := range steps {
		Move(body, motion, s.dir)
		if got := body.Shape.Center(); got != s.want {
			t.Fatalf("after %v: center = %+v, want %+v", s.dir, got, s.want)
		}
		if motion.LastDir != s.dir {
			t.Errorf("LastDir = %v, want %v", motion.LastDir, s.dir)
		}
	}
}

func TestMoveDoesNotClamp(t *testing.T) {
	body := &Body{Shape: geom.NewCircle(0.75, 0.75, 0.75)}
	motion := &Motion{Speed: 1.5}

	Move(body, motion, geom.Up)
	if got := body.Shape.Center().Y; got != -0.75 {
		t.Errorf("Y = %v, want -0.75 (move must not clamp)", got)
	}
}

func TestMoveStationary(t *testing.T) {
	body := &Body{Shape: geom.NewRect(8, 1, 5, 2)}
	motion := &Motion{}

	Move(body, motion, geom.Right)
	if got := body.Shape.Center(); got != (geom.Vec2{X: 8, Y: 1}) {
		t.Errorf("zero-speed entity moved to %+v", got)
	}
	if motion.LastDir != geom.Right {
		t.Errorf("LastDir = %v, want right", motion.LastDir)
	}
}
