package main

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/deadend/ai"
	"github.com/pthm-cable/deadend/config"
	"github.com/pthm-cable/deadend/geom"
	"github.com/pthm-cable/deadend/sim"
)

func previewView(t *testing.T) ai.View {
	t.Helper()
	s, err := sim.New(ai.Idle, ai.Idle, sim.OptionsFromConfig(config.Default()))
	if err != nil {
		t.Fatal(err)
	}
	return s.View()
}

func TestGeneratePotentialRange(t *testing.T) {
	v := previewView(t)
	params := previewParams{Size: 32, Contrast: 1}
	w, h := 32, previewHeight(32, v.Field)
	grid := make([]float64, w*h)
	generatePotential(grid, newCamera(w, h, v.Field, params), ai.NewPotentialField(), v, params)

	var sawZero, sawOne bool
	for i, b := range grid {
		if b < 0 || b > 1 {
			t.Fatalf("pixel %d brightness %v outside [0,1]", i, b)
		}
		sawZero = sawZero || b == 0
		sawOne = sawOne || b == 1
	}
	if !sawZero || !sawOne {
		t.Errorf("brightness not stretched to [0,1] (zero %v, one %v)", sawZero, sawOne)
	}
}

func TestGeneratePotentialGoalBrighterThanDogs(t *testing.T) {
	v := previewView(t)
	params := previewParams{Size: 64, Contrast: 1}
	w, h := 64, previewHeight(64, v.Field)
	grid := make([]float64, w*h)
	generatePotential(grid, newCamera(w, h, v.Field, params), ai.NewPotentialField(), v, params)

	at := func(p geom.Vec2) float64 {
		x := int(p.X / v.Field.Width * float64(w))
		y := int(p.Y / v.Field.Height * float64(h))
		return grid[y*w+x]
	}
	goal := at(v.Goal.Pos())
	for i, d := range v.Dogs {
		if dog := at(d.Pos()); dog >= goal {
			t.Errorf("dog %d brightness %v not below goal %v", i, dog, goal)
		}
	}
}

func TestRunWritesPNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "field.png")
	if err := run("", out, 3, previewParams{Size: 48, Contrast: 1.5}, false); err != nil {
		t.Fatal(err)
	}
	if err := run("", out, 0, previewParams{Size: 48, Contrast: 1, Zoom: 4}, true); err != nil {
		t.Fatal(err)
	}
	if err := run("", out, 0, previewParams{Size: 1}, false); err == nil {
		t.Error("expected error for a 1 pixel preview")
	}
}

func TestOutlineMarksCat(t *testing.T) {
	v := previewView(t)
	w, h := 64, previewHeight(64, v.Field)
	grid := make([]float64, w*h)
	img := renderImage(grid, newCamera(w, h, v.Field, previewParams{}), v)

	var found bool
	for y := range h {
		for x := range w {
			if img.RGBAAt(x, y) == catColor {
				found = true
			}
		}
	}
	if !found {
		t.Error("cat outline missing")
	}
	if img.RGBAAt(0, 0) != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("corner pixel = %v, want the shaded grid", img.RGBAAt(0, 0))
	}
}

func TestZoomedPreviewFollowsFocus(t *testing.T) {
	v := previewView(t)
	cat := v.Cat.Pos()
	cam := newCamera(64, 64, v.Field, previewParams{Zoom: 4, Focus: &cat})

	minX, minY, maxX, maxY := cam.VisibleWorldBounds()
	if cat.X < minX || cat.X > maxX || cat.Y < minY || cat.Y > maxY {
		t.Errorf("cat %v outside zoomed view [%v,%v]x[%v,%v]", cat, minX, maxX, minY, maxY)
	}
	if maxX-minX > v.Field.Width/3 {
		t.Errorf("zoomed view spans %v units", maxX-minX)
	}
}
