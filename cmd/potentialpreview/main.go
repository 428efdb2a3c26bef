// Potential field preview tool - renders the cat's cost landscape to a PNG.
//
// Usage: go run ./cmd/potentialpreview -out field.png [-seed 7]
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/deadend/ai"
	"github.com/pthm-cable/deadend/camera"
	"github.com/pthm-cable/deadend/config"
	"github.com/pthm-cable/deadend/geom"
	"github.com/pthm-cable/deadend/sim"
)

// previewParams holds the rendering knobs.
type previewParams struct {
	Size     int     // Output image width; height follows the field aspect ratio
	Contrast float64 // Exponent applied to the normalized brightness
	Zoom     float64
	Focus    *geom.Vec2 // View center, nil = field center
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	out := flag.String("out", "potential.png", "Output PNG path")
	size := flag.Int("size", 512, "Image width in pixels")
	contrast := flag.Float64("contrast", 1.5, "Brightness exponent")
	seed := flag.Int64("seed", 0, "Random layout seed (0 = default layout)")
	zoom := flag.Float64("zoom", 1, "Magnification (1 = whole field)")
	focusCat := flag.Bool("focus-cat", false, "Center the view on the cat")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(*configPath, *out, *seed, previewParams{Size: *size, Contrast: *contrast, Zoom: *zoom}, *focusCat); err != nil {
		slog.Error("preview failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, out string, seed int64, params previewParams, focusCat bool) error {
	if params.Size < 2 {
		return fmt.Errorf("size %d too small", params.Size)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	opts := sim.OptionsFromConfig(cfg)
	layout := sim.DefaultLayout(opts)
	if seed != 0 {
		layout = sim.RandomLayout(rand.New(rand.NewSource(seed)), opts)
	}
	opts.Layout = &layout

	s, err := sim.New(ai.Idle, ai.Idle, opts)
	if err != nil {
		return err
	}
	view := s.View()
	pf := ai.PotentialField{
		Repulsion:    cfg.Potential.Repulsion,
		Attraction:   cfg.Potential.Attraction,
		StepFraction: cfg.Potential.StepFraction,
		VetoCost:     cfg.Potential.VetoCost,
	}

	if focusCat {
		c := view.Cat.Pos()
		params.Focus = &c
	}

	w, h := params.Size, previewHeight(params.Size, opts.Field)
	cam := newCamera(w, h, opts.Field, params)
	grid := make([]float64, w*h)
	generatePotential(grid, cam, pf, view, params)

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, renderImage(grid, cam, view)); err != nil {
		return fmt.Errorf("encoding %s: %w", out, err)
	}

	costs := pf.Costs(view)
	slog.Info("potential preview written",
		"path", out,
		"width", w,
		"height", h,
		"zoom", cam.Zoom,
		"decision", pf.Decide(view).String(),
		"right", costs[0],
		"left", costs[1],
		"up", costs[2],
		"down", costs[3],
	)
	return nil
}

func previewHeight(width int, field geom.Field) int {
	return max(2, int(math.Round(float64(width)*field.Height/field.Width)))
}

func newCamera(w, h int, field geom.Field, params previewParams) *camera.Camera {
	cam := camera.New(float64(w), float64(h), field)
	if params.Zoom > 0 {
		cam.SetZoom(params.Zoom)
	}
	if params.Focus != nil {
		cam.LookAt(*params.Focus)
	}
	return cam
}

// pixelCenter maps a pixel to field coordinates.
func pixelCenter(cam *camera.Camera, x, y int) geom.Vec2 {
	return cam.ScreenToWorld(float64(x)+0.5, float64(y)+0.5)
}

// generatePotential fills grid with brightness in [0,1]: 1 at the cheapest
// point of the field, 0 at the most expensive. Costs are log-scaled first so a
// single veto does not flatten everything else.
func generatePotential(grid []float64, cam *camera.Camera, pf ai.PotentialField, v ai.View, params previewParams) {
	w, h := int(cam.ViewportW), int(cam.ViewportH)
	for y := range h {
		for x := range w {
			grid[y*w+x] = math.Log1p(pf.Cost(pixelCenter(cam, x, y), v))
		}
	}

	lo, hi := floats.Min(grid), floats.Max(grid)
	span := hi - lo
	for i, c := range grid {
		b := 1.0
		if span > 0 {
			b = 1 - (c-lo)/span
		}
		grid[i] = math.Pow(clamp01(b), params.Contrast)
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

var (
	dogColor  = color.RGBA{220, 60, 60, 255}
	catColor  = color.RGBA{80, 160, 255, 255}
	goalColor = color.RGBA{80, 220, 120, 255}
)

// renderImage shades the grid and outlines the goal, dogs and cat on top.
func renderImage(grid []float64, cam *camera.Camera, v ai.View) *image.RGBA {
	w, h := int(cam.ViewportW), int(cam.ViewportH)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			g := uint8(grid[y*w+x] * 255)
			img.SetRGBA(x, y, color.RGBA{g, g, g, 255})
		}
	}

	type mark struct {
		agent ai.Agent
		color color.RGBA
	}
	marks := []mark{{v.Goal, goalColor}}
	for _, d := range v.Dogs {
		marks = append(marks, mark{d, dogColor})
	}
	marks = append(marks, mark{v.Cat, catColor})

	for _, m := range marks {
		if cam.IsVisible(m.agent.Pos(), m.agent.Shape.HalfSize().Len()) {
			outline(img, cam, m.agent.Shape, m.color)
		}
	}
	return img
}

// outline colours every pixel inside s that has a 4-neighbour outside it.
func outline(img *image.RGBA, cam *camera.Camera, s geom.Shape, c color.RGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	in := func(x, y int) bool {
		if x < 0 || y < 0 || x >= w || y >= h {
			return false
		}
		return contains(s, pixelCenter(cam, x, y))
	}
	for y := range h {
		for x := range w {
			if in(x, y) && (!in(x+1, y) || !in(x-1, y) || !in(x, y+1) || !in(x, y-1)) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func contains(s geom.Shape, p geom.Vec2) bool {
	return geom.Overlaps(geom.Circle{Pos: p, Radius: 1e-9}, s)
}
