package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Field.Width != 16 || cfg.Field.Height != 16 {
		t.Errorf("field = %+v, want 16x16", cfg.Field)
	}
	if cfg.Dogs.Count != 4 || cfg.Dogs.Speed != 1.125 {
		t.Errorf("dogs = %+v", cfg.Dogs)
	}
	if cfg.Potential.Repulsion != 75 || cfg.Potential.Attraction != 4 || cfg.Potential.VetoCost != 1e9 {
		t.Errorf("potential = %+v", cfg.Potential)
	}
	if cfg.Derived.GridCols != 16 || cfg.Derived.GridRows != 16 {
		t.Errorf("grid = %dx%d", cfg.Derived.GridCols, cfg.Derived.GridRows)
	}
	if cfg.Derived.WeightSum != 5.5 {
		t.Errorf("weight sum = %v, want 5.5", cfg.Derived.WeightSum)
	}
	if cfg.Derived.MaxTicks != BatchMaxTicks {
		t.Errorf("derived max ticks = %d, want %d", cfg.Derived.MaxTicks, BatchMaxTicks)
	}
	if cfg.Derived.MinTicks != 9 {
		t.Errorf("min ticks = %d, want 9", cfg.Derived.MinTicks)
	}
}

func TestLoadOverlaysUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte("dogs:\n  count: 2\nepisode:\n  max_ticks: 40\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dogs.Count != 2 {
		t.Errorf("dogs.count = %d, want 2", cfg.Dogs.Count)
	}
	if cfg.Dogs.Speed != 1.125 {
		t.Errorf("dogs.speed = %v, default lost", cfg.Dogs.Speed)
	}
	if cfg.Derived.MaxTicks != 40 {
		t.Errorf("derived max ticks = %d, want 40", cfg.Derived.MaxTicks)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero width", "field:\n  width: 0\n"},
		{"no dogs", "dogs:\n  count: 0\n"},
		{"negative speed", "cat:\n  speed: -1\n"},
		{"step fraction", "potential:\n  step_fraction: 1.5\n"},
		{"bounds", "interest:\n  t_max: 2\n  t_min: 5\n"},
		{"negative weight", "interest:\n  weights:\n    delta: -0.5\n"},
		{"negative exponent", "interest:\n  exponents:\n    p3: -1\n"},
		{"nan exponent", "interest:\n  exponents:\n    p1: .nan\n"},
		{"layout", "trial:\n  layout: spiral\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Potential.Repulsion = 12.5
	cfg.Trial.Layout = "default"

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Potential.Repulsion != 12.5 || back.Trial.Layout != "default" {
		t.Errorf("round trip lost values: %+v %+v", back.Potential, back.Trial)
	}
}

func TestCfgBeforeInitPanics(t *testing.T) {
	saved := global
	global = nil
	defer func() {
		global = saved
		if recover() == nil {
			t.Error("Cfg did not panic")
		}
	}()
	Cfg()
}
