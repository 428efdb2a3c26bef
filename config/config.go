// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by Validate for any rejected value.
var ErrInvalid = errors.New("config: invalid")

// Config holds all simulation configuration parameters.
type Config struct {
	Field     FieldConfig     `yaml:"field"`
	Cat       CatConfig       `yaml:"cat"`
	Dogs      DogsConfig      `yaml:"dogs"`
	Goal      GoalConfig      `yaml:"goal"`
	Episode   EpisodeConfig   `yaml:"episode"`
	Potential PotentialConfig `yaml:"potential"`
	Interest  InterestConfig  `yaml:"interest"`
	Trial     TrialConfig     `yaml:"trial"`
	Bookmarks BookmarksConfig `yaml:"bookmarks"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// FieldConfig holds the playing field dimensions in world units.
type FieldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// CatConfig holds the evader's body.
type CatConfig struct {
	Radius float64 `yaml:"radius"`
	Speed  float64 `yaml:"speed"` // Units per tick
}

// DogsConfig holds the pursuers' bodies.
type DogsConfig struct {
	Count  int     `yaml:"count"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Speed  float64 `yaml:"speed"` // Units per tick
}

// GoalConfig holds the goal rectangle size.
type GoalConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// EpisodeConfig holds episode termination rules.
type EpisodeConfig struct {
	MaxTicks    int  `yaml:"max_ticks"`    // 0 = unlimited
	TimeoutWins bool `yaml:"timeout_wins"` // Outcome when max_ticks elapses
}

// PotentialConfig holds the potential-field AI constants.
type PotentialConfig struct {
	Repulsion    float64 `yaml:"repulsion"`     // K: weight of each dog's inverse distance
	Attraction   float64 `yaml:"attraction"`    // W: weight of the goal distance
	StepFraction float64 `yaml:"step_fraction"` // f: sample spacing along a move, in (0, 1]
	VetoCost     float64 `yaml:"veto_cost"`     // Cost of a sample on top of a dog
}

// InterestConfig holds interest evaluator parameters.
type InterestConfig struct {
	Weights     InterestWeights   `yaml:"weights"`
	Exponents   InterestExponents `yaml:"exponents"`
	TMax        float64           `yaml:"t_max"` // Longest plausible episode
	TMin        float64           `yaml:"t_min"` // Shortest plausible episode
	MinEpisodes int               `yaml:"min_episodes"`
}

// InterestWeights weight the three sub-scores.
type InterestWeights struct {
	Gamma   float64 `yaml:"gamma"`   // Duration
	Delta   float64 `yaml:"delta"`   // Spread
	Epsilon float64 `yaml:"epsilon"` // Entropy
}

// InterestExponents shape the three sub-scores (p1, p2, p3).
type InterestExponents struct {
	P1 float64 `yaml:"p1"`
	P2 float64 `yaml:"p2"`
	P3 float64 `yaml:"p3"`
}

// TrialConfig holds batch runner parameters.
type TrialConfig struct {
	Episodes int    `yaml:"episodes"`
	Workers  int    `yaml:"workers"` // 0 = one per CPU
	CatAI    string `yaml:"cat_ai"`
	DogAI    string `yaml:"dog_ai"`
	Seed     int64  `yaml:"seed"`
	Layout   string `yaml:"layout"` // "default" or "random"
}

// BookmarksConfig holds notable-episode detection thresholds.
type BookmarksConfig struct {
	InstantCapture InstantCaptureConfig `yaml:"instant_capture"`
	LongEscape     LongEscapeConfig     `yaml:"long_escape"`
	GoalSprint     GoalSprintConfig     `yaml:"goal_sprint"`
}

// InstantCaptureConfig flags captures within the first few ticks.
type InstantCaptureConfig struct {
	MaxTicks int `yaml:"max_ticks"`
}

// LongEscapeConfig flags wins that took much longer than the trial mean.
type LongEscapeConfig struct {
	Multiplier float64 `yaml:"multiplier"`
	MinTicks   int     `yaml:"min_ticks"`
}

// GoalSprintConfig flags wins close to the straight-line minimum.
type GoalSprintConfig struct {
	Slack float64 `yaml:"slack"` // Allowed ratio over the minimum tick count
}

// TelemetryConfig holds output parameters.
type TelemetryConfig struct {
	BookmarkHistorySize int `yaml:"bookmark_history_size"`
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	GridCols  int     // Visitation grid columns (rounded field width)
	GridRows  int     // Visitation grid rows (rounded field height)
	MinTicks  int     // Ticks the cat needs to reach the goal unopposed
	WeightSum float64 // Gamma + Delta + Epsilon
	MaxTicks  int     // Episode.MaxTicks, or BatchMaxTicks when unlimited
}

// BatchMaxTicks caps episodes in batch runs when episode.max_ticks is 0, so
// that a stalemate between two passive strategies cannot hang a worker.
const BatchMaxTicks = 500

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate rejects values no episode or evaluator can run with.
func (c *Config) Validate() error {
	switch {
	case !(c.Field.Width > 0) || !(c.Field.Height > 0):
		return fmt.Errorf("%w: field %gx%g", ErrInvalid, c.Field.Width, c.Field.Height)
	case c.Dogs.Count < 1:
		return fmt.Errorf("%w: dogs.count %d", ErrInvalid, c.Dogs.Count)
	case c.Cat.Speed < 0 || c.Dogs.Speed < 0:
		return fmt.Errorf("%w: negative speed", ErrInvalid)
	case !(c.Cat.Radius > 0) || !(c.Dogs.Width > 0) || !(c.Dogs.Height > 0):
		return fmt.Errorf("%w: body sizes must be positive", ErrInvalid)
	case !(c.Goal.Width > 0) || !(c.Goal.Height > 0):
		return fmt.Errorf("%w: goal %gx%g", ErrInvalid, c.Goal.Width, c.Goal.Height)
	case c.Episode.MaxTicks < 0:
		return fmt.Errorf("%w: episode.max_ticks %d", ErrInvalid, c.Episode.MaxTicks)
	case !(c.Potential.StepFraction > 0) || c.Potential.StepFraction > 1:
		return fmt.Errorf("%w: potential.step_fraction %g not in (0, 1]", ErrInvalid, c.Potential.StepFraction)
	case !nonNegative(c.Interest.Weights.Gamma, c.Interest.Weights.Delta, c.Interest.Weights.Epsilon):
		return fmt.Errorf("%w: interest.weights %+v must not be negative", ErrInvalid, c.Interest.Weights)
	case !nonNegative(c.Interest.Exponents.P1, c.Interest.Exponents.P2, c.Interest.Exponents.P3):
		return fmt.Errorf("%w: interest.exponents %+v must not be negative", ErrInvalid, c.Interest.Exponents)
	case c.Interest.TMax < c.Interest.TMin:
		return fmt.Errorf("%w: interest.t_max %g below t_min %g", ErrInvalid, c.Interest.TMax, c.Interest.TMin)
	case c.Trial.Episodes < 0 || c.Trial.Workers < 0:
		return fmt.Errorf("%w: trial episodes and workers must not be negative", ErrInvalid)
	case c.Trial.Layout != "default" && c.Trial.Layout != "random":
		return fmt.Errorf("%w: trial.layout %q", ErrInvalid, c.Trial.Layout)
	}
	return nil
}

// nonNegative reports whether every value is >= 0 (NaN is not).
func nonNegative(vs ...float64) bool {
	for _, v := range vs {
		if !(v >= 0) {
			return false
		}
	}
	return true
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.GridCols = max(1, int(math.Round(c.Field.Width)))
	c.Derived.GridRows = max(1, int(math.Round(c.Field.Height)))

	// Straight run from the bottom edge to the goal's lower edge
	if c.Cat.Speed > 0 {
		dist := c.Field.Height - 2*c.Cat.Radius - c.Goal.Height
		c.Derived.MinTicks = max(1, int(math.Ceil(dist/c.Cat.Speed)))
	}

	w := c.Interest.Weights
	c.Derived.WeightSum = w.Gamma + w.Delta + w.Epsilon

	c.Derived.MaxTicks = c.Episode.MaxTicks
	if c.Derived.MaxTicks == 0 {
		c.Derived.MaxTicks = BatchMaxTicks
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
