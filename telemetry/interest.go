package telemetry

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/deadend/config"
)

// minEpisodes is the smallest batch the evaluator will score.
const minEpisodes = 3

// Weights weight the duration, spread and entropy sub-scores.
type Weights struct {
	Gamma, Delta, Epsilon float64
}

// Exponents shape the duration, spread and entropy sub-scores.
type Exponents struct {
	P1, P2, P3 float64
}

// DefaultExponents leaves every sub-score linear.
func DefaultExponents() Exponents { return Exponents{P1: 1, P2: 1, P3: 1} }

// Bounds are the configured shortest and longest plausible episode lengths.
type Bounds struct {
	TMin, TMax  float64
	MinEpisodes int
}

// Params holds everything Interest needs besides the samples.
type Params struct {
	Weights   Weights
	Exponents Exponents
	Bounds    Bounds
}

// DefaultParams returns the reference weights 0.5, 1 and 4 with bounds 8 and 50.
func DefaultParams() Params {
	return Params{
		Weights:   Weights{Gamma: 0.5, Delta: 1, Epsilon: 4},
		Exponents: DefaultExponents(),
		Bounds:    Bounds{TMin: 8, TMax: 50, MinEpisodes: minEpisodes},
	}
}

// ParamsFromConfig reads the interest section of cfg.
func ParamsFromConfig(cfg *config.Config) Params {
	ic := cfg.Interest
	return Params{
		Weights:   Weights{Gamma: ic.Weights.Gamma, Delta: ic.Weights.Delta, Epsilon: ic.Weights.Epsilon},
		Exponents: Exponents{P1: ic.Exponents.P1, P2: ic.Exponents.P2, P3: ic.Exponents.P3},
		Bounds:    Bounds{TMin: ic.TMin, TMax: ic.TMax, MinEpisodes: ic.MinEpisodes},
	}
}

// Score is the interest of a batch of episodes and its parts.
type Score struct {
	Duration float64
	Spread   float64
	Entropy  float64
	Value    float64
}

// LogValue implements slog.LogValuer for structured logging.
func (s Score) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("duration", s.Duration),
		slog.Float64("spread", s.Spread),
		slog.Float64("entropy", s.Entropy),
		slog.Float64("value", s.Value),
	)
}

// Interest scores a batch from its per-episode tick counts and every
// (episode, dog) visitation grid. Batches smaller than the configured minimum
// (never less than three) score zero.
func Interest(ticks []float64, grids []*mat.Dense, p Params) Score {
	need := max(minEpisodes, p.Bounds.MinEpisodes)
	if len(ticks) < need {
		return Score{}
	}

	var s Score
	s.Duration = math.Pow(durationScore(ticks), p.Exponents.P1)
	s.Spread = math.Pow(spreadScore(ticks, p.Bounds), p.Exponents.P2)
	s.Entropy = math.Pow(meanEntropy(grids), p.Exponents.P3)

	w := p.Weights
	if sum := w.Gamma + w.Delta + w.Epsilon; sum > 0 {
		s.Value = (w.Gamma*s.Duration + w.Delta*s.Spread + w.Epsilon*s.Entropy) / sum
	}
	return s
}

// durationScore is 1 - mean/max, or 0 when every episode took zero ticks.
func durationScore(ticks []float64) float64 {
	top := floats.Max(ticks)
	if top <= 0 {
		return 0
	}
	return 1 - stat.Mean(ticks, nil)/top
}

// spreadScore is the population deviation of the tick counts relative to the
// deviation of a sample split evenly between the two bounds.
func spreadScore(ticks []float64, b Bounds) float64 {
	n := float64(len(ticks))
	stdMax := 0.5 * math.Sqrt(n/(n-1)) * (b.TMax - b.TMin)
	if stdMax <= 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(ticks, nil)
	return std / stdMax
}

func meanEntropy(grids []*mat.Dense) float64 {
	if len(grids) == 0 {
		return 0
	}
	var sum float64
	for _, g := range grids {
		sum += GridEntropy(g)
	}
	return sum / float64(len(grids))
}

// GridEntropy is the Shannon entropy of a visitation grid's cell distribution
// normalised by the log of its total visits. Grids with fewer than two visits
// score zero.
func GridEntropy(g *mat.Dense) float64 {
	if g == nil {
		return 0
	}
	total := mat.Sum(g)
	if total < 2 {
		return 0
	}
	rows, cols := g.Dims()
	p := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			p = append(p, g.At(r, c)/total)
		}
	}
	return stat.Entropy(p) / math.Log(total)
}
