package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Trial holds aggregated statistics for a batch of episodes.
type Trial struct {
	Episodes int `csv:"episodes"`
	Wins     int `csv:"wins"`
	Captures int `csv:"captures"`
	Reached  int `csv:"reached"`
	Timeouts int `csv:"timeouts"`

	WinRate float64 `csv:"win_rate"`

	// Episode length distribution
	TickMean float64 `csv:"tick_mean"`
	TickStd  float64 `csv:"tick_std"`
	TickP10  float64 `csv:"tick_p10"`
	TickP50  float64 `csv:"tick_p50"`
	TickP90  float64 `csv:"tick_p90"`

	// Interest and its parts
	Duration float64 `csv:"duration_score"`
	Spread   float64 `csv:"spread_score"`
	Entropy  float64 `csv:"entropy_score"`
	Interest float64 `csv:"interest"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeTickStats calculates mean, population std, and percentiles of episode lengths.
func ComputeTickStats(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (t Trial) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("episodes", t.Episodes),
		slog.Int("wins", t.Wins),
		slog.Int("captures", t.Captures),
		slog.Int("reached", t.Reached),
		slog.Int("timeouts", t.Timeouts),
		slog.Float64("win_rate", t.WinRate),
		slog.Float64("tick_mean", t.TickMean),
		slog.Float64("tick_std", t.TickStd),
		slog.Float64("tick_p50", t.TickP50),
		slog.Float64("interest", t.Interest),
	)
}

// LogStats logs the trial summary using slog.
func (t Trial) LogStats() {
	slog.Info("trial",
		"episodes", t.Episodes,
		"wins", t.Wins,
		"captures", t.Captures,
		"reached", t.Reached,
		"timeouts", t.Timeouts,
		"win_rate", t.WinRate,
		"tick_mean", t.TickMean,
		"tick_std", t.TickStd,
		"tick_p10", t.TickP10,
		"tick_p50", t.TickP50,
		"tick_p90", t.TickP90,
		"duration_score", t.Duration,
		"spread_score", t.Spread,
		"entropy_score", t.Entropy,
		"interest", t.Interest,
	)
}
