// Package telemetry records episodes, scores batches for interest, and writes
// experiment output.
package telemetry

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/deadend/geom"
	"github.com/pthm-cable/deadend/sim"
)

// ErrNoEpisode is returned when a tick or end is logged outside an episode.
var ErrNoEpisode = errors.New("telemetry: no episode in progress")

// ErrInvalidEpisode is returned by GameStarted for unusable fields or dog sets.
var ErrInvalidEpisode = errors.New("telemetry: invalid episode")

// EpisodeStats is one sealed episode.
type EpisodeStats struct {
	Won     bool
	Ticks   int
	Outcome sim.Outcome
	// Visits holds one grid per dog: rows follow the field height and
	// columns the field width, each cell counting ticks spent nearest it.
	Visits []*mat.Dense
}

// Entropy is the mean normalised entropy of this episode's grids.
func (e EpisodeStats) Entropy() float64 { return meanEntropy(e.Visits) }

// LogValue implements slog.LogValuer for structured logging.
func (e EpisodeStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("won", e.Won),
		slog.Int("ticks", e.Ticks),
		slog.String("outcome", e.Outcome.String()),
		slog.Float64("entropy", e.Entropy()),
	)
}

// Stats is the getStats triple.
type Stats struct {
	Episodes int
	Wins     int
	Interest float64
}

// DataLogger accumulates episodes handed to it by a driver. It is not safe
// for concurrent use; give each worker its own and Merge afterwards.
type DataLogger struct {
	params   Params
	current  *EpisodeStats
	episodes []EpisodeStats
}

// NewDataLogger creates a logger that scores with p.
func NewDataLogger(p Params) *DataLogger {
	return &DataLogger{params: p}
}

// GameStarted opens a new episode with one empty grid per dog. An episode
// still open from an earlier start is discarded.
func (l *DataLogger) GameStarted(field geom.Field, dogStarts []geom.Vec2) error {
	if err := field.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEpisode, err)
	}
	if len(dogStarts) == 0 {
		return fmt.Errorf("%w: no dogs to track", ErrInvalidEpisode)
	}

	cols, rows := field.Cells()
	ep := &EpisodeStats{Visits: make([]*mat.Dense, len(dogStarts))}
	for i := range ep.Visits {
		ep.Visits[i] = mat.NewDense(rows, cols, nil)
	}
	l.current = ep
	return nil
}

// GameTicked counts one tick and one visit per dog at its nearest cell.
func (l *DataLogger) GameTicked(st sim.State) error {
	ep := l.current
	if ep == nil {
		return ErrNoEpisode
	}
	if len(st.Dogs) != len(ep.Visits) {
		return fmt.Errorf("%w: state has %d dogs, episode tracks %d", ErrInvalidEpisode, len(st.Dogs), len(ep.Visits))
	}

	ep.Ticks++
	ep.Outcome = st.Outcome
	for i, d := range st.Dogs {
		g := ep.Visits[i]
		rows, cols := g.Dims()
		r := cell(d.Y, rows)
		c := cell(d.X, cols)
		g.Set(r, c, g.At(r, c)+1)
	}
	return nil
}

// cell rounds half to even and clamps into [0, n).
func cell(v float64, n int) int {
	i := int(math.RoundToEven(v))
	return min(max(i, 0), n-1)
}

// GameEnded seals the open episode.
func (l *DataLogger) GameEnded(won bool) error {
	if l.current == nil {
		return ErrNoEpisode
	}
	l.current.Won = won
	l.episodes = append(l.episodes, *l.current)
	l.current = nil
	return nil
}

// Episodes returns the sealed episodes in the order they ended.
func (l *DataLogger) Episodes() []EpisodeStats { return l.episodes }

// Merge appends other's sealed episodes after this logger's.
func (l *DataLogger) Merge(other *DataLogger) {
	l.Add(other.episodes...)
}

// Add appends already sealed episodes.
func (l *DataLogger) Add(eps ...EpisodeStats) {
	l.episodes = append(l.episodes, eps...)
}

// Score evaluates every sealed episode with the logger's parameters and
// exponents e.
func (l *DataLogger) Score(e Exponents) Score {
	p := l.params
	p.Exponents = e

	ticks := make([]float64, len(l.episodes))
	var grids []*mat.Dense
	for i, ep := range l.episodes {
		ticks[i] = float64(ep.Ticks)
		grids = append(grids, ep.Visits...)
	}
	return Interest(ticks, grids, p)
}

// Stats reports the episode count, win count and interest.
func (l *DataLogger) Stats(e Exponents) Stats {
	wins := 0
	for _, ep := range l.episodes {
		if ep.Won {
			wins++
		}
	}
	return Stats{
		Episodes: len(l.episodes),
		Wins:     wins,
		Interest: l.Score(e).Value,
	}
}

// Trial summarises the sealed episodes.
func (l *DataLogger) Trial(e Exponents) Trial {
	t := Trial{Episodes: len(l.episodes)}
	ticks := make([]float64, len(l.episodes))
	for i, ep := range l.episodes {
		ticks[i] = float64(ep.Ticks)
		if ep.Won {
			t.Wins++
		}
		switch ep.Outcome {
		case sim.Captured:
			t.Captures++
		case sim.Reached:
			t.Reached++
		case sim.TimedOut:
			t.Timeouts++
		}
	}
	if t.Episodes > 0 {
		t.WinRate = float64(t.Wins) / float64(t.Episodes)
	}
	t.TickMean, t.TickStd, t.TickP10, t.TickP50, t.TickP90 = ComputeTickStats(ticks)

	s := l.Score(e)
	t.Duration, t.Spread, t.Entropy, t.Interest = s.Duration, s.Spread, s.Entropy, s.Value
	return t
}
