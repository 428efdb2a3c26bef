package telemetry

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/deadend/sim"
)

// Phases lists the stages of one Simulation.Tick: every agent decides from
// the shared snapshot, moves, is clamped to the field and is then checked
// for contact with the goal and the cat.
var Phases = []string{sim.PhaseDecide, sim.PhaseMove, sim.PhaseClamp, sim.PhaseCollide}

// tickSample is one Tick's wall time split by phase.
type tickSample struct {
	total  time.Duration
	phases map[string]time.Duration
}

// PerfCollector times the Ticks of the Simulations a single trial worker
// runs. It implements sim.PhaseTimer and is not safe for concurrent use, so
// trial.Run gives each worker its own and reports one PerfStats per worker.
// Only the last window ticks feed the averages; TotalTicks counts every
// tick the worker stepped across all of its episodes.
type PerfCollector struct {
	window  []tickSample
	next    int // ring slot the next EndTick writes
	filled  int
	ticks   int
	current tickSample

	tickStart  time.Time
	phaseStart time.Time
	phase      string
}

var _ sim.PhaseTimer = (*PerfCollector)(nil)

// NewPerfCollector keeps the last window ticks. A window below one falls
// back to 60.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{window: make([]tickSample, window)}
}

// StartTick is called by Simulation.Tick before the decide phase.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.current = tickSample{phases: make(map[string]time.Duration, len(Phases))}
	p.phase = ""
}

// StartPhase closes the running phase, if any, and opens phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = phase
}

// EndTick closes the collide phase and stores the tick in the window.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.current.total = now.Sub(p.tickStart)

	p.window[p.next] = p.current
	p.next = (p.next + 1) % len(p.window)
	if p.filled < len(p.window) {
		p.filled++
	}
	p.ticks++
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase != "" {
		p.current.phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// PerfStats summarises a worker's window of ticks.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Mean time per phase, and that mean as a percentage of the mean tick.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	TicksPerSecond float64
	TotalTicks     int
}

// Stats aggregates the ticks currently in the window. An idle collector
// yields zero durations and empty, non-nil phase maps.
func (p *PerfCollector) Stats() PerfStats {
	st := PerfStats{
		PhaseAvg:   make(map[string]time.Duration),
		PhasePct:   make(map[string]float64),
		TotalTicks: p.ticks,
	}
	if p.filled == 0 {
		return st
	}

	var sum time.Duration
	phaseSum := make(map[string]time.Duration)
	for i, s := range p.window[:p.filled] {
		sum += s.total
		if i == 0 || s.total < st.MinTickDuration {
			st.MinTickDuration = s.total
		}
		if s.total > st.MaxTickDuration {
			st.MaxTickDuration = s.total
		}
		for phase, d := range s.phases {
			phaseSum[phase] += d
		}
	}

	n := time.Duration(p.filled)
	st.AvgTickDuration = sum / n
	for phase, d := range phaseSum {
		avg := d / n
		st.PhaseAvg[phase] = avg
		if st.AvgTickDuration > 0 {
			st.PhasePct[phase] = 100 * float64(avg) / float64(st.AvgTickDuration)
		}
	}
	if st.AvgTickDuration > 0 {
		st.TicksPerSecond = float64(time.Second) / float64(st.AvgTickDuration)
	}
	return st
}

// LogValue implements slog.LogValuer. Phase shares are emitted in tick
// order as <phase>_pct.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_ns", s.AvgTickDuration.Nanoseconds()),
		slog.Int64("min_tick_ns", s.MinTickDuration.Nanoseconds()),
		slog.Int64("max_tick_ns", s.MaxTickDuration.Nanoseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
		slog.Int("total_ticks", s.TotalTicks),
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv: a worker's stats with a column per
// tick phase.
type PerfStatsCSV struct {
	Worker      int     `csv:"worker"`
	TotalTicks  int     `csv:"total_ticks"`
	AvgTickNS   int64   `csv:"avg_tick_ns"`
	MinTickNS   int64   `csv:"min_tick_ns"`
	MaxTickNS   int64   `csv:"max_tick_ns"`
	TicksPerSec float64 `csv:"ticks_per_sec"`
	DecidePct   float64 `csv:"decide_pct"`
	MovePct     float64 `csv:"move_pct"`
	ClampPct    float64 `csv:"clamp_pct"`
	CollidePct  float64 `csv:"collide_pct"`
}

// ToCSV flattens s into the perf.csv row for worker.
func (s PerfStats) ToCSV(worker int) PerfStatsCSV {
	return PerfStatsCSV{
		Worker:      worker,
		TotalTicks:  s.TotalTicks,
		AvgTickNS:   s.AvgTickDuration.Nanoseconds(),
		MinTickNS:   s.MinTickDuration.Nanoseconds(),
		MaxTickNS:   s.MaxTickDuration.Nanoseconds(),
		TicksPerSec: s.TicksPerSecond,
		DecidePct:   s.PhasePct[sim.PhaseDecide],
		MovePct:     s.PhasePct[sim.PhaseMove],
		ClampPct:    s.PhasePct[sim.PhaseClamp],
		CollidePct:  s.PhasePct[sim.PhaseCollide],
	}
}
