// Package trial runs batches of independent episodes and scores them.
package trial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/deadend/ai"
	"github.com/pthm-cable/deadend/config"
	"github.com/pthm-cable/deadend/sim"
	"github.com/pthm-cable/deadend/telemetry"
)

// dogSeedOffset keeps the dog strategy's random stream apart from the cat's.
const dogSeedOffset = 1 << 32

// ctxCheckInterval is how many ticks play runs between context checks.
const ctxCheckInterval = 64

// ErrInvalid is returned for options no batch can run with.
var ErrInvalid = errors.New("trial: invalid options")

// Options configures a batch.
type Options struct {
	Episodes int
	Workers  int // 0 = GOMAXPROCS
	CatAI    string
	DogAI    string
	Seed     int64 // episode i uses Seed+i

	RandomLayout bool
	Sim          sim.Options
	AI           ai.Params
	Interest     telemetry.Params

	Bookmarks   config.BookmarksConfig
	MinTicks    int // unopposed run length, for goal sprint bookmarks
	HistorySize int
	PerfWindow  int

	// Output receives CSV rows and bookmark snapshots when non-nil.
	Output *telemetry.OutputManager
}

// OptionsFromConfig builds batch options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	so := sim.OptionsFromConfig(cfg)
	so.MaxTicks = cfg.Derived.MaxTicks

	return Options{
		Episodes:     cfg.Trial.Episodes,
		Workers:      cfg.Trial.Workers,
		CatAI:        cfg.Trial.CatAI,
		DogAI:        cfg.Trial.DogAI,
		Seed:         cfg.Trial.Seed,
		RandomLayout: cfg.Trial.Layout == "random",
		Sim:          so,
		AI: ai.Params{Potential: ai.PotentialField{
			Repulsion:    cfg.Potential.Repulsion,
			Attraction:   cfg.Potential.Attraction,
			StepFraction: cfg.Potential.StepFraction,
			VetoCost:     cfg.Potential.VetoCost,
		}},
		Interest:    telemetry.ParamsFromConfig(cfg),
		Bookmarks:   cfg.Bookmarks,
		MinTicks:    cfg.Derived.MinTicks,
		HistorySize: cfg.Telemetry.BookmarkHistorySize,
		PerfWindow:  cfg.Telemetry.PerfCollectorWindow,
	}
}

// Result holds a finished batch.
type Result struct {
	Logger    *telemetry.DataLogger // every episode, in episode order
	Trial     telemetry.Trial
	Records   []telemetry.EpisodeRecord
	Bookmarks []telemetry.Bookmark
	Perf      []telemetry.PerfStats // one per worker
	Elapsed   time.Duration
}

// episode is one sealed run plus what is needed to replay it.
type episode struct {
	seed   int64
	layout sim.Layout
	stats  telemetry.EpisodeStats
}

// Run plays opts.Episodes episodes across worker goroutines. Each worker owns
// its Simulations, DataLogger and PerfCollector; episodes are merged in index
// order once every worker is done, so results do not depend on the worker count.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Episodes < 0 {
		return nil, fmt.Errorf("%w: %d episodes", ErrInvalid, opts.Episodes)
	}
	catF, err := ai.New(opts.CatAI, opts.AI)
	if err != nil {
		return nil, fmt.Errorf("%w: cat: %v", ErrInvalid, err)
	}
	dogF, err := ai.New(opts.DogAI, opts.AI)
	if err != nil {
		return nil, fmt.Errorf("%w: dog: %v", ErrInvalid, err)
	}
	if err := opts.Sim.Validate(); err != nil {
		return nil, err
	}
	opts.Sim = capTicks(opts.Sim)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = max(1, min(workers, opts.Episodes))

	start := time.Now()
	runs := make([]episode, opts.Episodes)
	perf := make([]*telemetry.PerfCollector, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		perf[w] = telemetry.NewPerfCollector(opts.PerfWindow)
		g.Go(func() error {
			logger := telemetry.NewDataLogger(opts.Interest)
			for i := w; i < opts.Episodes; i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				seed := opts.Seed + int64(i)
				layout := layoutFor(seed, opts)
				if err := play(gctx, logger, seed, layout, catF, dogF, opts.Sim, perf[w]); err != nil {
					return fmt.Errorf("episode %d: %w", i, err)
				}
				eps := logger.Episodes()
				runs[i] = episode{seed: seed, layout: layout, stats: eps[len(eps)-1]}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Logger: telemetry.NewDataLogger(opts.Interest)}
	detector := telemetry.NewBookmarkDetector(opts.Bookmarks, opts.MinTicks, opts.HistorySize)
	for i, r := range runs {
		res.Logger.Add(r.stats)
		res.Records = append(res.Records, telemetry.NewEpisodeRecord(i, r.seed, r.stats))
		for _, b := range detector.Check(i, r.stats) {
			res.Bookmarks = append(res.Bookmarks, b)
			if err := saveBookmark(opts, i, r, b); err != nil {
				return nil, err
			}
		}
	}
	for _, pc := range perf {
		res.Perf = append(res.Perf, pc.Stats())
	}
	res.Trial = res.Logger.Trial(opts.Interest.Exponents)
	res.Elapsed = time.Since(start)

	if err := writeOutput(opts.Output, res); err != nil {
		return nil, err
	}

	slog.Debug("trial finished", "episodes", opts.Episodes, "workers", workers, "elapsed", res.Elapsed)
	return res, nil
}

func layoutFor(seed int64, opts Options) sim.Layout {
	if opts.RandomLayout {
		return sim.RandomLayout(rand.New(rand.NewSource(seed)), opts.Sim)
	}
	return sim.DefaultLayout(opts.Sim)
}

// capTicks bounds episodes that have no tick limit, so that two passive
// strategies cannot keep a worker busy forever.
func capTicks(so sim.Options) sim.Options {
	if so.MaxTicks == 0 {
		so.MaxTicks = config.BatchMaxTicks
	}
	return so
}

// play runs one episode to completion and seals it in logger. It stops early
// with ctx's error once ctx is done.
func play(ctx context.Context, logger *telemetry.DataLogger, seed int64, layout sim.Layout, catF, dogF ai.Factory, so sim.Options, timer sim.PhaseTimer) error {
	so.Layout = &layout
	so.Phases = timer

	s, err := sim.New(catF(seed), dogF(seed+dogSeedOffset), so)
	if err != nil {
		return err
	}
	if err := logger.GameStarted(s.FieldSize(), s.CurrentState().Dogs); err != nil {
		return err
	}
	for tick := 0; !s.Over(); tick++ {
		if tick%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := logger.GameTicked(s.Tick()); err != nil {
			return err
		}
	}
	return logger.GameEnded(s.CurrentState().Win)
}

func snapshotOf(opts Options, index int, r episode) *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		Episode: index,
		Seed:    r.seed,
		CatAI:   opts.CatAI,
		DogAI:   opts.DogAI,
		Field:   opts.Sim.Field,
		Cat:     telemetry.PointOf(r.layout.Cat),
		Goal:    telemetry.PointOf(r.layout.Goal),
		Outcome: r.stats.Outcome.String(),
		Ticks:   r.stats.Ticks,
	}
	for _, d := range r.layout.Dogs {
		snap.Dogs = append(snap.Dogs, telemetry.PointOf(d))
	}
	return snap
}

func saveBookmark(opts Options, index int, r episode, b telemetry.Bookmark) error {
	b.LogBookmark()
	if opts.Output == nil {
		return nil
	}
	if err := opts.Output.WriteBookmark(b); err != nil {
		return err
	}
	snap := snapshotOf(opts, index, r)
	snap.Bookmark = &b
	if _, err := telemetry.SaveSnapshot(snap, opts.Output.SnapshotDir()); err != nil {
		return err
	}
	return nil
}

func writeOutput(om *telemetry.OutputManager, res *Result) error {
	if om == nil {
		return nil
	}
	if err := om.WriteEpisodes(res.Records); err != nil {
		return err
	}
	if err := om.WriteTrial(res.Trial); err != nil {
		return err
	}
	for w, ps := range res.Perf {
		if err := om.WritePerf(ps, w); err != nil {
			return err
		}
	}
	return nil
}

// Replay re-runs the episode a snapshot describes. The strategies, seed and
// layout come from the snapshot; bodies, tick limit and AI tunables from opts.
func Replay(snap *telemetry.Snapshot, opts Options) (telemetry.EpisodeStats, error) {
	catF, err := ai.New(snap.CatAI, opts.AI)
	if err != nil {
		return telemetry.EpisodeStats{}, fmt.Errorf("%w: cat: %v", ErrInvalid, err)
	}
	dogF, err := ai.New(snap.DogAI, opts.AI)
	if err != nil {
		return telemetry.EpisodeStats{}, fmt.Errorf("%w: dog: %v", ErrInvalid, err)
	}

	layout := sim.Layout{Cat: snap.Cat.Vec2(), Goal: snap.Goal.Vec2()}
	for _, d := range snap.Dogs {
		layout.Dogs = append(layout.Dogs, d.Vec2())
	}
	so := capTicks(opts.Sim)
	so.Field = snap.Field
	so.NumDogs = len(layout.Dogs)

	logger := telemetry.NewDataLogger(opts.Interest)
	if err := play(context.Background(), logger, snap.Seed, layout, catF, dogF, so, nil); err != nil {
		return telemetry.EpisodeStats{}, err
	}
	return logger.Episodes()[0], nil
}
