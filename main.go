package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/deadend/ai"
	"github.com/pthm-cable/deadend/config"
	"github.com/pthm-cable/deadend/sim"
	"github.com/pthm-cable/deadend/store"
	"github.com/pthm-cable/deadend/telemetry"
	"github.com/pthm-cable/deadend/trial"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, snapshots and config copy")
	episodes := flag.Int("episodes", -1, "Episodes per trial (-1 = use config)")
	workers := flag.Int("workers", -1, "Worker goroutines (-1 = use config, 0 = one per CPU)")
	seed := flag.Int64("seed", 0, "Seed of the first episode (0 = use config)")
	maxTicks := flag.Int("max-ticks", -1, "Tick limit per episode (-1 = use config, 0 = batch cap)")
	catAI := flag.String("cat", "", fmt.Sprintf("Cat strategy %v (empty = use config)", ai.Names()))
	dogAI := flag.String("dog", "", fmt.Sprintf("Dog strategy %v (empty = use config)", ai.Names()))
	storeKind := flag.String("store", "memory", "Trial store backend: memory or sqlite")
	dbPath := flag.String("db", "deadend.db", "SQLite database path for -store=sqlite")
	list := flag.Bool("list", false, "List stored trials and exit")
	replay := flag.String("replay", "", "Replay a bookmark snapshot and exit")
	script := flag.String("script", "", "Play one episode with the cat steered by a key script and exit")
	verbose := flag.Bool("v", false, "Log every tick and bookmark")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	opts := trial.OptionsFromConfig(cfg)
	if *episodes >= 0 {
		opts.Episodes = *episodes
	}
	if *workers >= 0 {
		opts.Workers = *workers
	}
	if *seed != 0 {
		opts.Seed = *seed
	}
	if *maxTicks >= 0 {
		opts.Sim.MaxTicks = *maxTicks
	}
	if *catAI != "" {
		opts.CatAI = *catAI
	}
	if *dogAI != "" {
		opts.DogAI = *dogAI
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch {
	case *replay != "":
		err = runReplay(*replay, opts)
	case *script != "":
		err = runScript(*script, opts)
	case *list:
		err = listTrials(ctx, *storeKind, *dbPath)
	default:
		err = runTrial(ctx, cfg, opts, *outputDir, *storeKind, *dbPath)
	}
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func runTrial(ctx context.Context, cfg *config.Config, opts trial.Options, outputDir, storeKind, dbPath string) error {
	om, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer om.Close()
	if err := om.WriteConfig(cfg); err != nil {
		return err
	}
	opts.Output = om

	st, err := store.New(storeKind, dbPath)
	if err != nil {
		return err
	}
	if err := st.Init(ctx); err != nil {
		return fmt.Errorf("opening %s store: %w", storeKind, err)
	}
	defer st.Close()

	slog.Info("starting trial",
		"episodes", opts.Episodes,
		"workers", opts.Workers,
		"cat_ai", opts.CatAI,
		"dog_ai", opts.DogAI,
		"seed", opts.Seed,
		"max_ticks", opts.Sim.MaxTicks,
	)

	res, err := trial.Run(ctx, opts)
	if err != nil {
		return err
	}
	res.Trial.LogStats()
	for w, ps := range res.Perf {
		slog.Debug("perf", "worker", w, "stats", ps)
	}

	id, err := st.SaveTrial(ctx, store.TrialRecord{
		CatAI:   opts.CatAI,
		DogAI:   opts.DogAI,
		Seed:    opts.Seed,
		Summary: res.Trial,
	})
	if err != nil {
		return fmt.Errorf("saving trial: %w", err)
	}

	fmt.Printf("%s episodes in %s: %s wins (%.1f%%), interest %.3f, %s bookmarks [trial %s]\n",
		humanize.Comma(int64(res.Trial.Episodes)),
		res.Elapsed.Round(time.Millisecond),
		humanize.Comma(int64(res.Trial.Wins)),
		100*res.Trial.WinRate,
		res.Trial.Interest,
		humanize.Comma(int64(len(res.Bookmarks))),
		id,
	)
	if om != nil {
		fmt.Printf("output written to %s\n", om.Dir())
	}
	return nil
}

func listTrials(ctx context.Context, storeKind, dbPath string) error {
	st, err := store.New(storeKind, dbPath)
	if err != nil {
		return err
	}
	if err := st.Init(ctx); err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.ListTrials(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		fmt.Printf("%s  %-14s %s vs %s  %s episodes  interest %.3f  win rate %.2f\n",
			rec.ID,
			humanize.Time(rec.CreatedAt),
			rec.CatAI, rec.DogAI,
			humanize.Comma(int64(rec.Summary.Episodes)),
			rec.Summary.Interest,
			rec.Summary.WinRate,
		)
	}
	return nil
}

func runReplay(path string, opts trial.Options) error {
	snap, err := telemetry.LoadSnapshot(path)
	if err != nil {
		return err
	}
	ep, err := trial.Replay(snap, opts)
	if err != nil {
		return err
	}
	slog.Info("replayed episode",
		"snapshot", filepath.Base(path),
		"episode", snap.Episode,
		"recorded_outcome", snap.Outcome,
		"recorded_ticks", snap.Ticks,
		"stats", ep,
	)
	if ep.Outcome.String() != snap.Outcome || ep.Ticks != snap.Ticks {
		return fmt.Errorf("replay diverged: got %s after %d ticks, recorded %s after %d",
			ep.Outcome, ep.Ticks, snap.Outcome, snap.Ticks)
	}
	return nil
}

func runScript(path string, opts trial.Options) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	s, err := trial.ParseScript(f)
	if err != nil {
		return err
	}
	ep, err := s.Play(opts, func(st sim.State) {
		slog.Debug("tick", "tick", st.Tick, "cat", st.Cat, "outcome", st.Outcome)
	})
	if err != nil {
		return err
	}
	slog.Info("script finished", "script", filepath.Base(path), "stats", ep)
	return nil
}
