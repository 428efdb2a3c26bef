package main

import (
	"context"
	"sync"

	"github.com/pthm-cable/deadend/config"
	"github.com/pthm-cable/deadend/telemetry"
	"github.com/pthm-cable/deadend/trial"
)

// FitnessEvaluator runs headless trials and scores a parameter vector.
type FitnessEvaluator struct {
	params     *ParamVector
	episodes   int
	seeds      []int64
	baseConfig *config.Config

	mu   sync.Mutex
	last telemetry.Trial // mean summary from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. Each evaluation plays
// episodes episodes for every seed.
func NewFitnessEvaluator(params *ParamVector, episodes int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		episodes:   episodes,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// Last returns the averaged trial summary from the most recent evaluation.
func (fe *FitnessEvaluator) Last() telemetry.Trial {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// Evaluate computes fitness for raw parameter values (lower = better).
// Fitness is the negative mean interest over all seeds.
func (fe *FitnessEvaluator) Evaluate(ctx context.Context, x []float64) (float64, error) {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	opts := trial.OptionsFromConfig(cfg)
	opts.Episodes = fe.episodes

	var mean telemetry.Trial
	for _, seed := range fe.seeds {
		opts.Seed = seed
		res, err := trial.Run(ctx, opts)
		if err != nil {
			return 0, err
		}
		mean.Episodes += res.Trial.Episodes
		mean.Wins += res.Trial.Wins
		mean.Captures += res.Trial.Captures
		mean.Reached += res.Trial.Reached
		mean.Timeouts += res.Trial.Timeouts
		mean.TickMean += res.Trial.TickMean
		mean.Duration += res.Trial.Duration
		mean.Spread += res.Trial.Spread
		mean.Entropy += res.Trial.Entropy
		mean.Interest += res.Trial.Interest
	}

	n := float64(len(fe.seeds))
	mean.TickMean /= n
	mean.Duration /= n
	mean.Spread /= n
	mean.Entropy /= n
	mean.Interest /= n
	if mean.Episodes > 0 {
		mean.WinRate = float64(mean.Wins) / float64(mean.Episodes)
	}
	fitness := -mean.Interest

	fe.mu.Lock()
	fe.last = mean
	fe.mu.Unlock()

	return fitness, nil
}

// copyConfig returns a copy of the base configuration. Config holds no
// reference fields, so a value copy is deep.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
