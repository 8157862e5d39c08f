package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	"github.com/ducminhle1904/signal-optimizer/internal/signals"
	"github.com/ducminhle1904/signal-optimizer/pkg/config"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// DefaultBacktestRunner binds one run configuration to a generator, an
// engine and a search space.
type DefaultBacktestRunner struct {
	cfg       *config.RunConfig
	generator signals.Generator
	engine    *backtest.Engine
	space     *optimization.Space
	metric    backtest.ObjectiveMetric
	tracker   SearchTracker
	observer  optimization.TrialObserver
	logger    *zap.Logger
}

// NewDefaultBacktestRunner resolves the generator, engine and space named by
// cfg. tracker and observer may be nil.
func NewDefaultBacktestRunner(cfg *config.RunConfig, tracker SearchTracker, observer optimization.TrialObserver, logger *zap.Logger) (*DefaultBacktestRunner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	generator, err := signals.New(cfg.Strategy.Name)
	if err != nil {
		return nil, err
	}
	space, err := generator.DefaultSpace().WithBounds(cfg.BoundOverrides())
	if err != nil {
		return nil, err
	}
	policy, err := backtest.ParseEndOfDataPolicy(cfg.Engine.EndOfData)
	if err != nil {
		return nil, err
	}
	metric, err := backtest.ParseObjectiveMetric(cfg.Engine.Metric)
	if err != nil {
		return nil, err
	}
	engine, err := backtest.NewEngine(backtest.EngineConfig{
		EndOfData:     policy,
		RefreshLevels: cfg.Engine.RefreshLevels,
	}, backtest.WithLogger(logger.Named("engine")))
	if err != nil {
		return nil, err
	}

	return &DefaultBacktestRunner{
		cfg:       cfg,
		generator: generator,
		engine:    engine,
		space:     space,
		metric:    metric,
		tracker:   tracker,
		observer:  observer,
		logger:    logger,
	}, nil
}

// Space returns the search space after bound overrides.
func (r *DefaultBacktestRunner) Space() *optimization.Space {
	return r.space
}

// RunWithData simulates one point, normalized into the space, on bars.
func (r *DefaultBacktestRunner) RunWithData(bars []types.OHLCV, p optimization.Point) (*backtest.RunResult, error) {
	result, _, err := backtest.RunStrategy(bars, r.generator, r.engine, r.space.Normalize(p))
	return result, err
}

// Optimize runs the configured searcher over bars, then refines its best
// point with the configured local searcher when the search succeeded.
func (r *DefaultBacktestRunner) Optimize(ctx context.Context, bars []types.OHLCV) (*SearchOutcome, error) {
	objective, err := backtest.NewObjective(bars, r.generator, r.engine, r.metric)
	if err != nil {
		return nil, err
	}
	opts, err := r.cfg.SearchOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = r.logger.Named("optimization")
	opts.Observer = r.observer

	search, err := r.search(ctx, r.cfg.SearcherConfig(), opts, objective)
	if err != nil {
		return nil, err
	}
	outcome := &SearchOutcome{Search: search}

	if r.cfg.Optimizer.Refine == "" || search.Status != optimization.StatusSucceeded || ctx.Err() != nil {
		return outcome, nil
	}
	refineOpts := opts
	refineOpts.MaxTrials = r.cfg.Optimizer.RefineTrials
	refine, err := r.search(ctx, optimization.SearcherConfig{
		Name:    r.cfg.Optimizer.Refine,
		Initial: search.BestPoint,
	}, refineOpts, objective)
	if err != nil {
		return nil, fmt.Errorf("refine: %w", err)
	}
	outcome.Refine = refine
	return outcome, nil
}

func (r *DefaultBacktestRunner) search(ctx context.Context, sc optimization.SearcherConfig, opts optimization.Options, objective optimization.Objective) (*optimization.Result, error) {
	searcher, err := optimization.NewSearcher(sc, opts)
	if err != nil {
		return nil, err
	}
	if r.tracker != nil {
		budget := opts.MaxTrials
		if budget <= 0 {
			budget = optimization.DefaultMaxTrials
		}
		r.tracker.Begin(searcher.Name(), budget)
		defer r.tracker.Finish(searcher.Name())
	}
	return searcher.Search(ctx, r.space, objective)
}
