package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/internal/exchange/bybit"
	"github.com/ducminhle1904/signal-optimizer/pkg/config"
	"github.com/ducminhle1904/signal-optimizer/pkg/data"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/reporting"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
	"github.com/ducminhle1904/signal-optimizer/pkg/validation"
)

// recentPenalties is how many penalized-trial errors are kept for logging.
const recentPenalties = 20

// DefaultOrchestrator implements the Orchestrator interface
type DefaultOrchestrator struct {
	loader         BarLoader
	source         bybit.KlineSource
	intervalRunner IntervalRunner
	tracker        SearchTracker
	logger         *zap.Logger
}

// Option customizes a DefaultOrchestrator.
type Option func(*DefaultOrchestrator)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(o *DefaultOrchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracker reports every search to tracker.
func WithTracker(tracker SearchTracker) Option {
	return func(o *DefaultOrchestrator) { o.tracker = tracker }
}

// WithLoader replaces the bar loader.
func WithLoader(loader BarLoader) Option {
	return func(o *DefaultOrchestrator) { o.loader = loader }
}

// WithKlineSource makes the default loader page klines from source instead
// of the Bybit API.
func WithKlineSource(source bybit.KlineSource) Option {
	return func(o *DefaultOrchestrator) { o.source = source }
}

// WithIntervalRunner replaces interval discovery.
func WithIntervalRunner(runner IntervalRunner) Option {
	return func(o *DefaultOrchestrator) { o.intervalRunner = runner }
}

// NewOrchestrator creates an orchestrator with default components
func NewOrchestrator(env config.Env, opts ...Option) *DefaultOrchestrator {
	o := &DefaultOrchestrator{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.loader == nil {
		o.loader = NewDefaultBarLoader(data.NewDataManager(o.logger), o.source, env, o.logger)
	}
	if o.intervalRunner == nil {
		o.intervalRunner = NewDefaultIntervalRunner(o.logger)
	}
	return o
}

// RunOptimization executes the load, search, re-run and validate workflow.
func (o *DefaultOrchestrator) RunOptimization(ctx context.Context, cfg *config.RunConfig) (*OptimizationResult, error) {
	log := o.logger.With(zap.String("generator", cfg.Strategy.Name), zap.String("searcher", cfg.Optimizer.Searcher))

	bars, err := o.loader.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}

	penalties := newPenaltyRecorder()
	var observer optimization.TrialObserver = penalties
	if o.tracker != nil {
		observer = multiObserver{o.tracker, penalties}
	}
	runner, err := NewDefaultBacktestRunner(cfg, o.tracker, observer, log)
	if err != nil {
		return nil, err
	}

	report := &reporting.Report{
		Symbol:    cfg.Data.Symbol,
		Interval:  cfg.Data.Interval,
		Generator: cfg.Strategy.Name,
		Metric:    cfg.Engine.Metric,
	}
	if report.Interval == "" && cfg.Data.Source == config.SourceCSV {
		report.Interval = reporting.ExtractIntervalFromPath(cfg.DataFile())
	}

	if cfg.Validation.Enable {
		summary, err := o.runWalkForwardValidation(ctx, runner, bars, cfg.Validation, log)
		if err != nil {
			return nil, fmt.Errorf("walk-forward validation: %w", err)
		}
		report.Validation = summary
	}

	log.Info("starting optimization", zap.Int("bars", len(bars)), zap.String("space", runner.Space().String()))
	outcome, err := runner.Optimize(ctx, bars)
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}
	report.Search, report.Refine = outcome.Search, outcome.Refine

	best := outcome.Best()
	report.BestPoint = best.BestPoint
	if best.Status == optimization.StatusSucceeded {
		report.Best, err = runner.RunWithData(bars, best.BestPoint)
		if err != nil {
			return nil, fmt.Errorf("re-run best point: %w", err)
		}
		log.Info("optimization completed",
			zap.String("best", best.BestPoint.Key()),
			zap.Float64("objective", best.BestObjective),
			zap.Int("trades", report.Best.TotalTrades))
	} else {
		log.Warn(best.Summary(), zap.Any("penalty_causes", penalties.counts()))
		for _, err := range penalties.recent() {
			log.Debug("penalized trial", zap.Error(err))
		}
	}

	return &OptimizationResult{Report: report, Bars: len(bars), PenaltyCauses: penalties.counts()}, nil
}

// RunSingleBacktest evaluates one point on the configured bars.
func (o *DefaultOrchestrator) RunSingleBacktest(ctx context.Context, cfg *config.RunConfig, p optimization.Point) (*backtest.RunResult, error) {
	bars, err := o.loader.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	runner, err := NewDefaultBacktestRunner(cfg, nil, nil, o.logger)
	if err != nil {
		return nil, err
	}
	if err := runner.Space().Validate(runner.Space().Normalize(p)); err != nil {
		return nil, err
	}
	return runner.RunWithData(bars, p)
}

// RunMultiIntervalAnalysis optimizes each interval with data under the data
// root and keeps the one with the highest objective.
func (o *DefaultOrchestrator) RunMultiIntervalAnalysis(ctx context.Context, cfg *config.RunConfig) (*IntervalAnalysisResult, error) {
	intervals, err := o.intervalRunner.FindAvailableIntervals(cfg.Data.DataRoot, cfg.Data.Exchange, cfg.Data.Symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to find available intervals: %w", err)
	}
	o.logger.Info("found intervals", zap.String("symbol", cfg.Data.Symbol), zap.Strings("intervals", intervals))

	analysis := &IntervalAnalysisResult{Symbol: cfg.Data.Symbol, Exchange: cfg.Data.Exchange}
	for _, interval := range intervals {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c := *cfg
		c.Data.Source = config.SourceCSV
		c.Data.Interval = interval
		c.Data.File = o.intervalRunner.LocateDataFile(cfg.Data.DataRoot, cfg.Data.Exchange, cfg.Data.Symbol, interval)

		res, err := o.RunOptimization(ctx, &c)
		if err != nil {
			o.logger.Warn("interval failed", zap.String("interval", interval), zap.Error(err))
			analysis.Results = append(analysis.Results, IntervalResult{Interval: interval, Error: err})
			continue
		}
		analysis.Results = append(analysis.Results, IntervalResult{Interval: interval, Result: res})
	}

	for i := range analysis.Results {
		r := &analysis.Results[i]
		if r.Result == nil || r.Result.Report.Final().Status != optimization.StatusSucceeded {
			continue
		}
		if analysis.BestResult == nil ||
			r.Result.Report.Final().BestObjective > analysis.BestResult.Result.Report.Final().BestObjective {
			analysis.BestResult = r
		}
	}
	if analysis.BestResult == nil {
		return analysis, apperrors.NewDataError("orchestrator", "multi_interval", "no interval produced valid parameters").
			WithContext("intervals", len(intervals))
	}
	return analysis, nil
}

func (o *DefaultOrchestrator) runWalkForwardValidation(ctx context.Context, runner *DefaultBacktestRunner, bars []types.OHLCV, wf validation.WalkForwardConfig, log *zap.Logger) (*validation.WalkForwardSummary, error) {
	optimizer := func(ctx context.Context, train []types.OHLCV) (*optimization.Result, error) {
		outcome, err := runner.Optimize(ctx, train)
		if err != nil {
			return nil, err
		}
		return outcome.Best(), nil
	}
	validator := validation.NewWalkForwardValidator(optimizer, runner.RunWithData, log)
	summary, err := validator.Validate(ctx, bars, wf)
	if err != nil {
		return nil, err
	}
	log.Info("walk-forward validation completed",
		zap.String("mode", summary.Mode),
		zap.Int("folds", len(summary.Results)),
		zap.Float64("degradation", summary.ReturnDegradation),
		zap.String("risk", summary.OverfittingRisk))
	return summary, nil
}

// multiObserver fans a trial out to several observers.
type multiObserver []optimization.TrialObserver

func (m multiObserver) ObserveTrial(searcher string, t optimization.Trial) {
	for _, obs := range m {
		obs.ObserveTrial(searcher, t)
	}
}

// penaltyRecorder counts why trials were penalized.
type penaltyRecorder struct {
	mu    sync.Mutex
	stats *apperrors.ErrorStats
}

func newPenaltyRecorder() *penaltyRecorder {
	return &penaltyRecorder{stats: apperrors.NewErrorStats(recentPenalties)}
}

func (p *penaltyRecorder) ObserveTrial(_ string, t optimization.Trial) {
	if t.State != optimization.TrialPenalized || t.Err == nil {
		return
	}
	err := t.Err
	var btErr *apperrors.BacktestError
	if !errors.As(err, &btErr) {
		err = apperrors.WrapError(err, apperrors.ErrorCategoryInvalidParameter, "optimization", "trial")
	}
	p.mu.Lock()
	p.stats.RecordError(err)
	p.mu.Unlock()
}

func (p *penaltyRecorder) counts() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.stats.ErrorsByCategory))
	for cat, n := range p.stats.ErrorsByCategory {
		out[string(cat)] = n
	}
	return out
}

func (p *penaltyRecorder) recent() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]error, len(p.stats.RecentErrors))
	for i, e := range p.stats.RecentErrors {
		out[i] = e
	}
	return out
}
