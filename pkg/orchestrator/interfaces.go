// Package orchestrator wires loading, searching, re-running and validation
// into the workflows the command line tools expose.
package orchestrator

import (
	"context"

	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	"github.com/ducminhle1904/signal-optimizer/pkg/config"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/reporting"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// Orchestrator coordinates all optimization components and workflows
type Orchestrator interface {
	// RunOptimization loads bars, searches, re-runs the best point on every
	// bar and optionally validates it out of sample.
	RunOptimization(ctx context.Context, cfg *config.RunConfig) (*OptimizationResult, error)

	// RunSingleBacktest evaluates one point without searching.
	RunSingleBacktest(ctx context.Context, cfg *config.RunConfig, p optimization.Point) (*backtest.RunResult, error)

	// RunMultiIntervalAnalysis optimizes every interval found under the data root.
	RunMultiIntervalAnalysis(ctx context.Context, cfg *config.RunConfig) (*IntervalAnalysisResult, error)
}

// Workflow represents different execution workflows
type Workflow interface {
	Execute(ctx context.Context) (interface{}, error)
	GetWorkflowType() WorkflowType
}

// WorkflowType represents different types of workflows
type WorkflowType string

const (
	WorkflowTypeSingle       WorkflowType = "single"
	WorkflowTypeOptimization WorkflowType = "optimization"
	WorkflowTypeInterval     WorkflowType = "interval"
)

// SearchTracker follows searches as they run. monitoring.Monitor implements it.
type SearchTracker interface {
	optimization.TrialObserver
	Begin(searcher string, budget int)
	Finish(searcher string)
}

// BarLoader resolves the configured bar source and loads its range.
type BarLoader interface {
	Load(ctx context.Context, cfg *config.RunConfig) ([]types.OHLCV, error)
}

// BacktestRunner runs searches and single points over loaded bars.
type BacktestRunner interface {
	// RunWithData simulates one point on bars.
	RunWithData(bars []types.OHLCV, p optimization.Point) (*backtest.RunResult, error)

	// Optimize runs the configured search and the optional refinement.
	Optimize(ctx context.Context, bars []types.OHLCV) (*SearchOutcome, error)
}

// IntervalRunner interface for multi-interval operations
type IntervalRunner interface {
	// FindAvailableIntervals discovers all available intervals for a symbol
	FindAvailableIntervals(dataRoot, exchange, symbol string) ([]string, error)

	// LocateDataFile resolves the candles file of one interval, or "".
	LocateDataFile(dataRoot, exchange, symbol, interval string) string
}

// SearchOutcome is a global search and its optional local refinement.
type SearchOutcome struct {
	Search *optimization.Result
	Refine *optimization.Result
}

// Best returns the stage whose best point is kept.
func (o *SearchOutcome) Best() *optimization.Result {
	return optimization.Better(o.Search, o.Refine)
}

// OptimizationResult is the outcome of RunOptimization.
type OptimizationResult struct {
	Report *reporting.Report
	Bars   int
	// PenaltyCauses counts penalized trials by error category.
	PenaltyCauses map[string]int
}

// IntervalResult represents results for a single interval
type IntervalResult struct {
	Interval string
	Result   *OptimizationResult
	Error    error
}

// IntervalAnalysisResult represents results from multi-interval analysis
type IntervalAnalysisResult struct {
	Results    []IntervalResult
	BestResult *IntervalResult
	Symbol     string
	Exchange   string
}
