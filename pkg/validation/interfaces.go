// Package validation checks optimized parameters on data the search never saw,
// either with a single holdout split or with rolling walk-forward folds.
package validation

import (
	"context"
	"time"

	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// DataSplitter defines the interface for splitting data into train/test sets
type DataSplitter interface {
	SplitByRatio(data []types.OHLCV, ratio float64) ([]types.OHLCV, []types.OHLCV)
	CreateRollingFolds(data []types.OHLCV, cfg WalkForwardConfig) []WalkForwardFold
}

// Optimizer searches train bars and returns the search outcome.
type Optimizer func(ctx context.Context, train []types.OHLCV) (*optimization.Result, error)

// Backtester re-runs a point on bars it was not optimized on.
type Backtester func(bars []types.OHLCV, p optimization.Point) (*backtest.RunResult, error)

// WalkForwardConfig holds the configuration for walk-forward validation
type WalkForwardConfig struct {
	Enable     bool    `json:"enable" yaml:"enable"`
	Rolling    bool    `json:"rolling" yaml:"rolling"`
	SplitRatio float64 `json:"split_ratio" yaml:"split_ratio"`
	TrainDays  int     `json:"train_days" yaml:"train_days"`
	TestDays   int     `json:"test_days" yaml:"test_days"`
	RollDays   int     `json:"roll_days" yaml:"roll_days"`
	// MinTrainBars and MinTestBars reject folds that are too short.
	MinTrainBars int `json:"min_train_bars" yaml:"min_train_bars"`
	MinTestBars  int `json:"min_test_bars" yaml:"min_test_bars"`
}

// Defaults for fold sizes
const (
	DefaultSplitRatio   = 0.7
	DefaultMinTrainBars = 50
	DefaultMinTestBars  = 10
)

// WithDefaults fills zero fields with the package defaults.
func (c WalkForwardConfig) WithDefaults() WalkForwardConfig {
	if c.SplitRatio <= 0 || c.SplitRatio >= 1 {
		c.SplitRatio = DefaultSplitRatio
	}
	if c.MinTrainBars <= 0 {
		c.MinTrainBars = DefaultMinTrainBars
	}
	if c.MinTestBars <= 0 {
		c.MinTestBars = DefaultMinTestBars
	}
	if c.RollDays <= 0 {
		c.RollDays = c.TestDays
	}
	return c
}

// WalkForwardFold represents a single fold in walk-forward validation
type WalkForwardFold struct {
	Train      []types.OHLCV
	Test       []types.OHLCV
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// WalkForwardResults holds the results for a single fold
type WalkForwardResults struct {
	Fold         int
	TrainStart   time.Time
	TrainEnd     time.Time
	TestStart    time.Time
	TestEnd      time.Time
	Search       *optimization.Result
	TrainResults *backtest.RunResult
	TestResults  *backtest.RunResult
}

// WalkForwardSummary holds the summary of all walk-forward validation results.
// Returns are percentages. Drawdowns are in price units of the cumulative PnL curve.
type WalkForwardSummary struct {
	Mode                 string
	Results              []WalkForwardResults
	AverageTrainReturn   float64
	AverageTestReturn    float64
	TrainReturnStdDev    float64
	TestReturnStdDev     float64
	AverageTrainDrawdown float64
	AverageTestDrawdown  float64
	ReturnDegradation    float64
	IsRobust             bool
	OverfittingRisk      string
}
