package validation

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// Validation modes
const (
	ModeHoldout = "holdout"
	ModeRolling = "rolling"
)

// Overfitting risk thresholds on return degradation, in percent
const (
	HighRiskDegradation     = 30
	ModerateRiskDegradation = 15
)

// WalkForwardValidator optimizes on train windows and re-runs the best point
// on the following test window.
type WalkForwardValidator struct {
	splitter   DataSplitter
	optimizer  Optimizer
	backtester Backtester
	logger     *zap.Logger
}

// NewWalkForwardValidator creates a validator. A nil logger is replaced by a no-op one.
func NewWalkForwardValidator(optimizer Optimizer, backtester Backtester, logger *zap.Logger) *WalkForwardValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalkForwardValidator{
		splitter:   NewDefaultDataSplitter(),
		optimizer:  optimizer,
		backtester: backtester,
		logger:     logger.Named("validation"),
	}
}

// Validate runs holdout or rolling validation depending on cfg.Rolling
func (v *WalkForwardValidator) Validate(ctx context.Context, data []types.OHLCV, cfg WalkForwardConfig) (*WalkForwardSummary, error) {
	if v.optimizer == nil || v.backtester == nil {
		return nil, apperrors.NewConfigurationError("validation", "validate", "optimizer and backtester are required")
	}
	cfg = cfg.WithDefaults()

	var folds []WalkForwardFold
	mode := ModeHoldout
	if cfg.Rolling {
		mode = ModeRolling
		folds = v.splitter.CreateRollingFolds(data, cfg)
		if len(folds) == 0 {
			return nil, apperrors.NewDataError("validation", "validate", "not enough data for rolling walk-forward validation").
				WithContext("bars", len(data)).
				WithContext("train_days", cfg.TrainDays).
				WithContext("test_days", cfg.TestDays)
		}
	} else {
		train, test := v.splitter.SplitByRatio(data, cfg.SplitRatio)
		if len(train) < cfg.MinTrainBars || len(test) < cfg.MinTestBars {
			return nil, apperrors.NewDataError("validation", "validate", "not enough data for holdout validation").
				WithContext("train", len(train)).
				WithContext("test", len(test))
		}
		folds = []WalkForwardFold{{
			Train:      train,
			Test:       test,
			TrainStart: train[0].Timestamp,
			TrainEnd:   train[len(train)-1].Timestamp,
			TestStart:  test[0].Timestamp,
			TestEnd:    test[len(test)-1].Timestamp,
		}}
	}

	v.logger.Info("starting validation", zap.String("mode", mode), zap.Int("folds", len(folds)))

	results := make([]WalkForwardResults, 0, len(folds))
	for i, fold := range folds {
		r, err := v.runFold(ctx, i+1, fold)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}

	summary := CalculateSummary(results)
	summary.Mode = mode
	return summary, nil
}

func (v *WalkForwardValidator) runFold(ctx context.Context, n int, fold WalkForwardFold) (*WalkForwardResults, error) {
	search, err := v.optimizer(ctx, fold.Train)
	if err != nil {
		return nil, fmt.Errorf("optimization failed for fold %d: %w", n, err)
	}

	train, err := v.backtester(fold.Train, search.BestPoint)
	if err != nil {
		return nil, fmt.Errorf("train re-run failed for fold %d: %w", n, err)
	}
	test, err := v.backtester(fold.Test, search.BestPoint)
	if err != nil {
		return nil, fmt.Errorf("test run failed for fold %d: %w", n, err)
	}

	v.logger.Info("fold complete",
		zap.Int("fold", n),
		zap.Time("train_start", fold.TrainStart),
		zap.Time("test_end", fold.TestEnd),
		zap.String("best", search.BestPoint.Key()),
		zap.Float64("train_return", train.CumulativeReturn),
		zap.Float64("test_return", test.CumulativeReturn))

	return &WalkForwardResults{
		Fold:         n,
		TrainStart:   fold.TrainStart,
		TrainEnd:     fold.TrainEnd,
		TestStart:    fold.TestStart,
		TestEnd:      fold.TestEnd,
		Search:       search,
		TrainResults: train,
		TestResults:  test,
	}, nil
}

// CalculateSummary averages fold results and grades the train/test gap
func CalculateSummary(results []WalkForwardResults) *WalkForwardSummary {
	if len(results) == 0 {
		return &WalkForwardSummary{}
	}

	n := len(results)
	trainReturns := make([]float64, n)
	testReturns := make([]float64, n)
	trainDrawdowns := make([]float64, n)
	testDrawdowns := make([]float64, n)
	for i, r := range results {
		trainReturns[i] = r.TrainResults.CumulativeReturn * 100
		testReturns[i] = r.TestResults.CumulativeReturn * 100
		trainDrawdowns[i] = r.TrainResults.MaxDrawdown
		testDrawdowns[i] = r.TestResults.MaxDrawdown
	}

	avgTrain, trainSD := meanStdDev(trainReturns)
	avgTest, testSD := meanStdDev(testReturns)
	degradation := ((avgTrain - avgTest) / math.Max(0.01, math.Abs(avgTrain))) * 100

	risk := "LOW"
	switch {
	case degradation > HighRiskDegradation:
		risk = "HIGH"
	case degradation > ModerateRiskDegradation:
		risk = "MODERATE"
	}

	return &WalkForwardSummary{
		Results:              results,
		AverageTrainReturn:   avgTrain,
		AverageTestReturn:    avgTest,
		TrainReturnStdDev:    trainSD,
		TestReturnStdDev:     testSD,
		AverageTrainDrawdown: stat.Mean(trainDrawdowns, nil),
		AverageTestDrawdown:  stat.Mean(testDrawdowns, nil),
		ReturnDegradation:    degradation,
		IsRobust:             degradation <= HighRiskDegradation,
		OverfittingRisk:      risk,
	}
}

// meanStdDev uses the sample standard deviation, 0 for a single value
func meanStdDev(values []float64) (float64, float64) {
	if len(values) < 2 {
		return stat.Mean(values, nil), 0
	}
	return stat.MeanStdDev(values, nil)
}
