package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// hourlyBars returns n hourly bars starting at midnight UTC.
func hourlyBars(n int) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.OHLCV, n)
	for i := range bars {
		p := 100 + float64(i%10)
		bars[i] = types.OHLCV{Timestamp: start.Add(time.Duration(i) * time.Hour), Open: p, High: p + 1, Low: p - 1, Close: p}
	}
	return bars
}

func TestSplitByRatio(t *testing.T) {
	bars := hourlyBars(100)

	train, test := SplitByRatio(bars, 0.7)
	assert.Len(t, train, 70)
	assert.Len(t, test, 30)
	assert.Equal(t, bars[70].Timestamp, test[0].Timestamp)

	for _, ratio := range []float64{0, 1, -0.5, 1.5, 0.001} {
		train, test = SplitByRatio(bars, ratio)
		assert.Len(t, train, 100, "ratio %v", ratio)
		assert.Nil(t, test)
	}
}

func TestCreateRollingFolds(t *testing.T) {
	bars := hourlyBars(30 * 24)
	folds := CreateRollingFolds(bars, WalkForwardConfig{TrainDays: 10, TestDays: 5, RollDays: 5})
	require.Len(t, folds, 4)

	for i, f := range folds {
		assert.Len(t, f.Train, 240, "fold %d", i)
		assert.Len(t, f.Test, 120, "fold %d", i)
		assert.True(t, f.TestStart.After(f.TrainEnd))
		assert.Equal(t, f.Train[len(f.Train)-1].Timestamp.Add(time.Hour), f.Test[0].Timestamp)
	}
	assert.Equal(t, bars[5*24].Timestamp, folds[1].TrainStart)

	assert.Empty(t, CreateRollingFolds(bars, WalkForwardConfig{TrainDays: 40, TestDays: 5}))
	assert.Empty(t, CreateRollingFolds(bars, WalkForwardConfig{}))
	assert.Empty(t, CreateRollingFolds(hourlyBars(20), WalkForwardConfig{TrainDays: 1, TestDays: 1}))
}

func TestCreateRollingFolds_RollDefaultsToTestDays(t *testing.T) {
	folds := CreateRollingFolds(hourlyBars(30*24), WalkForwardConfig{TrainDays: 10, TestDays: 10})
	require.Len(t, folds, 2)
	assert.Equal(t, folds[0].TestStart, folds[1].TrainStart)
}

func fakeOptimizer(calls *int) Optimizer {
	return func(ctx context.Context, train []types.OHLCV) (*optimization.Result, error) {
		*calls++
		return &optimization.Result{
			BestPoint: optimization.Point{"n": float64(len(train))},
			Status:    optimization.StatusSucceeded,
		}, nil
	}
}

// fakeBacktester earns 20% on train-sized windows and 10% on anything shorter.
func fakeBacktester(bars []types.OHLCV, p optimization.Point) (*backtest.RunResult, error) {
	r := backtest.NewRunResult(nil)
	if float64(len(bars)) >= p["n"] {
		r.CumulativeReturn = 0.2
	} else {
		r.CumulativeReturn = 0.1
	}
	return r, nil
}

func TestValidate_Holdout(t *testing.T) {
	calls := 0
	v := NewWalkForwardValidator(fakeOptimizer(&calls), fakeBacktester, nil)

	summary, err := v.Validate(context.Background(), hourlyBars(200), WalkForwardConfig{SplitRatio: 0.75})
	require.NoError(t, err)

	assert.Equal(t, ModeHoldout, summary.Mode)
	assert.Equal(t, 1, calls)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, 150.0, summary.Results[0].Search.BestPoint["n"])
	assert.InDelta(t, 20, summary.AverageTrainReturn, 1e-9)
	assert.InDelta(t, 10, summary.AverageTestReturn, 1e-9)
	assert.InDelta(t, 50, summary.ReturnDegradation, 1e-9)
	assert.Equal(t, "HIGH", summary.OverfittingRisk)
	assert.False(t, summary.IsRobust)
}

func TestValidate_Rolling(t *testing.T) {
	calls := 0
	v := NewWalkForwardValidator(fakeOptimizer(&calls), fakeBacktester, nil)

	summary, err := v.Validate(context.Background(), hourlyBars(30*24),
		WalkForwardConfig{Rolling: true, TrainDays: 10, TestDays: 5, RollDays: 5})
	require.NoError(t, err)

	assert.Equal(t, ModeRolling, summary.Mode)
	assert.Equal(t, 4, calls)
	assert.Len(t, summary.Results, 4)
	assert.Zero(t, summary.TrainReturnStdDev)
}

func TestValidate_Errors(t *testing.T) {
	calls := 0
	v := NewWalkForwardValidator(fakeOptimizer(&calls), fakeBacktester, nil)

	_, err := v.Validate(context.Background(), hourlyBars(30), WalkForwardConfig{})
	assert.True(t, apperrors.IsDataError(err))

	_, err = v.Validate(context.Background(), hourlyBars(100), WalkForwardConfig{Rolling: true, TrainDays: 30, TestDays: 30})
	assert.True(t, apperrors.IsDataError(err))

	_, err = NewWalkForwardValidator(nil, fakeBacktester, nil).Validate(context.Background(), hourlyBars(200), WalkForwardConfig{})
	assert.True(t, apperrors.IsConfigurationError(err))

	boom := errors.New("boom")
	failing := func(ctx context.Context, train []types.OHLCV) (*optimization.Result, error) { return nil, boom }
	_, err = NewWalkForwardValidator(failing, fakeBacktester, nil).Validate(context.Background(), hourlyBars(200), WalkForwardConfig{})
	assert.ErrorIs(t, err, boom)
}

func TestCalculateSummary(t *testing.T) {
	result := func(train, test float64) WalkForwardResults {
		tr, te := backtest.NewRunResult(nil), backtest.NewRunResult(nil)
		tr.CumulativeReturn, te.CumulativeReturn = train, test
		return WalkForwardResults{TrainResults: tr, TestResults: te}
	}

	s := CalculateSummary([]WalkForwardResults{result(0.10, 0.09), result(0.20, 0.19)})
	assert.InDelta(t, 15, s.AverageTrainReturn, 1e-9)
	assert.InDelta(t, 14, s.AverageTestReturn, 1e-9)
	assert.InDelta(t, 7.0710678, s.TrainReturnStdDev, 1e-6)
	assert.InDelta(t, 100.0/15, s.ReturnDegradation, 1e-9)
	assert.Equal(t, "LOW", s.OverfittingRisk)
	assert.True(t, s.IsRobust)

	s = CalculateSummary([]WalkForwardResults{result(0.10, 0.08)})
	assert.Equal(t, "MODERATE", s.OverfittingRisk)

	assert.Empty(t, CalculateSummary(nil).Results)
}
