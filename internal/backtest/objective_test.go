package backtest

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/internal/signals"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

func breakoutPoint(n int) optimization.Point {
	return optimization.Point{
		signals.ParamChannelPeriod: float64(n),
		signals.ParamStopLossPct:   0.03,
		signals.ParamTakeProfitPct: 0.03,
	}
}

// TestObjective_MatchesRunStrategy tests that the objective reports the re-run's metric and trade count
func TestObjective_MatchesRunStrategy(t *testing.T) {
	bars := generateTestData(200)
	engine := newTestEngine(t, EndOfDataClose)
	gen := signals.Breakout{}

	for _, metric := range []ObjectiveMetric{MetricCumulativePnL, MetricCumulativeReturn} {
		objective, err := NewObjective(bars, gen, engine, metric)
		require.NoError(t, err)

		ev := objective(context.Background(), breakoutPoint(5))
		require.NoError(t, ev.Err)

		result, sigs, err := RunStrategy(bars, gen, engine, breakoutPoint(5))
		require.NoError(t, err)
		assert.Len(t, sigs, len(bars))
		assert.Equal(t, metric.Value(result), ev.Value)
		assert.Equal(t, result.TotalTrades, ev.Trades)
	}
}

// TestObjective_LookbackTooLong tests that an oversized window is a per-point parameter error
func TestObjective_LookbackTooLong(t *testing.T) {
	bars := generateTestData(20)
	objective, err := NewObjective(bars, signals.Breakout{}, newTestEngine(t, EndOfDataClose), MetricCumulativePnL)
	require.NoError(t, err)

	ev := objective(context.Background(), breakoutPoint(50))
	require.Error(t, ev.Err)
	assert.True(t, apperrors.IsInvalidParameter(ev.Err))

	ev = objective(context.Background(), optimization.Point{signals.ParamChannelPeriod: 3, signals.ParamStopLossPct: -1, signals.ParamTakeProfitPct: 0.1})
	assert.True(t, apperrors.IsInvalidParameter(ev.Err))
}

func TestObjective_CancelledContext(t *testing.T) {
	objective, err := NewObjective(generateTestData(50), signals.Breakout{}, newTestEngine(t, EndOfDataClose), MetricCumulativePnL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev := objective(ctx, breakoutPoint(5))
	assert.ErrorIs(t, ev.Err, context.Canceled)
}

// TestNewObjective_BadBarsAreFatal tests that malformed data surfaces before any search
func TestNewObjective_BadBarsAreFatal(t *testing.T) {
	bars := generateTestData(10)
	bars[5].High = math.Inf(1)

	_, err := NewObjective(bars, signals.Breakout{}, newTestEngine(t, EndOfDataClose), MetricCumulativePnL)
	require.Error(t, err)
	assert.True(t, apperrors.IsDataError(err))

	_, err = NewObjective(generateTestData(10), nil, newTestEngine(t, EndOfDataClose), MetricCumulativePnL)
	assert.True(t, apperrors.IsConfigurationError(err))

	_, err = NewObjective(generateTestData(10), signals.Breakout{}, newTestEngine(t, EndOfDataClose), "sortino")
	assert.True(t, apperrors.IsConfigurationError(err))
}

// TestOptimizeBreakoutEndToEnd tests a real search over a generator space
func TestOptimizeBreakoutEndToEnd(t *testing.T) {
	bars := generateTestData(300)
	gen := signals.Breakout{}
	objective, err := NewObjective(bars, gen, newTestEngine(t, EndOfDataClose), MetricCumulativePnL)
	require.NoError(t, err)

	space, err := gen.DefaultSpace().WithBounds(map[string][2]float64{signals.ParamChannelPeriod: {2, 30}})
	require.NoError(t, err)

	searcher := optimization.NewTPESampler(optimization.Options{MaxTrials: 40, Workers: 4, Seed: 1}, optimization.TPEConfig{})
	result, err := searcher.Search(context.Background(), space, objective)
	require.NoError(t, err)

	require.NoError(t, space.Validate(result.BestPoint))
	rerun, _, err := RunStrategy(bars, gen, newTestEngine(t, EndOfDataClose), result.BestPoint)
	require.NoError(t, err)
	assert.Equal(t, result.BestObjective, rerun.CumulativePnL)
	if result.Status == optimization.StatusSucceeded {
		assert.Equal(t, result.BestTrades, rerun.TotalTrades)
	}
}

func TestParseObjectiveMetric(t *testing.T) {
	m, err := ParseObjectiveMetric("Cumulative_Return")
	require.NoError(t, err)
	assert.Equal(t, MetricCumulativeReturn, m)

	m, err = ParseObjectiveMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricCumulativePnL, m)

	r := &RunResult{CumulativePnL: 3, CumulativeReturn: 0.2}
	assert.Equal(t, 3.0, MetricCumulativePnL.Value(r))
	assert.Equal(t, 0.2, MetricCumulativeReturn.Value(r))
}
