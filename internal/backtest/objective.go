package backtest

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/internal/signals"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// ObjectiveMetric selects the scalar a search maximizes.
type ObjectiveMetric string

const (
	// MetricCumulativePnL is the sum of absolute per-unit PnL.
	MetricCumulativePnL ObjectiveMetric = "cumulative_pnl"
	// MetricCumulativeReturn is the compounded per-trade return.
	MetricCumulativeReturn ObjectiveMetric = "cumulative_return"
)

// ParseObjectiveMetric accepts the metric names, case-insensitive.
func ParseObjectiveMetric(s string) (ObjectiveMetric, error) {
	switch m := ObjectiveMetric(strings.ToLower(strings.TrimSpace(s))); m {
	case MetricCumulativePnL, MetricCumulativeReturn:
		return m, nil
	case "":
		return MetricCumulativePnL, nil
	default:
		return "", apperrors.NewConfigurationError("backtest", "parse_metric",
			fmt.Sprintf("unknown objective %q (use cumulative_pnl or cumulative_return)", s))
	}
}

// Value extracts the metric from a run.
func (m ObjectiveMetric) Value(r *RunResult) float64 {
	if m == MetricCumulativeReturn {
		return r.CumulativeReturn
	}
	return r.CumulativePnL
}

// NewObjective binds bars, a generator and an engine into an optimizer
// objective. Bars are validated once here; a malformed series is a DATA error
// returned to the caller. Per-point failures (bad parameters, lookback longer
// than the series) come back as Evaluation.Err for the optimizer to penalize.
func NewObjective(bars []types.OHLCV, generator signals.Generator, engine *Engine, metric ObjectiveMetric) (optimization.Objective, error) {
	if generator == nil || engine == nil {
		return nil, apperrors.NewConfigurationError("backtest", "new_objective", "generator and engine are required")
	}
	if _, err := ParseObjectiveMetric(string(metric)); err != nil {
		return nil, err
	}
	if err := ValidateBars(bars); err != nil {
		return nil, err
	}

	return func(ctx context.Context, p optimization.Point) optimization.Evaluation {
		if err := ctx.Err(); err != nil {
			return optimization.Evaluation{Err: err}
		}
		result, _, err := runValidated(bars, generator, engine, p)
		if err != nil {
			return optimization.Evaluation{Err: err}
		}
		return optimization.Evaluation{Value: metric.Value(result), Trades: result.TotalTrades}
	}, nil
}

// RunStrategy generates signals for a point and simulates them. It is the
// single-run counterpart of NewObjective, used to re-run the winning point.
func RunStrategy(bars []types.OHLCV, generator signals.Generator, engine *Engine, p optimization.Point) (*RunResult, []types.Signal, error) {
	if err := ValidateBars(bars); err != nil {
		return nil, nil, err
	}
	return runValidated(bars, generator, engine, p)
}

func runValidated(bars []types.OHLCV, generator signals.Generator, engine *Engine, p optimization.Point) (*RunResult, []types.Signal, error) {
	if need := generator.Lookback(p); need > len(bars) {
		return nil, nil, apperrors.NewInvalidParameterError("backtest", "run_strategy",
			fmt.Sprintf("needs %d bars of lookback, have %d", need, len(bars))).
			WithContext("generator", generator.Name())
	}
	sigs, err := generator.Generate(bars, p)
	if err != nil {
		return nil, nil, fmt.Errorf("generate %s signals: %w", generator.Name(), err)
	}
	if err := ValidateSignals(bars, sigs); err != nil {
		return nil, nil, err
	}
	return engine.simulate(bars, sigs), sigs, nil
}
