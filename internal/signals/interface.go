// Package signals turns indicator series into per-bar Long/Short/Flat
// signals carrying stop-loss and take-profit levels.
package signals

import (
	"fmt"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// Generator produces one signal per bar from the bars up to and including
// that bar. Implementations hold no per-run state and are safe for
// concurrent use.
type Generator interface {
	Name() string
	// DefaultSpace is the searchable parameter space.
	DefaultSpace() *optimization.Space
	// Lookback is the number of bars needed before the first signal can fire.
	Lookback(p optimization.Point) int
	// Generate returns an INVALID_PARAMETER error for an unusable point.
	Generate(bars []types.OHLCV, p optimization.Point) ([]types.Signal, error)
}

// Parameter names shared by the percent-based generators
const (
	ParamTakeProfitPct = "tp_percent"
	ParamStopLossPct   = "sl_percent"
)

func invalidParam(generator, name string, value float64) error {
	return apperrors.NewInvalidParameterError("signals", generator,
		fmt.Sprintf("%s must be positive, got %v", name, value)).
		WithContext("param", name)
}

// requirePeriods reads integer fields that must be at least 1.
func requirePeriods(generator string, p optimization.Point, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		v := p.Int(name)
		if v < 1 {
			return nil, invalidParam(generator, name, p[name])
		}
		out[i] = v
	}
	return out, nil
}

// requirePositive reads real fields that must be strictly positive.
func requirePositive(generator string, p optimization.Point, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v := p.Float(name)
		if !(v > 0) {
			return nil, invalidParam(generator, name, v)
		}
		out[i] = v
	}
	return out, nil
}

// flatSignals returns an all-Flat stream aligned with bars.
func flatSignals(bars []types.OHLCV) []types.Signal {
	out := make([]types.Signal, len(bars))
	for i, bar := range bars {
		out[i] = types.FlatSignal(bar.Timestamp)
	}
	return out
}

// withLevels builds a directional signal, falling back to Flat when the
// levels would not be usable.
func withLevels(bar types.OHLCV, dir types.Direction, stopLoss, takeProfit float64) types.Signal {
	sig := types.Signal{Timestamp: bar.Timestamp, Direction: dir, StopLoss: stopLoss, TakeProfit: takeProfit}
	if dir == types.Flat || !sig.HasValidLevels() {
		return types.FlatSignal(bar.Timestamp)
	}
	return sig
}

// percentLevels places levels at a fraction of the close.
func percentLevels(bar types.OHLCV, dir types.Direction, slPct, tpPct float64) types.Signal {
	switch dir {
	case types.Long:
		return withLevels(bar, dir, bar.Close*(1-slPct), bar.Close*(1+tpPct))
	case types.Short:
		return withLevels(bar, dir, bar.Close*(1+slPct), bar.Close*(1-tpPct))
	default:
		return types.FlatSignal(bar.Timestamp)
	}
}

// distanceLevels places levels at absolute distances from the close.
func distanceLevels(bar types.OHLCV, dir types.Direction, slDist, tpDist float64) types.Signal {
	switch dir {
	case types.Long:
		return withLevels(bar, dir, bar.Close-slDist, bar.Close+tpDist)
	case types.Short:
		return withLevels(bar, dir, bar.Close+slDist, bar.Close-tpDist)
	default:
		return types.FlatSignal(bar.Timestamp)
	}
}

func maxInt(values ...int) int {
	m := 0
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}
