package signals

import (
	"github.com/ducminhle1904/signal-optimizer/internal/indicators"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// Triple-EMA parameter names
const (
	ParamShortPeriod  = "short_period"
	ParamMediumPeriod = "medium_period"
	ParamLongPeriod   = "long_period"
)

// TripleEMA goes long when the short EMA is above the medium EMA and the long
// EMA is above the previous close, and short on the mirror condition.
// Levels are percentages of the entry close.
type TripleEMA struct{}

func (TripleEMA) Name() string { return "ema3" }

func (TripleEMA) DefaultSpace() *optimization.Space {
	return optimization.MustSpace(
		optimization.IntParam(ParamShortPeriod, 5, 20),
		optimization.IntParam(ParamMediumPeriod, 20, 50),
		optimization.IntParam(ParamLongPeriod, 50, 200),
		optimization.RealParam(ParamTakeProfitPct, 0.01, 0.1),
		optimization.RealParam(ParamStopLossPct, 0.01, 0.1),
	)
}

func (TripleEMA) Lookback(p optimization.Point) int {
	return maxInt(p.Int(ParamShortPeriod), p.Int(ParamMediumPeriod), p.Int(ParamLongPeriod), 2)
}

func (g TripleEMA) Generate(bars []types.OHLCV, p optimization.Point) ([]types.Signal, error) {
	periods, err := requirePeriods(g.Name(), p, ParamShortPeriod, ParamMediumPeriod, ParamLongPeriod)
	if err != nil {
		return nil, err
	}
	pct, err := requirePositive(g.Name(), p, ParamStopLossPct, ParamTakeProfitPct)
	if err != nil {
		return nil, err
	}

	short := indicators.Series(indicators.NewEMA(periods[0]), bars)
	medium := indicators.Series(indicators.NewEMA(periods[1]), bars)
	long := indicators.Series(indicators.NewEMA(periods[2]), bars)

	out := flatSignals(bars)
	for i := 1; i < len(bars); i++ {
		if !indicators.Valid(short[i], medium[i], long[i]) {
			continue
		}
		prevClose := bars[i-1].Close
		dir := types.Flat
		switch {
		case short[i] > medium[i] && long[i] > prevClose:
			dir = types.Long
		case short[i] < medium[i] && long[i] < prevClose:
			dir = types.Short
		}
		out[i] = percentLevels(bars[i], dir, pct[0], pct[1])
	}
	return out, nil
}
