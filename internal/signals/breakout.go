package signals

import (
	"github.com/ducminhle1904/signal-optimizer/internal/indicators"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

const ParamChannelPeriod = "n"

// Breakout fades closes outside the prior N-bar channel: long when the close
// drops below the lowest low of the previous N bars, short when it rises above
// the highest high.
type Breakout struct{}

func (Breakout) Name() string { return "breakout" }

func (Breakout) DefaultSpace() *optimization.Space {
	return optimization.MustSpace(
		optimization.IntParam(ParamChannelPeriod, 2, 99),
		optimization.RealParam(ParamStopLossPct, 0.005, 0.1),
		optimization.RealParam(ParamTakeProfitPct, 0.005, 0.1),
	)
}

func (Breakout) Lookback(p optimization.Point) int {
	return p.Int(ParamChannelPeriod) + 1
}

func (g Breakout) Generate(bars []types.OHLCV, p optimization.Point) ([]types.Signal, error) {
	periods, err := requirePeriods(g.Name(), p, ParamChannelPeriod)
	if err != nil {
		return nil, err
	}
	pct, err := requirePositive(g.Name(), p, ParamStopLossPct, ParamTakeProfitPct)
	if err != nil {
		return nil, err
	}

	highs, lows := indicators.RollingExtremes(bars, periods[0])

	out := flatSignals(bars)
	for i, bar := range bars {
		if !indicators.Valid(highs[i], lows[i]) {
			continue
		}
		switch {
		case bar.Close < lows[i]:
			out[i] = percentLevels(bar, types.Long, pct[0], pct[1])
		case bar.Close > highs[i]:
			out[i] = percentLevels(bar, types.Short, pct[0], pct[1])
		}
	}
	return out, nil
}
