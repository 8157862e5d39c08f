package signals

import (
	"github.com/ducminhle1904/signal-optimizer/internal/indicators"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

const ParamFisherPeriod = "fisher_period"

// Fisher goes long while the cumulative Fisher transform is positive and the
// close is above its EMA, and short on the mirror condition.
type Fisher struct{}

func (Fisher) Name() string { return "fisher" }

func (Fisher) DefaultSpace() *optimization.Space {
	return optimization.MustSpace(
		optimization.IntParam(ParamFisherPeriod, 5, 50),
		optimization.IntParam(ParamEMAPeriod, 5, 100),
		optimization.RealParam(ParamTakeProfitPct, 0.005, 0.1),
		optimization.RealParam(ParamStopLossPct, 0.005, 0.1),
	)
}

func (Fisher) Lookback(p optimization.Point) int {
	return maxInt(p.Int(ParamFisherPeriod), p.Int(ParamEMAPeriod))
}

func (g Fisher) Generate(bars []types.OHLCV, p optimization.Point) ([]types.Signal, error) {
	periods, err := requirePeriods(g.Name(), p, ParamFisherPeriod, ParamEMAPeriod)
	if err != nil {
		return nil, err
	}
	pct, err := requirePositive(g.Name(), p, ParamStopLossPct, ParamTakeProfitPct)
	if err != nil {
		return nil, err
	}

	fisher := indicators.CumulativeFisher(bars, periods[0])
	ema := indicators.Series(indicators.NewEMA(periods[1]), bars)

	out := flatSignals(bars)
	for i, bar := range bars {
		if !indicators.Valid(fisher[i], ema[i]) {
			continue
		}
		dir := types.Flat
		switch {
		case fisher[i] > 0 && bar.Close > ema[i]:
			dir = types.Long
		case fisher[i] < 0 && bar.Close < ema[i]:
			dir = types.Short
		}
		out[i] = percentLevels(bar, dir, pct[0], pct[1])
	}
	return out, nil
}
