package signals

import (
	"github.com/ducminhle1904/signal-optimizer/internal/indicators"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

const ParamWindowSize = "window_size"

// Fractal goes long on a confirmed bullish (swing-low) fractal and short on a
// confirmed bearish one. A fractal centred on bar j is only known once bar
// j+window has closed, so that is the bar that signals. Bars confirming both
// kinds stay Flat.
type Fractal struct{}

func (Fractal) Name() string { return "fractal" }

func (Fractal) DefaultSpace() *optimization.Space {
	return optimization.MustSpace(
		optimization.IntParam(ParamWindowSize, 1, 10),
		optimization.RealParam(ParamStopLossPct, 0.005, 0.1),
		optimization.RealParam(ParamTakeProfitPct, 0.005, 0.1),
	)
}

func (Fractal) Lookback(p optimization.Point) int {
	return 2*p.Int(ParamWindowSize) + 1
}

func (g Fractal) Generate(bars []types.OHLCV, p optimization.Point) ([]types.Signal, error) {
	periods, err := requirePeriods(g.Name(), p, ParamWindowSize)
	if err != nil {
		return nil, err
	}
	pct, err := requirePositive(g.Name(), p, ParamStopLossPct, ParamTakeProfitPct)
	if err != nil {
		return nil, err
	}

	bullish, bearish := indicators.ConfirmedFractals(bars, periods[0])

	out := flatSignals(bars)
	for i, bar := range bars {
		switch {
		case bullish[i] && !bearish[i]:
			out[i] = percentLevels(bar, types.Long, pct[0], pct[1])
		case bearish[i] && !bullish[i]:
			out[i] = percentLevels(bar, types.Short, pct[0], pct[1])
		}
	}
	return out, nil
}
