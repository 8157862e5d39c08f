package signals

import (
	"github.com/ducminhle1904/signal-optimizer/internal/indicators"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// Ichimoku parameter names
const (
	ParamConversionPeriod = "conversion_period"
	ParamBasePeriod       = "base_period"
	ParamEMAPeriod        = "ema_period"
	ParamATRPeriod        = "atr_period"
	ParamSLMultiplier     = "sl_multiplier"
	ParamTPMultiplier     = "tp_multiplier"
)

// Ichimoku trades the conversion/base line cross filtered by an EMA of the
// close. Levels sit a multiple of ATR away from the entry close.
type Ichimoku struct{}

func (Ichimoku) Name() string { return "ichimoku" }

func (Ichimoku) DefaultSpace() *optimization.Space {
	return optimization.MustSpace(
		optimization.IntParam(ParamConversionPeriod, 5, 30),
		optimization.IntParam(ParamBasePeriod, 20, 60),
		optimization.IntParam(ParamEMAPeriod, 10, 200),
		optimization.IntParam(ParamATRPeriod, 5, 30),
		optimization.RealParam(ParamSLMultiplier, 0.5, 5),
		optimization.RealParam(ParamTPMultiplier, 0.5, 5),
	)
}

func (Ichimoku) Lookback(p optimization.Point) int {
	return maxInt(p.Int(ParamConversionPeriod), p.Int(ParamBasePeriod), p.Int(ParamEMAPeriod), p.Int(ParamATRPeriod))
}

func (g Ichimoku) Generate(bars []types.OHLCV, p optimization.Point) ([]types.Signal, error) {
	periods, err := requirePeriods(g.Name(), p, ParamConversionPeriod, ParamBasePeriod, ParamEMAPeriod, ParamATRPeriod)
	if err != nil {
		return nil, err
	}
	mult, err := requirePositive(g.Name(), p, ParamSLMultiplier, ParamTPMultiplier)
	if err != nil {
		return nil, err
	}

	conversion, base := indicators.IchimokuLines(bars, periods[0], periods[1])
	ema := indicators.Series(indicators.NewEMA(periods[2]), bars)
	atr := indicators.Series(indicators.NewATR(periods[3]), bars)

	out := flatSignals(bars)
	for i, bar := range bars {
		if !indicators.Valid(conversion[i], base[i], ema[i], atr[i]) {
			continue
		}
		dir := types.Flat
		switch {
		case conversion[i] > base[i] && bar.Close > ema[i]:
			dir = types.Long
		case conversion[i] < base[i] && bar.Close < ema[i]:
			dir = types.Short
		}
		out[i] = distanceLevels(bar, dir, atr[i]*mult[0], atr[i]*mult[1])
	}
	return out, nil
}
