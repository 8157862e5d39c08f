package indicators

import (
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// IchimokuLines computes the conversion (tenkan) and base (kijun) lines: the
// Donchian midpoints over the two periods.
func IchimokuLines(bars []types.OHLCV, conversionPeriod, basePeriod int) (conversion, base []float64) {
	conversion = Series(NewDonchianChannels(conversionPeriod), bars)
	base = Series(NewDonchianChannels(basePeriod), bars)
	return conversion, base
}
