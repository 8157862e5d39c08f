package indicators

import (
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// IsBullishFractal reports whether bar center has a strictly lower low than
// the window bars on each side. It reads bars after center, so callers must
// only act on it once center+window has closed.
func IsBullishFractal(bars []types.OHLCV, center, window int) bool {
	if window < 1 || center < window || center+window >= len(bars) {
		return false
	}
	low := bars[center].Low
	for j := 1; j <= window; j++ {
		if bars[center-j].Low <= low || bars[center+j].Low <= low {
			return false
		}
	}
	return true
}

// IsBearishFractal reports whether bar center has a strictly higher high than
// the window bars on each side.
func IsBearishFractal(bars []types.OHLCV, center, window int) bool {
	if window < 1 || center < window || center+window >= len(bars) {
		return false
	}
	high := bars[center].High
	for j := 1; j <= window; j++ {
		if bars[center-j].High >= high || bars[center+j].High >= high {
			return false
		}
	}
	return true
}

// ConfirmedFractals returns, per bar i, whether a bullish or bearish fractal
// centred at i-window became confirmed with bar i's close. Only bars up to i
// are read.
func ConfirmedFractals(bars []types.OHLCV, window int) (bullish, bearish []bool) {
	bullish = make([]bool, len(bars))
	bearish = make([]bool, len(bars))
	for i := range bars {
		center := i - window
		visible := bars[:i+1]
		bullish[i] = IsBullishFractal(visible, center, window)
		bearish[i] = IsBearishFractal(visible, center, window)
	}
	return bullish, bearish
}
