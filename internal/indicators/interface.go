// Package indicators holds the rolling-window transforms the signal
// generators are built from. Each indicator is fed one bar at a time and
// never looks past the bar it was last given.
package indicators

import (
	"math"

	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// Indicator is an incremental single-value indicator
type Indicator interface {
	// Update feeds the next bar and returns the current value, or NaN while
	// the indicator is still warming up.
	Update(bar types.OHLCV) float64
	Ready() bool
	GetName() string
	GetRequiredPeriods() int
	ResetState()
}

// Series feeds bars through a fresh copy of the indicator state and returns
// one value per bar. Values before the warm-up completes are NaN.
func Series(ind Indicator, bars []types.OHLCV) []float64 {
	ind.ResetState()
	out := make([]float64, len(bars))
	for i, bar := range bars {
		out[i] = ind.Update(bar)
	}
	return out
}

// Valid reports whether every value is a usable number.
func Valid(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
