package indicators

import (
	"math"

	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// DonchianChannels tracks the highest high and lowest low over a window that
// includes the latest bar. The middle line is the Ichimoku-style midpoint.
type DonchianChannels struct {
	period int

	// Circular buffers for efficient calculation
	highValues []float64
	lowValues  []float64
	writeIndex int
	count      int

	// Cached results
	lastUpper  float64 // Highest high over period
	lastLower  float64 // Lowest low over period
	lastMiddle float64 // Middle line (upper + lower) / 2
}

// NewDonchianChannels creates a new Donchian Channels indicator
func NewDonchianChannels(period int) *DonchianChannels {
	if period < 1 {
		period = 1
	}
	dc := &DonchianChannels{
		period:     period,
		highValues: make([]float64, period),
		lowValues:  make([]float64, period),
	}
	dc.ResetState()
	return dc
}

// Update adds a bar and returns the middle line, NaN until the window is full
func (dc *DonchianChannels) Update(bar types.OHLCV) float64 {
	dc.highValues[dc.writeIndex] = bar.High
	dc.lowValues[dc.writeIndex] = bar.Low
	dc.writeIndex = (dc.writeIndex + 1) % dc.period
	if dc.count < dc.period {
		dc.count++
	}

	if !dc.Ready() {
		return math.NaN()
	}
	dc.calculateChannels()
	return dc.lastMiddle
}

// calculateChannels finds the highest high and lowest low in the buffer
func (dc *DonchianChannels) calculateChannels() {
	dc.lastUpper = dc.highValues[0]
	dc.lastLower = dc.lowValues[0]

	for i := 1; i < dc.count; i++ {
		if dc.highValues[i] > dc.lastUpper {
			dc.lastUpper = dc.highValues[i]
		}
		if dc.lowValues[i] < dc.lastLower {
			dc.lastLower = dc.lowValues[i]
		}
	}

	dc.lastMiddle = (dc.lastUpper + dc.lastLower) / 2.0
}

func (dc *DonchianChannels) Ready() bool {
	return dc.count >= dc.period
}

// Channels returns upper, lower and middle of the current window
func (dc *DonchianChannels) Channels() (upper, lower, middle float64) {
	return dc.lastUpper, dc.lastLower, dc.lastMiddle
}

// GetName returns the indicator name
func (dc *DonchianChannels) GetName() string {
	return "Donchian"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (dc *DonchianChannels) GetRequiredPeriods() int {
	return dc.period
}

// ResetState resets the indicator state for new data periods
func (dc *DonchianChannels) ResetState() {
	dc.writeIndex, dc.count = 0, 0
	dc.lastUpper, dc.lastLower, dc.lastMiddle = math.NaN(), math.NaN(), math.NaN()
}

// RollingExtremes returns, for each bar i, the highest high and lowest low of
// the n bars strictly before i. Both are NaN for i < n.
func RollingExtremes(bars []types.OHLCV, n int) (highs, lows []float64) {
	highs = make([]float64, len(bars))
	lows = make([]float64, len(bars))
	dc := NewDonchianChannels(n)
	for i := range bars {
		highs[i], lows[i] = math.NaN(), math.NaN()
		if dc.Ready() {
			highs[i], lows[i], _ = dc.Channels()
		}
		dc.Update(bars[i])
	}
	return highs, lows
}
