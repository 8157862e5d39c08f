package indicators

import (
	"math"

	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// ATR represents the Average True Range technical indicator.
// ATR measures volatility as the rolling mean of the true range.
// The first bar's true range is its high-low span.
type ATR struct {
	period    int
	sma       *SMA
	lastClose float64
	started   bool
	lastValue float64
}

// NewATR creates a new ATR indicator
func NewATR(period int) *ATR {
	return &ATR{
		period:    period,
		sma:       NewSMA(period),
		lastValue: math.NaN(),
	}
}

// Update feeds the next bar
func (a *ATR) Update(bar types.OHLCV) float64 {
	trueRange := bar.High - bar.Low
	if a.started {
		trueRange = calculateTrueRange(bar, a.lastClose)
	}
	a.started = true
	a.lastClose = bar.Close
	a.lastValue = a.sma.UpdateSingle(trueRange)
	return a.lastValue
}

// calculateTrueRange calculates the True Range for a given candle
func calculateTrueRange(current types.OHLCV, prevClose float64) float64 {
	// True Range = max(High-Low, abs(High-PrevClose), abs(Low-PrevClose))
	hl := current.High - current.Low
	hc := math.Abs(current.High - prevClose)
	lc := math.Abs(current.Low - prevClose)

	return math.Max(hl, math.Max(hc, lc))
}

func (a *ATR) Ready() bool {
	return a.sma.Ready()
}

// GetName returns the indicator name
func (a *ATR) GetName() string {
	return "ATR"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (a *ATR) GetRequiredPeriods() int {
	return a.period
}

// GetLastValue returns the last calculated ATR value
func (a *ATR) GetLastValue() float64 {
	return a.lastValue
}

// ResetState resets the ATR internal state for new data periods
func (a *ATR) ResetState() {
	a.sma.ResetState()
	a.lastClose = 0.0
	a.started = false
	a.lastValue = math.NaN()
}
