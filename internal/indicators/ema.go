package indicators

import (
	"math"

	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// EMA represents the Exponential Moving Average of closes.
// It is seeded with the first close (no SMA seed) and reported once period
// bars have been seen.
type EMA struct {
	period      int
	alpha       float64
	lastValue   float64
	count       int
	initialized bool
}

// NewEMA creates a new EMA indicator
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 1
	}
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1), // Standard EMA alpha calculation
	}
}

// Update feeds the next bar's close
func (e *EMA) Update(bar types.OHLCV) float64 {
	e.UpdateSingle(bar.Close)
	if !e.Ready() {
		return math.NaN()
	}
	return e.lastValue
}

// UpdateSingle updates the EMA with a single value and returns the raw
// smoothed value, warm or not.
func (e *EMA) UpdateSingle(value float64) float64 {
	if !e.initialized {
		e.lastValue = value
		e.initialized = true
	} else {
		// EMA = (Value * Alpha) + (Previous EMA * (1 - Alpha))
		e.lastValue = (value * e.alpha) + (e.lastValue * (1 - e.alpha))
	}
	e.count++
	return e.lastValue
}

// Ready reports whether the warm-up period has passed
func (e *EMA) Ready() bool {
	return e.count >= e.period
}

// GetName returns the indicator name
func (e *EMA) GetName() string {
	return "EMA"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (e *EMA) GetRequiredPeriods() int {
	return e.period
}

// GetLastValue returns the last calculated EMA value
func (e *EMA) GetLastValue() float64 {
	return e.lastValue
}

// ResetState resets the EMA internal state for new data periods
func (e *EMA) ResetState() {
	e.lastValue = 0.0
	e.count = 0
	e.initialized = false
}
