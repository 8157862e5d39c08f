package indicators

import (
	"math"

	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// fisherScale keeps the normalized price strictly inside (-1, 1).
const fisherScale = 0.66

// FisherTransform maps the close's position in its rolling high-low range
// through ln((1+v)/(1-v)).
type FisherTransform struct {
	period  int
	channel *DonchianChannels
}

// NewFisherTransform creates a new Fisher Transform indicator
func NewFisherTransform(period int) *FisherTransform {
	return &FisherTransform{period: period, channel: NewDonchianChannels(period)}
}

// Update feeds the next bar. A flat window maps to 0.
func (f *FisherTransform) Update(bar types.OHLCV) float64 {
	f.channel.Update(bar)
	if !f.channel.Ready() {
		return math.NaN()
	}
	high, low, _ := f.channel.Channels()
	if high == low {
		return 0
	}
	value := fisherScale * ((bar.Close-low)/(high-low) - 0.5)
	return math.Log((1 + value) / (1 - value))
}

func (f *FisherTransform) Ready() bool {
	return f.channel.Ready()
}

// GetName returns the indicator name
func (f *FisherTransform) GetName() string {
	return "Fisher"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (f *FisherTransform) GetRequiredPeriods() int {
	return f.period
}

// ResetState resets the indicator state for new data periods
func (f *FisherTransform) ResetState() {
	f.channel.ResetState()
}

// CumulativeFisher is the running sum of the Fisher values, starting at the
// first warm bar. Earlier entries are NaN.
func CumulativeFisher(bars []types.OHLCV, period int) []float64 {
	values := Series(NewFisherTransform(period), bars)
	sum := 0.0
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		values[i] = sum
	}
	return values
}
