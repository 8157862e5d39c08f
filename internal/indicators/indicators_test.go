package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

func generateTestData(count int) []types.OHLCV {
	data := make([]types.OHLCV, count)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		price := 100.0 + 10*math.Sin(float64(i)/5)
		data[i] = types.OHLCV{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.5,
			Volume:    1000,
		}
	}
	return data
}

func barsFromCloses(closes ...float64) []types.OHLCV {
	bars := make([]types.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = types.OHLCV{Timestamp: time.Unix(int64(i)*60, 0), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

// TestEMA_MatchesRecursiveDefinition tests the first-value seed and alpha = 2/(n+1)
func TestEMA_MatchesRecursiveDefinition(t *testing.T) {
	bars := barsFromCloses(10, 11, 12, 13)
	values := Series(NewEMA(3), bars)

	assert.True(t, math.IsNaN(values[0]))
	assert.True(t, math.IsNaN(values[1]))

	// seed 10, alpha 0.5: 10.5, 11.25, 12.125
	assert.InDelta(t, 11.25, values[2], 1e-12)
	assert.InDelta(t, 12.125, values[3], 1e-12)
}

func TestEMA_ResetState(t *testing.T) {
	ema := NewEMA(2)
	ema.UpdateSingle(5)
	ema.UpdateSingle(7)
	require.True(t, ema.Ready())

	ema.ResetState()
	assert.False(t, ema.Ready())
	assert.Equal(t, 0.0, ema.GetLastValue())
}

func TestSMA_RollingMean(t *testing.T) {
	sma := NewSMA(3)
	assert.True(t, math.IsNaN(sma.UpdateSingle(1)))
	assert.True(t, math.IsNaN(sma.UpdateSingle(2)))
	assert.InDelta(t, 2.0, sma.UpdateSingle(3), 1e-12)
	assert.InDelta(t, 3.0, sma.UpdateSingle(4), 1e-12)
}

// TestATR_UsesPreviousClose tests the true range and its rolling mean
func TestATR_UsesPreviousClose(t *testing.T) {
	bars := []types.OHLCV{
		{High: 11, Low: 9, Close: 10},  // TR 2
		{High: 14, Low: 12, Close: 13}, // TR max(2, 4, 2) = 4
		{High: 13, Low: 12, Close: 12}, // TR max(1, 0, 1) = 1
	}
	values := Series(NewATR(2), bars)

	assert.True(t, math.IsNaN(values[0]))
	assert.InDelta(t, 3.0, values[1], 1e-12)
	assert.InDelta(t, 2.5, values[2], 1e-12)
}

func TestDonchianChannels(t *testing.T) {
	bars := []types.OHLCV{
		{High: 10, Low: 8},
		{High: 12, Low: 9},
		{High: 11, Low: 7},
		{High: 9, Low: 8},
	}
	dc := NewDonchianChannels(3)
	values := Series(dc, bars)

	assert.True(t, math.IsNaN(values[1]))
	assert.InDelta(t, 9.5, values[2], 1e-12)

	upper, lower, middle := dc.Channels()
	assert.Equal(t, 12.0, upper)
	assert.Equal(t, 7.0, lower)
	assert.Equal(t, 9.5, middle)
}

// TestRollingExtremes_ExcludesCurrentBar tests that bar i only sees earlier bars
func TestRollingExtremes_ExcludesCurrentBar(t *testing.T) {
	bars := []types.OHLCV{
		{High: 10, Low: 8},
		{High: 12, Low: 9},
		{High: 50, Low: 1},
	}
	highs, lows := RollingExtremes(bars, 2)

	assert.True(t, math.IsNaN(highs[1]))
	assert.Equal(t, 12.0, highs[2])
	assert.Equal(t, 8.0, lows[2])
}

func TestIchimokuLines(t *testing.T) {
	data := generateTestData(60)
	conversion, base := IchimokuLines(data, 9, 26)

	require.Len(t, conversion, 60)
	assert.True(t, math.IsNaN(conversion[7]))
	assert.False(t, math.IsNaN(conversion[8]))
	assert.True(t, math.IsNaN(base[24]))
	assert.False(t, math.IsNaN(base[25]))
}

// TestFisherTransform_Sign tests that closes near the top of the range are positive
func TestFisherTransform_Sign(t *testing.T) {
	bars := []types.OHLCV{
		{High: 10, Low: 8, Close: 9},
		{High: 12, Low: 9, Close: 11.9},
		{High: 12, Low: 7, Close: 7.1},
	}
	values := Series(NewFisherTransform(2), bars)

	assert.True(t, math.IsNaN(values[0]))
	assert.Greater(t, values[1], 0.0)
	assert.Less(t, values[2], 0.0)

	flat := Series(NewFisherTransform(1), barsFromCloses(5))
	assert.Equal(t, 0.0, flat[0])
}

func TestCumulativeFisher(t *testing.T) {
	data := generateTestData(30)
	raw := Series(NewFisherTransform(5), data)
	cum := CumulativeFisher(data, 5)

	assert.True(t, math.IsNaN(cum[3]))
	assert.InDelta(t, raw[4], cum[4], 1e-12)
	assert.InDelta(t, raw[4]+raw[5], cum[5], 1e-12)
}

// TestConfirmedFractals tests that a fractal is reported only after its right wing closes
func TestConfirmedFractals(t *testing.T) {
	lows := []float64{10, 9, 7, 9, 10, 11}
	bars := make([]types.OHLCV, len(lows))
	for i, l := range lows {
		bars[i] = types.OHLCV{Low: l, High: l + 1}
	}

	assert.True(t, IsBullishFractal(bars, 2, 2))
	assert.False(t, IsBullishFractal(bars, 2, 3))

	bullish, bearish := ConfirmedFractals(bars, 2)
	assert.Equal(t, []bool{false, false, false, false, true, false}, bullish)
	for _, b := range bearish {
		assert.False(t, b)
	}
}
