package signals

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

func generateTestData(count int) []types.OHLCV {
	data := make([]types.OHLCV, count)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		price := 100.0 + 0.08*float64(i) + 8*math.Sin(float64(i)/7) + 3*math.Sin(float64(i)/2.3)
		data[i] = types.OHLCV{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      price - 0.3,
			High:      price + 1 + 0.2*math.Abs(math.Cos(float64(i))),
			Low:       price - 1 - 0.2*math.Abs(math.Sin(float64(i))),
			Close:     price,
			Volume:    1000,
		}
	}
	return data
}

func allGenerators(t *testing.T) []Generator {
	t.Helper()
	out := make([]Generator, 0, len(Names()))
	for _, name := range Names() {
		g, err := New(name)
		require.NoError(t, err)
		out = append(out, g)
	}
	return out
}

// TestGenerators_Contract tests alignment, level validity and that every generator trades on synthetic data
func TestGenerators_Contract(t *testing.T) {
	bars := generateTestData(400)

	for _, g := range allGenerators(t) {
		t.Run(g.Name(), func(t *testing.T) {
			space := g.DefaultSpace()
			require.NotNil(t, space)
			p := space.Center()
			require.LessOrEqual(t, g.Lookback(p), len(bars))

			sigs, err := g.Generate(bars, p)
			require.NoError(t, err)
			require.Len(t, sigs, len(bars))

			directional := 0
			for i, sig := range sigs {
				assert.True(t, sig.Timestamp.Equal(bars[i].Timestamp))
				assert.True(t, sig.HasValidLevels())
				switch sig.Direction {
				case types.Long:
					directional++
					assert.Less(t, sig.StopLoss, bars[i].Close)
					assert.Greater(t, sig.TakeProfit, bars[i].Close)
				case types.Short:
					directional++
					assert.Greater(t, sig.StopLoss, bars[i].Close)
					assert.Less(t, sig.TakeProfit, bars[i].Close)
				}
			}
			assert.Greater(t, directional, 0)
		})
	}
}

// TestGenerators_NoLookahead tests that truncating the future never changes past signals
func TestGenerators_NoLookahead(t *testing.T) {
	bars := generateTestData(250)

	for _, g := range allGenerators(t) {
		t.Run(g.Name(), func(t *testing.T) {
			p := g.DefaultSpace().Center()
			full, err := g.Generate(bars, p)
			require.NoError(t, err)

			for _, k := range []int{60, 121, 200} {
				partial, err := g.Generate(bars[:k], p)
				require.NoError(t, err)
				assert.Equal(t, full[:k], partial, "prefix of %d bars", k)
			}
		})
	}
}

func TestGenerators_WarmupIsFlat(t *testing.T) {
	bars := generateTestData(300)
	g := TripleEMA{}
	p := optimization.Point{ParamShortPeriod: 5, ParamMediumPeriod: 20, ParamLongPeriod: 80, ParamTakeProfitPct: 0.02, ParamStopLossPct: 0.02}

	sigs, err := g.Generate(bars, p)
	require.NoError(t, err)
	for i := 0; i < 79; i++ {
		assert.Equal(t, types.Flat, sigs[i].Direction, "bar %d", i)
	}
	assert.Equal(t, 80, g.Lookback(p))
}

func TestGenerators_InvalidPoint(t *testing.T) {
	bars := generateTestData(50)

	_, err := Breakout{}.Generate(bars, optimization.Point{ParamChannelPeriod: 0, ParamStopLossPct: 0.01, ParamTakeProfitPct: 0.01})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidParameter(err))

	_, err = Fisher{}.Generate(bars, optimization.Point{ParamFisherPeriod: 5, ParamEMAPeriod: 5, ParamStopLossPct: math.NaN(), ParamTakeProfitPct: 0.01})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidParameter(err))
}

// TestBreakout_FadesChannelBreak tests the direction and levels of the N-bar channel generator
func TestBreakout_FadesChannelBreak(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(i int, high, low, close float64) types.OHLCV {
		return types.OHLCV{Timestamp: start.Add(time.Duration(i) * time.Hour), Open: close, High: high, Low: low, Close: close}
	}
	bars := []types.OHLCV{
		mk(0, 11, 9, 10),
		mk(1, 12, 10, 11),
		mk(2, 10, 7, 8),    // below prior low 9
		mk(3, 14, 8, 13.5), // above prior high 12
	}
	p := optimization.Point{ParamChannelPeriod: 2, ParamStopLossPct: 0.1, ParamTakeProfitPct: 0.2}

	sigs, err := Breakout{}.Generate(bars, p)
	require.NoError(t, err)

	assert.Equal(t, types.Flat, sigs[1].Direction)
	assert.Equal(t, types.Long, sigs[2].Direction)
	assert.InDelta(t, 7.2, sigs[2].StopLoss, 1e-9)
	assert.InDelta(t, 9.6, sigs[2].TakeProfit, 1e-9)
	assert.Equal(t, types.Short, sigs[3].Direction)
	assert.InDelta(t, 14.85, sigs[3].StopLoss, 1e-9)
	assert.InDelta(t, 10.8, sigs[3].TakeProfit, 1e-9)
}

func TestNew(t *testing.T) {
	g, err := New(" ICHIMOKU ")
	require.NoError(t, err)
	assert.Equal(t, "ichimoku", g.Name())

	_, err = New("macd")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigurationError(err))

	assert.Equal(t, []string{"breakout", "ema3", "fisher", "fractal", "ichimoku"}, Names())
}
