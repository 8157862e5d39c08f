package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func tradesWithPnL(entry float64, pnls ...float64) []Trade {
	trades := make([]Trade, len(pnls))
	for i, p := range pnls {
		trades[i] = Trade{EntryPrice: entry, ExitPrice: entry + p, PnL: p, Return: p / entry}
	}
	return trades
}

// TestNewRunResult_Empty tests that no trades aggregate to exact zeros
func TestNewRunResult_Empty(t *testing.T) {
	r := NewRunResult(nil)

	assert.NotNil(t, r.Trades)
	assert.Equal(t, 0, r.TotalTrades)
	assert.Equal(t, 0.0, r.CumulativePnL)
	assert.Equal(t, 0.0, r.CumulativeReturn)
	assert.Equal(t, 0.0, r.WinRate)
	assert.Equal(t, 0.0, r.ProfitFactor)
	assert.Equal(t, 0.0, r.MaxDrawdown)
	assert.Equal(t, 0.0, r.SharpeRatio)
}

// TestAggregate_RoundTrip tests that the totals equal the sum and the compounded product of the trades
func TestAggregate_RoundTrip(t *testing.T) {
	trades := tradesWithPnL(10, 2, -1, 0.5, -0.25, 3)
	r := NewRunResult(trades)

	sum, growth := 0.0, 1.0
	for _, tr := range trades {
		sum += tr.PnL
		growth *= 1 + tr.Return
	}

	assert.InDelta(t, sum, r.CumulativePnL, 1e-12)
	assert.InDelta(t, growth-1, r.CumulativeReturn, 1e-12)
	assert.Equal(t, 5, r.TotalTrades)
	assert.Equal(t, 3, r.WinningTrades)
	assert.Equal(t, 2, r.LosingTrades)
	assert.InDelta(t, 0.6, r.WinRate, 1e-12)
}

func TestCalculateWinRate_BreakevenIsNotAWin(t *testing.T) {
	assert.Equal(t, 0.5, CalculateWinRate(tradesWithPnL(10, 1, 0)))
}

func TestCalculateProfitFactor(t *testing.T) {
	assert.InDelta(t, 2.0, CalculateProfitFactor(tradesWithPnL(10, 3, 1, -2)), 1e-12)
	assert.True(t, math.IsInf(CalculateProfitFactor(tradesWithPnL(10, 1, 2)), 1))
	assert.Equal(t, 0.0, CalculateProfitFactor(tradesWithPnL(10, -1)))
}

// TestCalculateMaxDrawdown tests the peak-to-trough fall of the cumulative PnL curve
func TestCalculateMaxDrawdown(t *testing.T) {
	// equity: 2, 1, 4, 1.5, 2
	assert.InDelta(t, 2.5, CalculateMaxDrawdown(tradesWithPnL(10, 2, -1, 3, -2.5, 0.5)), 1e-12)
	// losses from the start count against the zero baseline
	assert.InDelta(t, 3.0, CalculateMaxDrawdown(tradesWithPnL(10, -1, -2)), 1e-12)
}

func TestCalculateSharpeRatio(t *testing.T) {
	assert.Equal(t, 0.0, CalculateSharpeRatio(tradesWithPnL(10, 1, 1, 1)), "zero variance")

	// returns 0.1 and -0.05: mean 0.025, population sd 0.075
	assert.InDelta(t, 1.0/3, CalculateSharpeRatio(tradesWithPnL(10, 1, -0.5)), 1e-9)
}
