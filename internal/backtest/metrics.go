package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RunResult is the aggregate of one simulation.
//
// CumulativePnL sums per-unit absolute PnL. CumulativeReturn compounds
// per-trade returns. The two conventions are never mixed within a metric.
type RunResult struct {
	Trades           []Trade
	CumulativePnL    float64
	CumulativeReturn float64
	// WinRate is the fraction of trades with positive PnL, 0 when there are none.
	WinRate float64

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	ProfitFactor  float64
	MaxDrawdown   float64
	SharpeRatio   float64

	Bars int
	// OpenPosition is set only under EndOfDataLeaveOpen.
	OpenPosition  *Position
	UnrealizedPnL float64
	// Warning is a DEGENERATE error when the run produced no trades.
	Warning error
}

// NewRunResult aggregates closed trades into a result.
func NewRunResult(trades []Trade) *RunResult {
	if trades == nil {
		trades = []Trade{}
	}
	r := &RunResult{Trades: trades}
	r.UpdateMetrics()
	return r
}

// UpdateMetrics recomputes every aggregate from Trades.
func (r *RunResult) UpdateMetrics() {
	r.TotalTrades = len(r.Trades)
	r.CumulativePnL = CumulativePnL(r.Trades)
	r.CumulativeReturn = CumulativeReturn(r.Trades)
	r.WinRate = CalculateWinRate(r.Trades)
	r.WinningTrades, r.LosingTrades = countOutcomes(r.Trades)
	r.ProfitFactor = CalculateProfitFactor(r.Trades)
	r.MaxDrawdown = CalculateMaxDrawdown(r.Trades)
	r.SharpeRatio = CalculateSharpeRatio(r.Trades)
}

// CumulativePnL is the plain sum of per-trade PnL.
func CumulativePnL(trades []Trade) float64 {
	total := 0.0
	for _, t := range trades {
		total += t.PnL
	}
	return total
}

// CumulativeReturn compounds per-trade returns: prod(1+r) - 1.
func CumulativeReturn(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	growth := 1.0
	for _, t := range trades {
		growth *= 1 + t.Return
	}
	return growth - 1
}

// CalculateWinRate returns wins/total, or 0 with no trades.
func CalculateWinRate(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins, _ := countOutcomes(trades)
	return float64(wins) / float64(len(trades))
}

func countOutcomes(trades []Trade) (wins, losses int) {
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			wins++
		case t.PnL < 0:
			losses++
		}
	}
	return wins, losses
}

// CalculateProfitFactor calculates gross profit over gross loss.
// It is +Inf when there are profits and no losses.
func CalculateProfitFactor(trades []Trade) float64 {
	totalProfit := 0.0
	totalLoss := 0.0
	for _, t := range trades {
		if t.PnL > 0 {
			totalProfit += t.PnL
		} else {
			totalLoss += math.Abs(t.PnL)
		}
	}

	if totalLoss == 0 {
		if totalProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return totalProfit / totalLoss
}

// CalculateMaxDrawdown returns the largest peak-to-trough fall of the
// cumulative PnL curve, in price units. The curve starts at 0.
func CalculateMaxDrawdown(trades []Trade) float64 {
	equity, peak, maxDD := 0.0, 0.0, 0.0
	for _, t := range trades {
		equity += t.PnL
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// CalculateSharpeRatio calculates the per-trade Sharpe ratio of returns with a
// zero risk-free rate and population standard deviation.
func CalculateSharpeRatio(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}

	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.Return
	}
	avgReturn := stat.Mean(returns, nil)
	stdDev := stat.PopStdDev(returns, nil)

	if stdDev < 1e-10 {
		return 0
	}
	return avgReturn / stdDev
}
