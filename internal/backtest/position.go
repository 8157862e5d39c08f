package backtest

import (
	"time"

	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitReversal   ExitReason = "REVERSAL"
	ExitEndOfData  ExitReason = "END_OF_DATA"
)

// Position is the single open unit position. The zero value is Flat.
type Position struct {
	Direction  types.Direction
	EntryPrice float64
	EntryTime  time.Time
	StopLoss   float64
	TakeProfit float64
}

// IsFlat reports whether no position is held.
func (p Position) IsFlat() bool {
	return p.Direction == types.Flat
}

// UnrealizedPnL marks the position to the given price using the absolute convention.
func (p Position) UnrealizedPnL(price float64) float64 {
	switch p.Direction {
	case types.Long:
		return price - p.EntryPrice
	case types.Short:
		return p.EntryPrice - price
	default:
		return 0
	}
}

// Trade is a closed position.
type Trade struct {
	Direction  types.Direction
	EntryPrice float64
	EntryTime  time.Time
	ExitPrice  float64
	ExitTime   time.Time
	ExitReason ExitReason
	// PnL is exit-entry for longs and entry-exit for shorts, per unit.
	PnL float64
	// Return is PnL relative to the entry price.
	Return float64
}

// StepOptions tune the state machine. The zero value keeps levels fixed at entry.
type StepOptions struct {
	// RefreshLevels lets a same-direction signal replace the held stop-loss and
	// take-profit. The new levels take effect from the following bar.
	RefreshLevels bool
}

// Step advances the position by one bar. It never fails and has no side
// effects. Exit checks at this bar use the levels the position already holds;
// the bar's own signal can only open, reverse, or (with RefreshLevels) arm
// levels for later bars. A stop-loss wins over a take-profit touched on the
// same bar.
func Step(pos Position, bar types.OHLCV, sig types.Signal, opts StepOptions) (Position, *Trade) {
	switch pos.Direction {
	case types.Flat:
		if sig.Direction == types.Flat {
			return pos, nil
		}
		return openPosition(sig, bar), nil

	case types.Long:
		if bar.Low <= pos.StopLoss {
			return Position{}, closeAt(pos, pos.StopLoss, bar.Timestamp, ExitStopLoss)
		}
		if bar.High >= pos.TakeProfit {
			return Position{}, closeAt(pos, pos.TakeProfit, bar.Timestamp, ExitTakeProfit)
		}

	case types.Short:
		if bar.High >= pos.StopLoss {
			return Position{}, closeAt(pos, pos.StopLoss, bar.Timestamp, ExitStopLoss)
		}
		if bar.Low <= pos.TakeProfit {
			return Position{}, closeAt(pos, pos.TakeProfit, bar.Timestamp, ExitTakeProfit)
		}
	}

	switch sig.Direction {
	case pos.Direction.Opposite():
		trade := closeAt(pos, bar.Close, bar.Timestamp, ExitReversal)
		return openPosition(sig, bar), trade
	case pos.Direction:
		if opts.RefreshLevels {
			pos.StopLoss = sig.StopLoss
			pos.TakeProfit = sig.TakeProfit
		}
	}
	return pos, nil
}

func openPosition(sig types.Signal, bar types.OHLCV) Position {
	return Position{
		Direction:  sig.Direction,
		EntryPrice: bar.Close,
		EntryTime:  bar.Timestamp,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
	}
}

func closeAt(pos Position, price float64, ts time.Time, reason ExitReason) *Trade {
	pnl := pos.UnrealizedPnL(price)
	return &Trade{
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		EntryTime:  pos.EntryTime,
		ExitPrice:  price,
		ExitTime:   ts,
		ExitReason: reason,
		PnL:        pnl,
		Return:     pnl / pos.EntryPrice,
	}
}
