package types

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Direction is the side a signal asks for, or the side a position is on.
type Direction int

const (
	Flat Direction = iota
	Long
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Opposite returns the reverse side. Flat has no opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case Long:
		return Short
	case Short:
		return Long
	default:
		return Flat
	}
}

// ParseDirection parses LONG/SHORT/FLAT, case-insensitive.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY":
		return Long, nil
	case "SHORT", "SELL":
		return Short, nil
	case "FLAT", "", "NONE":
		return Flat, nil
	default:
		return Flat, fmt.Errorf("unknown direction %q", s)
	}
}

// Signal is the per-bar trading intent. StopLoss and TakeProfit are absolute
// prices and only meaningful when Direction is not Flat.
type Signal struct {
	Timestamp  time.Time
	Direction  Direction
	StopLoss   float64
	TakeProfit float64
}

// FlatSignal returns a no-trade signal for the given bar time.
func FlatSignal(ts time.Time) Signal {
	return Signal{Timestamp: ts, Direction: Flat}
}

// HasValidLevels reports whether a directional signal carries finite, positive levels.
func (s Signal) HasValidLevels() bool {
	if s.Direction == Flat {
		return true
	}
	return isFinitePositive(s.StopLoss) && isFinitePositive(s.TakeProfit)
}

func isFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
