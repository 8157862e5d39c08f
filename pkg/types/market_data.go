package types

import "time"

// OHLCV is one bar of market data. Bars in a sequence are ordered by strictly
// increasing Timestamp and are never modified after loading.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Span returns the first and last timestamps of a bar sequence.
func Span(bars []OHLCV) (time.Time, time.Time) {
	if len(bars) == 0 {
		return time.Time{}, time.Time{}
	}
	return bars[0].Timestamp, bars[len(bars)-1].Timestamp
}
