package indicators

import (
	"math"
)

// SMA is a rolling mean over a fixed window of raw values.
type SMA struct {
	period int
	buffer []float64
	next   int
	count  int
	sum    float64
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	if period < 1 {
		period = 1
	}
	return &SMA{
		period: period,
		buffer: make([]float64, period),
	}
}

// UpdateSingle adds a value and returns the mean of the last period values,
// or NaN until the window is full.
func (s *SMA) UpdateSingle(value float64) float64 {
	if s.count == s.period {
		s.sum -= s.buffer[s.next]
	} else {
		s.count++
	}
	s.buffer[s.next] = value
	s.sum += value
	s.next = (s.next + 1) % s.period

	if !s.Ready() {
		return math.NaN()
	}
	return s.sum / float64(s.period)
}

// Ready reports whether the window is full
func (s *SMA) Ready() bool {
	return s.count >= s.period
}

// GetRequiredPeriods returns the minimum number of periods needed
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}

// ResetState clears the window
func (s *SMA) ResetState() {
	for i := range s.buffer {
		s.buffer[i] = 0
	}
	s.next, s.count, s.sum = 0, 0, 0
}
