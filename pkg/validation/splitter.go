package validation

import (
	"time"

	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// DefaultDataSplitter implements the DataSplitter interface
type DefaultDataSplitter struct{}

// NewDefaultDataSplitter creates a new default data splitter
func NewDefaultDataSplitter() *DefaultDataSplitter {
	return &DefaultDataSplitter{}
}

// SplitByRatio puts the first ratio of the bars in train and the rest in test.
// An out-of-range ratio returns everything as train.
func (s *DefaultDataSplitter) SplitByRatio(data []types.OHLCV, ratio float64) ([]types.OHLCV, []types.OHLCV) {
	if ratio <= 0 || ratio >= 1 {
		return data, nil
	}

	n := int(float64(len(data)) * ratio)
	if n < 1 || n >= len(data) {
		return data, nil
	}

	return data[:n], data[n:]
}

// CreateRollingFolds builds consecutive train/test windows of TrainDays and
// TestDays, advancing the start by RollDays, until a window runs short.
func (s *DefaultDataSplitter) CreateRollingFolds(data []types.OHLCV, cfg WalkForwardConfig) []WalkForwardFold {
	cfg = cfg.WithDefaults()
	var folds []WalkForwardFold
	if cfg.TrainDays <= 0 || cfg.TestDays <= 0 || len(data) < cfg.MinTrainBars+cfg.MinTestBars {
		return folds
	}

	trainDur := days(cfg.TrainDays)
	testDur := days(cfg.TestDays)
	rollDur := days(cfg.RollDays)

	start := 0
	for {
		trainEndTs := data[start].Timestamp.Add(trainDur)
		trainEnd := advance(data, start, trainEndTs)

		testEndTs := trainEndTs.Add(testDur)
		testEnd := advance(data, trainEnd, testEndTs)

		if trainEnd-start < cfg.MinTrainBars || testEnd-trainEnd < cfg.MinTestBars {
			break
		}

		folds = append(folds, WalkForwardFold{
			Train:      data[start:trainEnd],
			Test:       data[trainEnd:testEnd],
			TrainStart: data[start].Timestamp,
			TrainEnd:   data[trainEnd-1].Timestamp,
			TestStart:  data[trainEnd].Timestamp,
			TestEnd:    data[testEnd-1].Timestamp,
		})

		nextStart := advance(data, start, data[start].Timestamp.Add(rollDur))
		if nextStart <= start {
			nextStart = start + 1
		}
		if nextStart >= len(data) {
			break
		}
		start = nextStart
	}

	return folds
}

// advance returns the first index at or after from whose timestamp is not before ts
func advance(data []types.OHLCV, from int, ts time.Time) int {
	i := from
	for i < len(data) && data[i].Timestamp.Before(ts) {
		i++
	}
	return i
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// SplitByRatio is a convenience function that uses the default splitter
func SplitByRatio(data []types.OHLCV, ratio float64) ([]types.OHLCV, []types.OHLCV) {
	return NewDefaultDataSplitter().SplitByRatio(data, ratio)
}

// CreateRollingFolds is a convenience function that uses the default splitter
func CreateRollingFolds(data []types.OHLCV, cfg WalkForwardConfig) []WalkForwardFold {
	return NewDefaultDataSplitter().CreateRollingFolds(data, cfg)
}
