package data

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// DataManager combines loading, locating and filtering
type DataManager struct {
	provider DataProvider
	filter   *DefaultDataFilter
	locator  FileLocator
}

// NewDataManager creates a data manager with a cached CSV provider
func NewDataManager(logger *zap.Logger) *DataManager {
	return NewDataManagerWithProvider(NewCachedProvider(NewCSVProvider(), logger), logger)
}

// NewDataManagerWithProvider creates a data manager with a custom provider
func NewDataManagerWithProvider(provider DataProvider, logger *zap.Logger) *DataManager {
	return &DataManager{
		provider: provider,
		filter:   NewDefaultDataFilter(),
		locator:  NewDefaultFileLocator(logger),
	}
}

// LoadFile loads, orders and validates a data file
func (dm *DataManager) LoadFile(filename string) ([]types.OHLCV, error) {
	bars, err := dm.provider.LoadData(filename)
	if err != nil {
		return nil, err
	}
	if err := dm.filter.ValidateTimeSequence(bars); err != nil {
		return nil, err
	}
	if err := dm.provider.ValidateData(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// Range returns a RangeProvider over filename that shares this manager's cache
func (dm *DataManager) Range(filename string) RangeProvider {
	return &managedRange{dm: dm, filename: filename}
}

type managedRange struct {
	dm       *DataManager
	filename string
}

func (r *managedRange) LoadRange(ctx context.Context, start, end time.Time) ([]types.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := r.dm.LoadFile(r.filename)
	if err != nil {
		return nil, err
	}
	bars = r.dm.filter.FilterByDateRange(bars, start, end)
	if len(bars) == 0 {
		return nil, apperrors.NewDataError("data", "load_range", "no bars in the requested range").
			WithContext("file", r.filename)
	}
	return bars, nil
}

// FilterDataByPeriod keeps the trailing period of data
func (dm *DataManager) FilterDataByPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV {
	return dm.filter.FilterByPeriod(data, period)
}

// FindDataFile locates a file in the standard data layout
func (dm *DataManager) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	return dm.locator.FindDataFile(dataRoot, exchange, symbol, interval)
}

// ValidateData validates loaded data
func (dm *DataManager) ValidateData(data []types.OHLCV) error {
	return dm.provider.ValidateData(data)
}

// GetProvider returns the underlying data provider
func (dm *DataManager) GetProvider() DataProvider {
	return dm.provider
}

// ParseTrailingPeriod parses period strings like "7d", "30days" or "168h"
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}
