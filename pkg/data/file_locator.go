package data

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DataFileName is the file name used under the data layout
const DataFileName = "candles.csv"

// DefaultFileLocator finds files laid out as
// {root}/{exchange}/{category}/{SYMBOL}/{minutes}/candles.csv
type DefaultFileLocator struct {
	logger *zap.Logger
}

// NewDefaultFileLocator creates a new default file locator
func NewDefaultFileLocator(logger *zap.Logger) *DefaultFileLocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultFileLocator{logger: logger.Named("data")}
}

// ConvertIntervalToMinutes converts interval strings like "5m", "1h", "4h" to minute numbers
func (f *DefaultFileLocator) ConvertIntervalToMinutes(interval string) string {
	return IntervalMinutes(interval)
}

// IntervalMinutes converts "5m", "1h", "1d" or "1w" to a minute count. Plain
// numbers pass through and unknown formats are returned unchanged.
func IntervalMinutes(interval string) string {
	if _, err := strconv.Atoi(interval); err == nil {
		return interval
	}

	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return interval
	}

	num, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil {
		return interval
	}

	switch interval[len(interval)-1:] {
	case "m":
		return strconv.Itoa(num)
	case "h":
		return strconv.Itoa(num * 60)
	case "d":
		return strconv.Itoa(num * 24 * 60)
	case "w":
		return strconv.Itoa(num * 7 * 24 * 60)
	default:
		return interval
	}
}

// Categories lists the market categories searched for an exchange
func Categories(exchange string) []string {
	switch strings.ToLower(exchange) {
	case "bybit":
		return []string{"spot", "linear", "inverse"}
	case "binance":
		return []string{"spot", "futures"}
	default:
		return []string{"spot", "futures", "linear", "inverse"}
	}
}

// DataFilePath builds the layout path for one category
func DataFilePath(dataRoot, exchange, category, symbol, interval string) string {
	return filepath.Join(dataRoot, strings.ToLower(exchange), category,
		strings.ToUpper(symbol), IntervalMinutes(interval), DataFileName)
}

// FindDataFile returns the first existing file across the exchange's
// categories, or "" if none exists.
func (f *DefaultFileLocator) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	var attempted []string
	for _, category := range Categories(exchange) {
		path := DataFilePath(dataRoot, exchange, category, symbol, interval)
		attempted = append(attempted, path)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	f.logger.Warn("no data file found",
		zap.String("exchange", exchange),
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Strings("attempted", attempted))
	return ""
}
