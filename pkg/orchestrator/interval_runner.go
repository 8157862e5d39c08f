package orchestrator

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/pkg/data"
)

// DefaultIntervalRunner discovers intervals from the on-disk data layout.
type DefaultIntervalRunner struct {
	locator *data.DefaultFileLocator
	logger  *zap.Logger
}

// NewDefaultIntervalRunner creates a new default interval runner
func NewDefaultIntervalRunner(logger *zap.Logger) *DefaultIntervalRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultIntervalRunner{locator: data.NewDefaultFileLocator(logger), logger: logger.Named("intervals")}
}

// FindAvailableIntervals discovers all available intervals for a symbol,
// across every category of the exchange, sorted by length.
func (r *DefaultIntervalRunner) FindAvailableIntervals(dataRoot, exchange, symbol string) ([]string, error) {
	sym := strings.ToUpper(symbol)
	seen := make(map[string]bool)
	var intervals []string

	for _, category := range data.Categories(exchange) {
		categoryDir := filepath.Join(dataRoot, strings.ToLower(exchange), category, sym)
		entries, err := os.ReadDir(categoryDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || seen[e.Name()] {
				continue
			}
			if _, err := os.Stat(filepath.Join(categoryDir, e.Name(), data.DataFileName)); err != nil {
				continue
			}
			seen[e.Name()] = true
			intervals = append(intervals, e.Name())
		}
	}

	if len(intervals) == 0 {
		return nil, apperrors.NewDataError("orchestrator", "find_intervals", "no data found").
			WithContext("symbol", sym).
			WithContext("exchange", exchange).
			WithContext("data_root", dataRoot)
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		a, errA := strconv.Atoi(intervals[i])
		b, errB := strconv.Atoi(intervals[j])
		if errA != nil || errB != nil {
			return intervals[i] < intervals[j]
		}
		return a < b
	})
	return intervals, nil
}

// LocateDataFile returns the first existing candles file for interval
// across the exchange's categories, or "" when none exists.
func (r *DefaultIntervalRunner) LocateDataFile(dataRoot, exchange, symbol, interval string) string {
	return r.locator.FindDataFile(dataRoot, exchange, symbol, interval)
}
