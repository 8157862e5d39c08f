package reporting

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

// BestConfig is the persisted outcome of a run: the winning point and how it did.
type BestConfig struct {
	Symbol    string             `json:"symbol,omitempty"`
	Interval  string             `json:"interval,omitempty"`
	Generator string             `json:"generator"`
	Searcher  string             `json:"searcher"`
	Metric    string             `json:"metric,omitempty"`
	Status    string             `json:"status"`
	Message   string             `json:"message"`
	Params    optimization.Point `json:"params"`
	Objective *float64           `json:"objective"`
	Trials    int                `json:"trials"`
	// Performance is the best point re-run on the full bar sequence.
	Performance *Performance       `json:"performance,omitempty"`
	Validation  *ValidationOutcome `json:"validation,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Performance mirrors the aggregate metrics of a run. Non-finite values
// (a profit factor with no losing trades) are written as null.
type Performance struct {
	CumulativePnL    float64  `json:"cumulative_pnl"`
	CumulativeReturn float64  `json:"cumulative_return"`
	TotalTrades      int      `json:"total_trades"`
	WinRate          float64  `json:"win_rate"`
	ProfitFactor     *float64 `json:"profit_factor"`
	MaxDrawdown      float64  `json:"max_drawdown"`
	SharpeRatio      *float64 `json:"sharpe_ratio"`
	UnrealizedPnL    float64  `json:"unrealized_pnl,omitempty"`
}

// ValidationOutcome is the walk-forward verdict.
type ValidationOutcome struct {
	Mode               string  `json:"mode"`
	Folds              int     `json:"folds"`
	AverageTrainReturn float64 `json:"average_train_return_pct"`
	AverageTestReturn  float64 `json:"average_test_return_pct"`
	ReturnDegradation  float64 `json:"return_degradation_pct"`
	OverfittingRisk    string  `json:"overfitting_risk"`
}

// NewBestConfig builds the persisted outcome from a report.
func NewBestConfig(report *Report) BestConfig {
	best := BestConfig{
		Symbol:      strings.ToUpper(report.Symbol),
		Interval:    report.Interval,
		Generator:   report.Generator,
		Metric:      report.Metric,
		Params:      report.BestPoint,
		GeneratedAt: time.Now().UTC(),
	}
	if final := report.Final(); final != nil {
		best.Searcher = final.Searcher
		best.Status = final.Status.String()
		best.Message = final.Summary()
		best.Objective = finite(final.BestObjective)
		for _, res := range []*optimization.Result{report.Search, report.Refine} {
			if res != nil {
				best.Trials += res.Trials
			}
		}
	}
	if res := report.Best; res != nil {
		best.Performance = &Performance{
			CumulativePnL:    res.CumulativePnL,
			CumulativeReturn: res.CumulativeReturn,
			TotalTrades:      res.TotalTrades,
			WinRate:          res.WinRate,
			ProfitFactor:     finite(res.ProfitFactor),
			MaxDrawdown:      res.MaxDrawdown,
			SharpeRatio:      finite(res.SharpeRatio),
			UnrealizedPnL:    res.UnrealizedPnL,
		}
	}
	if v := report.Validation; v != nil {
		best.Validation = &ValidationOutcome{
			Mode:               v.Mode,
			Folds:              len(v.Results),
			AverageTrainReturn: v.AverageTrainReturn,
			AverageTestReturn:  v.AverageTestReturn,
			ReturnDegradation:  v.ReturnDegradation,
			OverfittingRisk:    v.OverfittingRisk,
		}
	}
	return best
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// FormatBestConfig formats the outcome as indented JSON.
func FormatBestConfig(best BestConfig) ([]byte, error) {
	return json.MarshalIndent(best, "", "  ")
}

// WriteBestConfigJSON writes the outcome to path, creating the directory.
func WriteBestConfigJSON(best BestConfig, path string) error {
	data, err := FormatBestConfig(best)
	if err != nil {
		return fmt.Errorf("failed to marshal best config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}

// ReadBestConfigJSON loads a previously written outcome.
func ReadBestConfigJSON(path string) (*BestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var best BestConfig
	if err := json.Unmarshal(data, &best); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &best, nil
}

// ExtractIntervalFromPath extracts the interval from a data file path.
// Both "data/bybit/linear/BTCUSDT/5m/candles.csv" and the minute layout
// ".../BTCUSDT/60/candles.csv" are understood.
func ExtractIntervalFromPath(dataPath string) string {
	if dataPath == "" {
		return ""
	}

	parts := strings.Split(filepath.ToSlash(dataPath), "/")
	if len(parts) >= 2 {
		if _, err := strconv.Atoi(parts[len(parts)-2]); err == nil {
			return parts[len(parts)-2]
		}
	}

	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		if len(part) < 2 {
			continue
		}
		switch part[len(part)-1] {
		case 'm', 'h', 'd':
			if _, err := strconv.Atoi(part[:len(part)-1]); err == nil {
				return part
			}
		}
	}

	return ""
}
