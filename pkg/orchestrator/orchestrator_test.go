package orchestrator

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/internal/exchange/bybit"
	"github.com/ducminhle1904/signal-optimizer/internal/monitoring"
	"github.com/ducminhle1904/signal-optimizer/pkg/config"
	"github.com/ducminhle1904/signal-optimizer/pkg/data"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

var start = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func price(i int) float64 {
	return 100 + 10*math.Sin(float64(i)/15) + 0.05*float64(i)
}

// writeBars writes n hourly waves to path in the candles layout.
func writeBars(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("Datetime,Open,High,Low,Close,Volume\n")
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * time.Hour).Format("2006-01-02 15:04:05-07:00")
		c := price(i)
		fmt.Fprintf(&b, "%s,%.4f,%.4f,%.4f,%.4f,10\n", ts, price(i-1), c+0.5, c-0.5, c)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func testConfig(file string) *config.RunConfig {
	cfg := config.Default()
	cfg.Data.File = file
	cfg.Data.Symbol = "BTCUSDT"
	cfg.Strategy.Name = "breakout"
	cfg.Strategy.Bounds = map[string]config.ParamBounds{"n": {Min: 5, Max: 40}}
	cfg.Optimizer.MaxTrials = 20
	cfg.Optimizer.Workers = 2
	return cfg
}

type recordingTracker struct {
	mu       sync.Mutex
	begun    []string
	finished []string
	trials   int
}

func (r *recordingTracker) Begin(searcher string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begun = append(r.begun, searcher)
}

func (r *recordingTracker) Finish(searcher string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, searcher)
}

func (r *recordingTracker) ObserveTrial(string, optimization.Trial) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trials++
}

func TestRunOptimization_CSV(t *testing.T) {
	file := filepath.Join(t.TempDir(), "5m", "bars.csv")
	writeBars(t, file, 600)
	cfg := testConfig(file)
	cfg.Optimizer.Refine = optimization.SearcherNelderMead
	cfg.Optimizer.RefineTrials = 10

	tracker := &recordingTracker{}
	o := NewOrchestrator(config.Env{}, WithTracker(tracker))
	res, err := o.RunOptimization(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 600, res.Bars)
	report := res.Report
	require.NotNil(t, report.Search)
	assert.Equal(t, "5m", report.Interval)
	assert.Equal(t, "breakout", report.Generator)
	assert.Equal(t, optimization.StatusSucceeded, report.Search.Status)
	assert.LessOrEqual(t, report.Search.Trials, 20)

	require.NotNil(t, report.Refine)
	assert.LessOrEqual(t, report.Refine.Trials, 10)
	assert.Same(t, report.Final(), optimization.Better(report.Search, report.Refine))

	require.NotNil(t, report.Best)
	assert.InDelta(t, report.Final().BestObjective, report.Best.CumulativePnL, 1e-9)
	n := report.BestPoint["n"]
	assert.GreaterOrEqual(t, n, 5.0)
	assert.LessOrEqual(t, n, 40.0)

	assert.Equal(t, []string{"tpe", "nelder-mead"}, tracker.begun)
	assert.Equal(t, tracker.begun, tracker.finished)
	assert.Equal(t, report.Search.Trials+report.Refine.Trials, tracker.trials)
}

func TestRunOptimization_WithHoldoutValidation(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bars.csv")
	writeBars(t, file, 600)
	cfg := testConfig(file)
	cfg.Optimizer.Searcher = optimization.SearcherGenetic
	cfg.Optimizer.Genetic = config.GeneticConfig{PopulationSize: 6, Generations: 3}
	cfg.Validation.Enable = true
	cfg.Validation.SplitRatio = 0.7

	res, err := NewOrchestrator(config.Env{}).RunOptimization(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, res.Report.Validation)
	assert.Equal(t, "holdout", res.Report.Validation.Mode)
	assert.Len(t, res.Report.Validation.Results, 1)
	assert.Contains(t, []string{"LOW", "MODERATE", "HIGH"}, res.Report.Validation.OverfittingRisk)
}

func TestRunOptimization_NoValidParameters(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bars.csv")
	writeBars(t, file, 50)
	cfg := testConfig(file)
	cfg.Strategy.Bounds = map[string]config.ParamBounds{"n": {Min: 80, Max: 99}}
	cfg.Optimizer.MaxTrials = 8

	res, err := NewOrchestrator(config.Env{}).RunOptimization(context.Background(), cfg)
	require.NoError(t, err)
	final := res.Report.Final()
	assert.Equal(t, optimization.StatusNoValidParameters, final.Status)
	assert.Equal(t, cfg.Optimizer.Penalty, final.BestObjective)
	assert.Nil(t, res.Report.Best)
	assert.Nil(t, res.Report.Refine)
	assert.Equal(t, final.Trials, res.PenaltyCauses[string(apperrors.ErrorCategoryInvalidParameter)])
}

func TestRunOptimization_MissingFile(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing.csv"))
	_, err := NewOrchestrator(config.Env{}).RunOptimization(context.Background(), cfg)
	require.Error(t, err)
}

func TestRunSingleBacktest(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bars.csv")
	writeBars(t, file, 300)
	cfg := testConfig(file)
	o := NewOrchestrator(config.Env{})

	res, err := o.RunSingleBacktest(context.Background(), cfg, optimization.Point{"n": 20, "tp_percent": 0.03, "sl_percent": 0.02})
	require.NoError(t, err)
	assert.Equal(t, 300, res.Bars)
	assert.Equal(t, len(res.Trades), res.TotalTrades)

	wf := NewSingleBacktestWorkflow(o, cfg, optimization.Point{"n": 20, "tp_percent": 0.03, "sl_percent": 0.02})
	assert.Equal(t, WorkflowTypeSingle, wf.GetWorkflowType())
	out, err := wf.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.CumulativePnL, out.(*backtest.RunResult).CumulativePnL)
}

// fakeKlines serves hourly klines for hours [0, total) newest first.
type fakeKlines struct{ total int }

func (f *fakeKlines) GetKlines(_ context.Context, params bybit.KlineParams) ([]bybit.Kline, error) {
	var out []bybit.Kline
	for h := f.total - 1; h >= 0 && len(out) < params.Limit; h-- {
		ts := start.Add(time.Duration(h) * time.Hour)
		if params.End != nil && ts.After(*params.End) {
			continue
		}
		if params.Start != nil && ts.Before(*params.Start) {
			break
		}
		c := price(h)
		out = append(out, bybit.Kline{StartTime: ts, OpenPrice: price(h - 1), HighPrice: c + 0.5, LowPrice: c - 0.5, ClosePrice: c, Volume: 1})
	}
	return out, nil
}

func TestRunOptimization_BybitSource(t *testing.T) {
	cfg := testConfig("")
	cfg.Data.Source = config.SourceBybit
	cfg.Data.Interval = "1h"
	cfg.Data.Start = "2024-06-01"
	cfg.Data.End = "2024-06-20"
	cfg.Optimizer.MaxTrials = 10

	monitor := monitoring.NewMonitor(nil)
	o := NewOrchestrator(config.Env{}, WithKlineSource(&fakeKlines{total: 400}), WithTracker(monitor))
	res, err := o.RunOptimization(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 400, res.Bars)
	assert.Equal(t, "1h", res.Report.Interval)
	assert.Equal(t, optimization.StatusSucceeded, res.Report.Search.Status)
}

func TestFindAvailableIntervals(t *testing.T) {
	root := t.TempDir()
	for _, iv := range []string{"60", "5", "240"} {
		writeBars(t, data.DataFilePath(root, "bybit", "linear", "ethusdt", iv), 10)
	}
	writeBars(t, data.DataFilePath(root, "bybit", "spot", "ethusdt", "15"), 10)
	writeBars(t, data.DataFilePath(root, "bybit", "spot", "ethusdt", "60"), 10)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bybit", "linear", "ETHUSDT", "1"), 0o755))

	r := NewDefaultIntervalRunner(nil)
	intervals, err := r.FindAvailableIntervals(root, "bybit", "ethusdt")
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "15", "60", "240"}, intervals)
	assert.Equal(t, data.DataFilePath(root, "bybit", "spot", "ETHUSDT", "15"), r.LocateDataFile(root, "bybit", "ETHUSDT", "15"))

	_, err = r.FindAvailableIntervals(root, "bybit", "BTCUSDT")
	require.Error(t, err)
	assert.True(t, apperrors.IsDataError(err))
}

func TestRunMultiIntervalAnalysis(t *testing.T) {
	root := t.TempDir()
	writeBars(t, data.DataFilePath(root, "bybit", "linear", "BTCUSDT", "60"), 400)
	writeBars(t, data.DataFilePath(root, "bybit", "linear", "BTCUSDT", "240"), 5)

	cfg := testConfig("")
	cfg.Data.DataRoot = root
	cfg.Optimizer.MaxTrials = 8

	wf := NewIntervalAnalysisWorkflow(NewOrchestrator(config.Env{}), cfg)
	out, err := wf.Execute(context.Background())
	require.NoError(t, err)
	analysis := out.(*IntervalAnalysisResult)

	require.Len(t, analysis.Results, 2)
	assert.Equal(t, "60", analysis.Results[0].Interval)
	assert.Equal(t, "240", analysis.Results[1].Interval)
	require.NotNil(t, analysis.BestResult)
	assert.Equal(t, "60", analysis.BestResult.Interval)
	assert.Equal(t, "", cfg.Data.Interval)
}
