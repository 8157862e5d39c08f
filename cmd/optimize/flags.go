package main

import (
	"flag"
	"strings"

	"github.com/ducminhle1904/signal-optimizer/cmd/common"
	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	"github.com/ducminhle1904/signal-optimizer/internal/signals"
	"github.com/ducminhle1904/signal-optimizer/pkg/config"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

// OptimizeFlags holds all command line flags for the optimize command
type OptimizeFlags struct {
	Common *common.CommonFlags

	// Configuration
	ConfigFile *string
	SaveConfig *string

	// Data
	Source   *string
	DataFile *string
	Symbol   *string
	Interval *string
	Category *string
	Start    *string
	End      *string
	Period   *string
	Testnet  *bool

	// Strategy and search
	Generator *string
	Searcher  *string
	Refine    *string
	Trials    *int
	Workers   *int
	Seed      *int64
	Timeout   *string
	Metric    *string
	EndOfData *string
	Params    *string

	// Analysis options
	AllIntervals *bool
	WFEnable     *bool
	WFSplitRatio *float64
	WFRolling    *bool
	WFTrainDays  *int
	WFTestDays   *int
	WFRollDays   *int

	// Output options
	OutputDir   *string
	ConsoleOnly *bool
	Excel       *bool
	MetricsAddr *string
}

// NewOptimizeFlags registers the optimize flags on fs
func NewOptimizeFlags(fs *flag.FlagSet) *OptimizeFlags {
	return &OptimizeFlags{
		Common: common.RegisterCommonFlags(fs),

		ConfigFile: fs.String("config", "", "Run config file (.yaml or .json); a bare name resolves to configs/<name>.yaml"),
		SaveConfig: fs.String("save-config", "", "Write the effective config to this path and exit"),

		Source:   fs.String("source", "", "Bar source: csv or bybit"),
		DataFile: fs.String("data", "", "CSV file of bars (overrides the data-root layout)"),
		Symbol:   fs.String("symbol", "", "Trading symbol, e.g. BTCUSDT"),
		Interval: fs.String("interval", "", "Bar interval, e.g. 5m, 1h, 240"),
		Category: fs.String("category", "", "Market category: spot, linear, inverse"),
		Start:    fs.String("start", "", "Start of the date range (YYYY-MM-DD or RFC3339)"),
		End:      fs.String("end", "", "End of the date range (YYYY-MM-DD or RFC3339)"),
		Period:   fs.String("period", "", "Keep only the trailing period, e.g. 30d, 180d"),
		Testnet:  fs.Bool("testnet", false, "Load klines from the Bybit testnet"),

		Generator: fs.String("generator", "", "Signal generator: "+strings.Join(signals.Names(), ", ")),
		Searcher:  fs.String("searcher", "", "Searcher: "+strings.Join(optimization.AvailableSearchers(), ", ")),
		Refine:    fs.String("refine", "", "Local searcher that refines the best point: lbfgs or nelder-mead"),
		Trials:    fs.Int("trials", 0, "Trial budget of the search"),
		Workers:   fs.Int("workers", -1, "Parallel evaluations (0 = one per CPU)"),
		Seed:      fs.Int64("seed", 0, "Random seed"),
		Timeout:   fs.String("timeout", "", "Time budget of the search, e.g. 10m"),
		Metric:    fs.String("metric", "", "Objective: cumulative_pnl or cumulative_return"),
		EndOfData: fs.String("end-of-data", "", "Open position at the last bar: close or leave_open"),
		Params:    fs.String("params", "", "Backtest one point instead of searching, e.g. n=20,tp_percent=0.03,sl_percent=0.02"),

		AllIntervals: fs.Bool("all-intervals", false, "Optimize every interval found under the data root"),
		WFEnable:     fs.Bool("wf-enable", false, "Enable walk-forward validation"),
		WFSplitRatio: fs.Float64("split", 0, "Holdout train share, e.g. 0.7"),
		WFRolling:    fs.Bool("wf-rolling", false, "Use rolling folds instead of a single holdout"),
		WFTrainDays:  fs.Int("wf-train-days", 0, "Rolling train window in days"),
		WFTestDays:   fs.Int("wf-test-days", 0, "Rolling test window in days"),
		WFRollDays:   fs.Int("wf-roll-days", 0, "Rolling step in days"),

		OutputDir:   fs.String("output", "", "Output directory (default results/SYMBOL_interval_generator)"),
		ConsoleOnly: fs.Bool("console-only", false, "Console output only (no files)"),
		Excel:       fs.Bool("excel", false, "Also write trades.xlsx"),
		MetricsAddr: fs.String("metrics-addr", "", "Serve /metrics and /progress on this address, e.g. :9090"),
	}
}

// Validate checks flag values that do not depend on the config file
func (f *OptimizeFlags) Validate() error {
	v := common.NewFlagValidator().
		ValidateChoice("source", *f.Source, []string{config.SourceCSV, config.SourceBybit}).
		ValidateChoice("metric", *f.Metric, []string{string(backtest.MetricCumulativePnL), string(backtest.MetricCumulativeReturn)}).
		ValidateChoice("end-of-data", *f.EndOfData, []string{backtest.EndOfDataClose.String(), backtest.EndOfDataLeaveOpen.String()}).
		ValidateChoice("refine", *f.Refine, []string{optimization.SearcherLBFGS, optimization.SearcherNelderMead}).
		ValidateChoice("log-format", *f.Common.LogFormat, []string{"json", "console"}).
		ValidateInt("trials", *f.Trials, 0, 1_000_000).
		ValidateFile("data", *f.DataFile, false)
	if *f.Params != "" && *f.AllIntervals {
		v.AddError("-params and -all-intervals cannot be combined")
	}
	if *f.WFSplitRatio < 0 || *f.WFSplitRatio >= 1 {
		v.AddError("split must be in [0, 1)")
	}
	return v.GetError()
}

// Apply copies every set flag over cfg. Zero values keep the file's setting.
func (f *OptimizeFlags) Apply(cfg *config.RunConfig) {
	setString(&cfg.Data.Source, *f.Source)
	setString(&cfg.Data.File, *f.DataFile)
	setString(&cfg.Data.Symbol, strings.ToUpper(*f.Symbol))
	setString(&cfg.Data.Interval, *f.Interval)
	setString(&cfg.Data.Category, *f.Category)
	setString(&cfg.Data.Start, *f.Start)
	setString(&cfg.Data.End, *f.End)
	setString(&cfg.Data.Period, *f.Period)
	setString(&cfg.Data.DataRoot, *f.Common.DataRoot)
	if *f.Testnet {
		cfg.Data.Testnet = true
	}

	setString(&cfg.Strategy.Name, *f.Generator)
	setString(&cfg.Optimizer.Searcher, *f.Searcher)
	setString(&cfg.Optimizer.Refine, *f.Refine)
	setString(&cfg.Optimizer.Timeout, *f.Timeout)
	setString(&cfg.Engine.Metric, *f.Metric)
	setString(&cfg.Engine.EndOfData, *f.EndOfData)
	if *f.Trials > 0 {
		cfg.Optimizer.MaxTrials = *f.Trials
		cfg.Optimizer.RefineTrials = 0
	}
	if *f.Workers >= 0 {
		cfg.Optimizer.Workers = *f.Workers
	}
	if *f.Seed != 0 {
		cfg.Optimizer.Seed = *f.Seed
	}

	if *f.WFEnable {
		cfg.Validation.Enable = true
	}
	if *f.WFRolling {
		cfg.Validation.Rolling = true
	}
	if *f.WFSplitRatio > 0 {
		cfg.Validation.SplitRatio = *f.WFSplitRatio
	}
	setInt(&cfg.Validation.TrainDays, *f.WFTrainDays)
	setInt(&cfg.Validation.TestDays, *f.WFTestDays)
	setInt(&cfg.Validation.RollDays, *f.WFRollDays)

	setString(&cfg.Output.Dir, *f.OutputDir)
	if *f.ConsoleOnly {
		cfg.Output.JSON, cfg.Output.CSV, cfg.Output.Excel = false, false, false
	}
	if *f.Excel {
		cfg.Output.Excel = true
	}
	setString(&cfg.Monitoring.Addr, *f.MetricsAddr)

	f.Common.ApplyLogging(&cfg.Logging)
	cfg.ApplyDefaults()
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func newUsage() *common.UsageFormatter {
	return common.NewUsageFormatter(AppName, "Trading-signal parameter optimizer").
		AddExample("optimize -data data/bybit/linear/BTCUSDT/60/candles.csv -generator ema3 -trials 300",
			"Search EMA-crossover parameters on a CSV file").
		AddExample("optimize -symbol ETHUSDT -interval 1h -generator breakout -searcher genetic -refine nelder-mead",
			"Genetic search refined with Nelder-Mead on the data-root layout").
		AddExample("optimize -source bybit -symbol BTCUSDT -interval 15m -start 2024-01-01 -wf-enable",
			"Download klines and validate the result on a holdout").
		AddExample("optimize -config btc_ema3 -params short_period=9,medium_period=21,long_period=55,tp_percent=0.03,sl_percent=0.015",
			"Backtest a single parameter point").
		AddExample("optimize -symbol BTCUSDT -all-intervals -generator fisher",
			"Compare every interval available for a symbol")
}
