package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-optimizer/cmd/common"
	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	"github.com/ducminhle1904/signal-optimizer/internal/monitoring"
	"github.com/ducminhle1904/signal-optimizer/pkg/config"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/orchestrator"
	"github.com/ducminhle1904/signal-optimizer/pkg/reporting"
)

const AppName = "Signal Optimizer"

func main() {
	flags := NewOptimizeFlags(flag.CommandLine)
	flag.Parse()

	if *flags.Common.Version {
		common.PrintVersion(AppName)
		return
	}
	if *flags.Common.Help {
		newUsage().PrintUsage(flag.CommandLine)
		return
	}
	if err := flags.Validate(); err != nil {
		log.Fatalf("❌ Flag validation error: %v", err)
	}

	printHeader()

	if err := run(flags); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func printHeader() {
	fmt.Printf("🎯 %s v%s\n", strings.ToUpper(AppName), common.GetFullVersion())
	fmt.Printf("%s\n\n", strings.Repeat("=", 50))
}

func run(flags *OptimizeFlags) error {
	if err := config.LoadEnvFile(*flags.Common.EnvFile, nil); err != nil {
		log.Printf("⚠️  Could not load %s (%v)", *flags.Common.EnvFile, err)
	}
	env := config.ReadEnv()

	cfg, err := loadConfiguration(*flags.ConfigFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	cfg.ApplyEnv(env)
	flags.Apply(cfg)

	if err := validateConfiguration(cfg, *flags.AllIntervals); err != nil {
		return err
	}

	if *flags.SaveConfig != "" {
		if err := config.Save(cfg, *flags.SaveConfig); err != nil {
			return err
		}
		fmt.Printf("💾 Config saved to %s\n", *flags.SaveConfig)
		return nil
	}

	logger, err := common.NewLogger(cfg.Logging, cfg.Data.Symbol, cfg.Data.Interval, cfg.Strategy.Name)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor := monitoring.NewMonitor(logger)
	if cfg.Monitoring.Addr != "" {
		go func() {
			if err := monitor.Serve(ctx, cfg.Monitoring.Addr); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		fmt.Printf("📡 Metrics on http://%s/metrics\n", displayAddr(cfg.Monitoring.Addr))
	}

	orch := orchestrator.NewOrchestrator(env,
		orchestrator.WithLogger(logger),
		orchestrator.WithTracker(monitor))

	switch {
	case *flags.Params != "":
		return runSingleBacktest(ctx, orch, cfg, *flags.Params)
	case *flags.AllIntervals:
		return runMultiIntervalAnalysis(ctx, orch, cfg)
	default:
		return runOptimization(ctx, orch, cfg)
	}
}

func loadConfiguration(path string) (*config.RunConfig, error) {
	path = common.ResolveConfigPath(path)
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	fmt.Printf("📄 Loaded config %s\n", path)
	return cfg, nil
}

// validateConfiguration checks cfg. Multi-interval runs discover their
// intervals, so the interval may be empty.
func validateConfiguration(cfg *config.RunConfig, allIntervals bool) error {
	check := *cfg
	if allIntervals {
		if check.Data.Source != config.SourceCSV {
			return errors.New("-all-intervals needs the csv source")
		}
		if check.Data.Symbol == "" {
			return errors.New("-all-intervals needs a symbol")
		}
		check.Data.File = ""
		check.Data.Interval = "all"
	}
	if err := check.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func runOptimization(ctx context.Context, orch orchestrator.Orchestrator, cfg *config.RunConfig) error {
	fmt.Printf("🧬 Optimizing %s with %s (%d trials)", cfg.Strategy.Name, cfg.Optimizer.Searcher, cfg.Optimizer.MaxTrials)
	if cfg.Optimizer.Refine != "" {
		fmt.Printf(", refined by %s (%d trials)", cfg.Optimizer.Refine, cfg.Optimizer.RefineTrials)
	}
	fmt.Println()
	if cfg.Validation.Enable {
		fmt.Printf("🔍 Walk-forward validation enabled\n")
	}

	out, err := orchestrator.NewOptimizationWorkflow(orch, cfg).Execute(ctx)
	if err != nil {
		return err
	}
	res := out.(*orchestrator.OptimizationResult)
	if len(res.PenaltyCauses) > 0 {
		fmt.Printf("⚠️  Penalized trials by cause: %v\n", res.PenaltyCauses)
	}
	return report(cfg, res.Report)
}

func runSingleBacktest(ctx context.Context, orch orchestrator.Orchestrator, cfg *config.RunConfig, params string) error {
	p, err := common.ParsePoint(params)
	if err != nil {
		return err
	}
	fmt.Printf("📊 Backtesting %s at %s\n", cfg.Strategy.Name, common.FormatPoint(p))

	out, err := orchestrator.NewSingleBacktestWorkflow(orch, cfg, p).Execute(ctx)
	if err != nil {
		return err
	}
	res := out.(*backtest.RunResult)
	if cfg.Output.Console {
		reporting.NewDefaultConsoleReporter().PrintBacktest(p, res)
	}
	if cfg.Output.CSV {
		dir := reporting.DefaultOutputDir(cfg.Output.Dir, cfg.Data.Symbol, cfg.Data.Interval, cfg.Strategy.Name)
		path := filepath.Join(dir, reporting.TradesCSVFile)
		if err := reporting.WriteTradesCSV(res.Trades, path); err != nil {
			return fmt.Errorf("writing trades: %w", err)
		}
		fmt.Printf("💾 %s\n", path)
	}
	return nil
}

func runMultiIntervalAnalysis(ctx context.Context, orch orchestrator.Orchestrator, cfg *config.RunConfig) error {
	fmt.Printf("🔎 Analyzing all intervals of %s on %s\n", cfg.Data.Symbol, cfg.Data.Exchange)

	out, err := orchestrator.NewIntervalAnalysisWorkflow(orch, cfg).Execute(ctx)
	analysis, _ := out.(*orchestrator.IntervalAnalysisResult)
	if analysis != nil {
		printIntervalSummary(analysis)
	}
	if err != nil {
		return err
	}
	best := analysis.BestResult
	fmt.Printf("\n🏆 Best interval: %s\n", best.Interval)
	return report(cfg, best.Result.Report)
}

func printIntervalSummary(analysis *orchestrator.IntervalAnalysisResult) {
	fmt.Printf("\n%-10s %-22s %-14s %s\n", "INTERVAL", "STATUS", "OBJECTIVE", "TRADES")
	for _, r := range analysis.Results {
		switch {
		case r.Error != nil:
			fmt.Printf("%-10s ❌ %v\n", r.Interval, r.Error)
		default:
			final := r.Result.Report.Final()
			trades := 0
			if r.Result.Report.Best != nil {
				trades = r.Result.Report.Best.TotalTrades
			}
			fmt.Printf("%-10s %-22s %-14.6f %d\n", r.Interval, final.Status, final.BestObjective, trades)
		}
	}
}

func report(cfg *config.RunConfig, rep *reporting.Report) error {
	outputDir := reporting.DefaultOutputDir(cfg.Output.Dir, rep.Symbol, rep.Interval, rep.Generator)
	manager := reporting.NewReportingManager(reporting.ReportingConfig{
		EnableConsole:   cfg.Output.Console,
		OutputDirectory: outputDir,
		ExcelEnabled:    cfg.Output.Excel,
		CSVEnabled:      cfg.Output.CSV,
		JSONEnabled:     cfg.Output.JSON,
	})
	written, err := manager.ReportResults(rep)
	for _, path := range written {
		fmt.Printf("💾 %s\n", path)
	}
	if err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}
	if rep.Final().Status != optimization.StatusSucceeded {
		return errors.New(rep.Final().Summary())
	}
	return nil
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
