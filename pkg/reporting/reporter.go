package reporting

import (
	"path/filepath"

	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	"github.com/ducminhle1904/signal-optimizer/pkg/validation"
)

// Output file names
const (
	BestConfigFile = "best.json"
	TradesCSVFile  = "trades.csv"
	TradesXLSXFile = "trades.xlsx"
)

// DefaultReporter implements the complete Reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	paths   *DefaultPathManager
}

// NewDefaultReporter creates a new default reporter with all functionality
func NewDefaultReporter() *DefaultReporter {
	return NewReporter(NewDefaultConsoleReporter())
}

// NewReporter creates a reporter around the given console output.
func NewReporter(console *DefaultConsoleReporter) *DefaultReporter {
	return &DefaultReporter{
		console: console,
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
		paths:   NewDefaultPathManager(),
	}
}

// Console output methods
func (r *DefaultReporter) OutputResults(report *Report) {
	r.console.OutputResults(report)
}

func (r *DefaultReporter) PrintWalkForwardSummary(summary *validation.WalkForwardSummary) {
	r.console.PrintWalkForwardSummary(summary)
}

// File output methods
func (r *DefaultReporter) WriteTradesCSV(trades []backtest.Trade, path string) error {
	return r.csv.WriteTradesCSV(trades, path)
}

func (r *DefaultReporter) WriteTradesXLSX(report *Report, path string) error {
	return r.excel.WriteTradesXLSX(report, path)
}

func (r *DefaultReporter) WriteBestConfigJSON(best BestConfig, path string) error {
	return WriteBestConfigJSON(best, path)
}

// Path management methods
func (r *DefaultReporter) GetDefaultOutputDir(root, symbol, interval, generator string) string {
	return r.paths.GetDefaultOutputDir(root, symbol, interval, generator)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

// ReportingManager provides a high-level interface for all reporting needs
type ReportingManager struct {
	reporter Reporter
	config   ReportingConfig
}

// NewReportingManager creates a new reporting manager with configuration
func NewReportingManager(config ReportingConfig) *ReportingManager {
	return NewReportingManagerWithReporter(NewDefaultReporter(), config)
}

// NewReportingManagerWithReporter uses a custom reporter.
func NewReportingManagerWithReporter(reporter Reporter, config ReportingConfig) *ReportingManager {
	return &ReportingManager{reporter: reporter, config: config}
}

// ReportResults outputs the report according to configuration and returns
// the paths of the files it wrote. Files go to OutputDirectory when set,
// otherwise to the default results/SYMBOL_interval_generator directory.
func (m *ReportingManager) ReportResults(report *Report) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputResults(report)
	}

	outputDir := m.config.OutputDirectory
	if outputDir == "" {
		outputDir = m.reporter.GetDefaultOutputDir("", report.Symbol, report.Interval, report.Generator)
	}

	var written []string
	var trades []backtest.Trade
	if report.Best != nil {
		trades = report.Best.Trades
	}

	if m.config.JSONEnabled {
		path := filepath.Join(outputDir, BestConfigFile)
		if err := m.reporter.WriteBestConfigJSON(NewBestConfig(report), path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if m.config.CSVEnabled {
		path := filepath.Join(outputDir, TradesCSVFile)
		if err := m.reporter.WriteTradesCSV(trades, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if m.config.ExcelEnabled {
		path := filepath.Join(outputDir, TradesXLSXFile)
		if err := m.reporter.WriteTradesXLSX(report, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}
