// Package reporting renders optimization outcomes to the console and to
// CSV, JSON and XLSX files.
package reporting

import (
	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/validation"
)

// Report bundles everything one optimization run produced.
type Report struct {
	Symbol    string
	Interval  string
	Generator string
	Metric    string
	// Search is the global (or only) search. Refine is the optional local
	// refinement started from its best point.
	Search *optimization.Result
	Refine *optimization.Result
	// Best is the winning point re-run on the full bar sequence.
	Best       *backtest.RunResult
	BestPoint  optimization.Point
	Validation *validation.WalkForwardSummary
}

// Final returns the search whose best point was kept.
func (r *Report) Final() *optimization.Result {
	return optimization.Better(r.Search, r.Refine)
}

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputResults(report *Report)
	PrintWalkForwardSummary(summary *validation.WalkForwardSummary)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(trades []backtest.Trade, path string) error
	WriteTradesXLSX(report *Report, path string) error
	WriteBestConfigJSON(best BestConfig, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	GetDefaultOutputDir(root, symbol, interval, generator string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle      int
	NumberStyle      int
	PercentStyle     int
	BaseStyle        int
	RedNumberStyle   int
	GreenNumberStyle int
	SummaryStyle     int
	TimestampStyle   int
}

// ReportingConfig holds configuration for reporting
type ReportingConfig struct {
	EnableConsole   bool
	OutputDirectory string
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
}
