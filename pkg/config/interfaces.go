// Package config loads and validates optimization run configurations.
package config

import (
	"github.com/ducminhle1904/signal-optimizer/pkg/validation"
)

// Common configuration constants
const (
	DefaultDataRoot  = "data"
	DefaultExchange  = "bybit"
	DefaultCategory  = "linear"
	DefaultGenerator = "ema3"
	DefaultSearcher  = "tpe"
	DefaultMetric    = "cumulative_pnl"
	DefaultEndOfData = "close"
	DefaultMaxTrials = 200
	DefaultPenalty   = -1e9
	DefaultSeed      = 42

	// File and directory constants
	ResultsDir = "results"
	LogsDir    = "logs"
	EnvFile    = ".env"

	// Data sources
	SourceCSV   = "csv"
	SourceBybit = "bybit"
)

// RunConfig is one optimization run: where the bars come from, which
// generator and searcher to use, the simulation conventions and the outputs.
type RunConfig struct {
	Data       DataConfig                   `json:"data" yaml:"data"`
	Strategy   StrategyConfig               `json:"strategy" yaml:"strategy"`
	Engine     EngineConfig                 `json:"engine" yaml:"engine"`
	Optimizer  OptimizerConfig              `json:"optimizer" yaml:"optimizer"`
	Validation validation.WalkForwardConfig `json:"validation" yaml:"validation"`
	Output     OutputConfig                 `json:"output" yaml:"output"`
	Logging    LoggingConfig                `json:"logging" yaml:"logging"`
	Monitoring MonitoringConfig             `json:"monitoring" yaml:"monitoring"`
}

// DataConfig selects the bar source. With Source csv, File wins over the
// data-root layout (root/exchange/category/SYMBOL/minutes/candles.csv).
type DataConfig struct {
	Source   string `json:"source" yaml:"source"`
	File     string `json:"file,omitempty" yaml:"file,omitempty"`
	DataRoot string `json:"data_root,omitempty" yaml:"data_root,omitempty"`
	Exchange string `json:"exchange,omitempty" yaml:"exchange,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Symbol   string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty"`
	// Start and End bound the bars; either may be empty.
	Start string `json:"start,omitempty" yaml:"start,omitempty"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
	// Period keeps only the trailing window, e.g. "30d".
	Period string `json:"period,omitempty" yaml:"period,omitempty"`
	// Testnet selects the Bybit testnet for the bybit source.
	Testnet bool `json:"testnet,omitempty" yaml:"testnet,omitempty"`
}

// ParamBounds overrides the bounds of one generator parameter.
type ParamBounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// StrategyConfig selects the signal generator.
type StrategyConfig struct {
	Name   string                 `json:"name" yaml:"name"`
	Bounds map[string]ParamBounds `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	// Initial seeds the local searchers and the refinement stage.
	Initial map[string]float64 `json:"initial,omitempty" yaml:"initial,omitempty"`
}

// EngineConfig holds the simulation conventions.
type EngineConfig struct {
	EndOfData     string `json:"end_of_data" yaml:"end_of_data"`
	RefreshLevels bool   `json:"refresh_levels" yaml:"refresh_levels"`
	Metric        string `json:"metric" yaml:"metric"`
}

// TPEConfig mirrors optimization.TPEConfig for files.
type TPEConfig struct {
	StartupTrials int     `json:"startup_trials,omitempty" yaml:"startup_trials,omitempty"`
	Candidates    int     `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	Gamma         float64 `json:"gamma,omitempty" yaml:"gamma,omitempty"`
	BatchSize     int     `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
}

// GeneticConfig mirrors optimization.GAConfig for files.
type GeneticConfig struct {
	PopulationSize int     `json:"population_size,omitempty" yaml:"population_size,omitempty"`
	Generations    int     `json:"generations,omitempty" yaml:"generations,omitempty"`
	MutationRate   float64 `json:"mutation_rate,omitempty" yaml:"mutation_rate,omitempty"`
	CrossoverRate  float64 `json:"crossover_rate,omitempty" yaml:"crossover_rate,omitempty"`
	EliteSize      int     `json:"elite_size,omitempty" yaml:"elite_size,omitempty"`
}

// OptimizerConfig selects and budgets the search.
type OptimizerConfig struct {
	Searcher  string `json:"searcher" yaml:"searcher"`
	MaxTrials int    `json:"max_trials" yaml:"max_trials"`
	// Timeout is a Go duration string; empty means no time budget.
	Timeout     string        `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Workers     int           `json:"workers,omitempty" yaml:"workers,omitempty"`
	Seed        int64         `json:"seed" yaml:"seed"`
	Penalty     float64       `json:"penalty" yaml:"penalty"`
	KeepHistory bool          `json:"keep_history" yaml:"keep_history"`
	TPE         TPEConfig     `json:"tpe" yaml:"tpe"`
	Genetic     GeneticConfig `json:"genetic" yaml:"genetic"`
	// Refine names a local searcher run from the global best; empty skips it.
	Refine       string `json:"refine,omitempty" yaml:"refine,omitempty"`
	RefineTrials int    `json:"refine_trials,omitempty" yaml:"refine_trials,omitempty"`
}

// OutputConfig controls the reports.
type OutputConfig struct {
	Dir     string `json:"dir" yaml:"dir"`
	Console bool   `json:"console" yaml:"console"`
	CSV     bool   `json:"csv" yaml:"csv"`
	JSON    bool   `json:"json" yaml:"json"`
	Excel   bool   `json:"excel" yaml:"excel"`
}

// LoggingConfig feeds internal/logger.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// MonitoringConfig enables the metrics endpoint when Addr is set.
type MonitoringConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}
