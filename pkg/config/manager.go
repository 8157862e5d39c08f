package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/pkg/data"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

// Default returns a run configuration with every default filled in.
func Default() *RunConfig {
	cfg := &RunConfig{}
	cfg.ApplyDefaults()
	cfg.Output.Console = true
	cfg.Output.JSON = true
	return cfg
}

// Load reads a YAML (.yaml, .yml) or JSON (.json) run configuration, fills
// defaults and validates it.
func Load(path string) (*RunConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := &RunConfig{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, cfg)
	case ".json":
		err = json.Unmarshal(raw, cfg)
	default:
		return nil, apperrors.NewConfigurationError("config", "load",
			fmt.Sprintf("unsupported config format %q (use .yaml, .yml or .json)", ext))
	}
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorCategoryConfiguration, "config", "parse").
			WithContext("file", path)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration in the format implied by the extension.
func Save(cfg *RunConfig, path string) error {
	var (
		out []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		out, err = yaml.Marshal(cfg)
	default:
		out, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyDefaults fills zero fields with the package defaults.
func (c *RunConfig) ApplyDefaults() {
	if c.Data.Source == "" {
		c.Data.Source = SourceCSV
	}
	c.Data.Source = strings.ToLower(c.Data.Source)
	if c.Data.DataRoot == "" {
		c.Data.DataRoot = DefaultDataRoot
	}
	if c.Data.Exchange == "" {
		c.Data.Exchange = DefaultExchange
	}
	if c.Data.Category == "" {
		c.Data.Category = DefaultCategory
	}
	if c.Strategy.Name == "" {
		c.Strategy.Name = DefaultGenerator
	}
	if c.Engine.EndOfData == "" {
		c.Engine.EndOfData = DefaultEndOfData
	}
	if c.Engine.Metric == "" {
		c.Engine.Metric = DefaultMetric
	}
	if c.Optimizer.Searcher == "" {
		c.Optimizer.Searcher = DefaultSearcher
	}
	if c.Optimizer.MaxTrials == 0 {
		c.Optimizer.MaxTrials = DefaultMaxTrials
	}
	if c.Optimizer.Seed == 0 {
		c.Optimizer.Seed = DefaultSeed
	}
	if c.Optimizer.Penalty == 0 {
		c.Optimizer.Penalty = DefaultPenalty
	}
	if c.Optimizer.Refine != "" && c.Optimizer.RefineTrials == 0 {
		c.Optimizer.RefineTrials = max(c.Optimizer.MaxTrials/4, 1)
	}
	c.Validation = c.Validation.WithDefaults()
	if c.Output.Dir == "" {
		c.Output.Dir = ResultsDir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// TimeoutDuration parses Optimizer.Timeout. Empty means no limit.
func (c *RunConfig) TimeoutDuration() (time.Duration, error) {
	if c.Optimizer.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Optimizer.Timeout)
	if err != nil {
		return 0, apperrors.NewConfigurationError("config", "timeout",
			fmt.Sprintf("invalid timeout %q: %v", c.Optimizer.Timeout, err))
	}
	return d, nil
}

// DateRange parses Data.Start and Data.End. A zero time means that side is open.
func (c *RunConfig) DateRange() (start, end time.Time, err error) {
	if c.Data.Start != "" {
		if start, err = data.ParseTimestamp(c.Data.Start); err != nil {
			return start, end, apperrors.NewConfigurationError("config", "date_range",
				fmt.Sprintf("invalid start %q: %v", c.Data.Start, err))
		}
	}
	if c.Data.End != "" {
		if end, err = data.ParseTimestamp(c.Data.End); err != nil {
			return start, end, apperrors.NewConfigurationError("config", "date_range",
				fmt.Sprintf("invalid end %q: %v", c.Data.End, err))
		}
	}
	return start, end, nil
}

// DataFile resolves the CSV path for the csv source.
func (c *RunConfig) DataFile() string {
	if c.Data.File != "" {
		return c.Data.File
	}
	return data.DataFilePath(c.Data.DataRoot, c.Data.Exchange, c.Data.Category, c.Data.Symbol, c.Data.Interval)
}

// BoundOverrides converts Strategy.Bounds for optimization.Space.WithBounds.
func (c *RunConfig) BoundOverrides() map[string][2]float64 {
	if len(c.Strategy.Bounds) == 0 {
		return nil
	}
	out := make(map[string][2]float64, len(c.Strategy.Bounds))
	for name, b := range c.Strategy.Bounds {
		out[name] = [2]float64{b.Min, b.Max}
	}
	return out
}

// InitialPoint returns Strategy.Initial as a point, nil when unset.
func (c *RunConfig) InitialPoint() optimization.Point {
	if len(c.Strategy.Initial) == 0 {
		return nil
	}
	p := make(optimization.Point, len(c.Strategy.Initial))
	for k, v := range c.Strategy.Initial {
		p[k] = v
	}
	return p
}

// SearcherConfig builds the searcher selection for the main search.
func (c *RunConfig) SearcherConfig() optimization.SearcherConfig {
	return optimization.SearcherConfig{
		Name: c.Optimizer.Searcher,
		TPE: optimization.TPEConfig{
			StartupTrials: c.Optimizer.TPE.StartupTrials,
			Candidates:    c.Optimizer.TPE.Candidates,
			Gamma:         c.Optimizer.TPE.Gamma,
			BatchSize:     c.Optimizer.TPE.BatchSize,
		},
		Genetic: optimization.GAConfig{
			PopulationSize: c.Optimizer.Genetic.PopulationSize,
			Generations:    c.Optimizer.Genetic.Generations,
			MutationRate:   c.Optimizer.Genetic.MutationRate,
			CrossoverRate:  c.Optimizer.Genetic.CrossoverRate,
			EliteSize:      c.Optimizer.Genetic.EliteSize,
		},
		Initial: c.InitialPoint(),
	}
}

// SearchOptions builds the shared searcher options. Logger and observer are
// left to the caller.
func (c *RunConfig) SearchOptions() (optimization.Options, error) {
	timeout, err := c.TimeoutDuration()
	if err != nil {
		return optimization.Options{}, err
	}
	return optimization.Options{
		MaxTrials:   c.Optimizer.MaxTrials,
		Timeout:     timeout,
		Workers:     c.Optimizer.Workers,
		Seed:        c.Optimizer.Seed,
		Penalty:     c.Optimizer.Penalty,
		KeepHistory: c.Optimizer.KeepHistory,
	}, nil
}
