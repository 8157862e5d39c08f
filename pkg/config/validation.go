package config

import (
	"fmt"

	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/internal/signals"
	"github.com/ducminhle1904/signal-optimizer/pkg/data"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

// Validate checks the configuration. Every failure is a CONFIG error.
func (c *RunConfig) Validate() error {
	if err := c.validateData(); err != nil {
		return err
	}
	generator, err := signals.New(c.Strategy.Name)
	if err != nil {
		return err
	}
	for name, b := range c.Strategy.Bounds {
		if b.Min > b.Max {
			return invalid("bounds", fmt.Sprintf("parameter %s: min %.4g is greater than max %.4g", name, b.Min, b.Max))
		}
	}
	if _, err := generator.DefaultSpace().WithBounds(c.BoundOverrides()); err != nil {
		return err
	}
	if _, err := backtest.ParseEndOfDataPolicy(c.Engine.EndOfData); err != nil {
		return err
	}
	if _, err := backtest.ParseObjectiveMetric(c.Engine.Metric); err != nil {
		return err
	}
	if err := c.validateOptimizer(); err != nil {
		return err
	}
	v := c.Validation
	if v.SplitRatio <= 0 || v.SplitRatio >= 1 {
		return invalid("validation", fmt.Sprintf("split ratio must be in (0,1), got %.4g", v.SplitRatio))
	}
	if v.Rolling && (v.TrainDays <= 0 || v.TestDays <= 0) {
		return invalid("validation", "rolling walk-forward requires train_days and test_days")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return invalid("logging", fmt.Sprintf("unknown log format %q (use json or console)", c.Logging.Format))
	}
	return nil
}

func (c *RunConfig) validateData() error {
	switch c.Data.Source {
	case SourceCSV:
		if c.Data.File == "" && (c.Data.Symbol == "" || c.Data.Interval == "") {
			return invalid("data", "csv source needs a file, or a symbol and interval under the data root")
		}
	case SourceBybit:
		if c.Data.Symbol == "" || c.Data.Interval == "" {
			return invalid("data", "bybit source needs a symbol and interval")
		}
	default:
		return invalid("data", fmt.Sprintf("unknown data source %q (use %s or %s)", c.Data.Source, SourceCSV, SourceBybit))
	}
	if c.Data.Period != "" {
		if _, ok := data.ParseTrailingPeriod(c.Data.Period); !ok {
			return invalid("data", fmt.Sprintf("invalid trailing period %q (use e.g. 30d or 168h)", c.Data.Period))
		}
	}
	start, end, err := c.DateRange()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return invalid("data", fmt.Sprintf("start %s is not before end %s", c.Data.Start, c.Data.End))
	}
	return nil
}

func (c *RunConfig) validateOptimizer() error {
	o := c.Optimizer
	if _, err := optimization.NewSearcher(optimization.SearcherConfig{Name: o.Searcher}, optimization.Options{}); err != nil {
		return err
	}
	if o.Refine != "" && o.Refine != optimization.SearcherLBFGS && o.Refine != optimization.SearcherNelderMead {
		return invalid("optimizer", fmt.Sprintf("refine must be %s or %s, got %q",
			optimization.SearcherLBFGS, optimization.SearcherNelderMead, o.Refine))
	}
	if o.MaxTrials < 1 {
		return invalid("optimizer", "max_trials must be at least 1")
	}
	if o.Workers < 0 {
		return invalid("optimizer", "workers must not be negative")
	}
	if o.Penalty >= 0 {
		return invalid("optimizer", "penalty must be negative")
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

func invalid(field, msg string) error {
	return apperrors.NewConfigurationError("config", "validate", msg).WithContext("field", field)
}
