package backtest

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// EndOfDataPolicy decides what happens to a position still open after the last bar.
// There is no default: an engine must be built with one of the declared policies.
type EndOfDataPolicy int

const (
	endOfDataUnset EndOfDataPolicy = iota
	// EndOfDataClose closes the position at the last bar's close.
	EndOfDataClose
	// EndOfDataLeaveOpen reports the position as unrealized and emits no trade.
	EndOfDataLeaveOpen
)

func (p EndOfDataPolicy) String() string {
	switch p {
	case EndOfDataClose:
		return "close"
	case EndOfDataLeaveOpen:
		return "leave_open"
	default:
		return "unset"
	}
}

// ParseEndOfDataPolicy maps "close" and "leave_open" to a policy.
func ParseEndOfDataPolicy(s string) (EndOfDataPolicy, error) {
	switch s {
	case "close":
		return EndOfDataClose, nil
	case "leave_open", "leave-open", "open":
		return EndOfDataLeaveOpen, nil
	default:
		return endOfDataUnset, apperrors.NewConfigurationError("backtest", "parse_end_of_data",
			fmt.Sprintf("unknown end-of-data policy %q (use close or leave_open)", s))
	}
}

// EngineConfig holds the declared simulation conventions.
type EngineConfig struct {
	EndOfData     EndOfDataPolicy
	RefreshLevels bool
}

// Engine folds the position state machine over a bar sequence.
// It holds no per-run state and is safe for concurrent use.
type Engine struct {
	config EngineConfig
	logger *zap.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithLogger attaches a logger for per-run debug records.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine. It fails when the end-of-data policy was not declared.
func NewEngine(config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if config.EndOfData != EndOfDataClose && config.EndOfData != EndOfDataLeaveOpen {
		return nil, apperrors.NewConfigurationError("backtest", "new_engine", "end-of-data policy must be declared")
	}
	e := &Engine{config: config, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine's declared conventions.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Run validates the inputs and simulates one unit position over the bars.
// Identical inputs always produce identical results.
func (e *Engine) Run(bars []types.OHLCV, signals []types.Signal) (*RunResult, error) {
	if err := ValidateBars(bars); err != nil {
		return nil, err
	}
	if err := ValidateSignals(bars, signals); err != nil {
		return nil, err
	}
	return e.simulate(bars, signals), nil
}

// simulate assumes validated input.
func (e *Engine) simulate(bars []types.OHLCV, signals []types.Signal) *RunResult {
	opts := StepOptions{RefreshLevels: e.config.RefreshLevels}
	trades := make([]Trade, 0)

	var pos Position
	for i, bar := range bars {
		var trade *Trade
		pos, trade = Step(pos, bar, signals[i], opts)
		if trade != nil {
			trades = append(trades, *trade)
		}
	}

	last := bars[len(bars)-1]
	var openPos *Position
	if !pos.IsFlat() {
		switch {
		case e.config.EndOfData == EndOfDataLeaveOpen:
			held := pos
			openPos = &held
		case pos.EntryTime.Before(last.Timestamp):
			trades = append(trades, *closeAt(pos, last.Close, last.Timestamp, ExitEndOfData))
		default:
			// opened on the final bar: nothing was held, so nothing is realized
		}
	}

	result := NewRunResult(trades)
	result.Bars = len(bars)
	if openPos != nil {
		result.OpenPosition = openPos
		result.UnrealizedPnL = openPos.UnrealizedPnL(last.Close)
	}
	if result.TotalTrades == 0 {
		result.Warning = apperrors.NewDegenerateRunWarning("backtest", "run")
	}

	e.logger.Debug("backtest run complete",
		zap.Int("bars", len(bars)),
		zap.Int("trades", result.TotalTrades),
		zap.Float64("cumulative_pnl", result.CumulativePnL),
		zap.Float64("cumulative_return", result.CumulativeReturn),
		zap.Bool("open_position", openPos != nil))

	return result
}

// ValidateBars fails fast on a malformed bar sequence.
func ValidateBars(bars []types.OHLCV) error {
	if len(bars) == 0 {
		return apperrors.NewDataError("backtest", "validate_bars", "no bars provided")
	}

	for i, bar := range bars {
		if bar.Timestamp.IsZero() {
			return apperrors.NewDataError("backtest", "validate_bars", "missing timestamp").
				WithContext("index", i)
		}
		for _, v := range []float64{bar.Open, bar.High, bar.Low, bar.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				return apperrors.NewDataError("backtest", "validate_bars", "prices must be finite and positive").
					WithContext("index", i)
			}
		}
		if bar.High < bar.Low {
			return apperrors.NewDataError("backtest", "validate_bars",
				fmt.Sprintf("high (%.4f) cannot be less than low (%.4f)", bar.High, bar.Low)).
				WithContext("index", i)
		}
		if i > 0 && !bar.Timestamp.After(bars[i-1].Timestamp) {
			return apperrors.NewDataError("backtest", "validate_bars", "timestamps must be strictly increasing").
				WithContext("index", i).
				WithContext("timestamp", bar.Timestamp)
		}
	}
	return nil
}

// ValidateSignals checks that signals line up one-to-one with bars and that
// every directional signal carries usable levels.
func ValidateSignals(bars []types.OHLCV, signals []types.Signal) error {
	if len(signals) != len(bars) {
		return apperrors.NewDataError("backtest", "validate_signals",
			fmt.Sprintf("expected %d signals, got %d", len(bars), len(signals)))
	}
	for i, sig := range signals {
		if !sig.Timestamp.Equal(bars[i].Timestamp) {
			return apperrors.NewDataError("backtest", "validate_signals", "signal timestamp does not match bar").
				WithContext("index", i)
		}
		if !sig.HasValidLevels() {
			return apperrors.NewDataError("backtest", "validate_signals",
				fmt.Sprintf("%s signal needs finite stop-loss and take-profit", sig.Direction)).
				WithContext("index", i)
		}
	}
	return nil
}
