// Package optimization searches a bounded parameter space for the point that
// maximizes an objective.
package optimization

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Evaluation is what an objective reports for one point.
type Evaluation struct {
	Value  float64
	Trades int
	// Err marks the point as unusable. The optimizer converts it into a penalty.
	Err error
}

// Objective scores a parameter point. Higher is better. Implementations must
// be safe for concurrent calls.
type Objective func(ctx context.Context, p Point) Evaluation

// Searcher is one search strategy over a Space.
type Searcher interface {
	Name() string
	Search(ctx context.Context, space *Space, objective Objective) (*Result, error)
}

// TrialObserver receives every finished trial. Used for metrics and progress.
type TrialObserver interface {
	ObserveTrial(searcher string, trial Trial)
}

// TrialState classifies a finished trial.
type TrialState int

const (
	TrialComplete TrialState = iota
	// TrialDegenerate ran but produced no trades.
	TrialDegenerate
	// TrialPenalized failed validation, errored, or returned a non-finite value.
	TrialPenalized
)

func (s TrialState) String() string {
	switch s {
	case TrialDegenerate:
		return "degenerate"
	case TrialPenalized:
		return "penalized"
	default:
		return "complete"
	}
}

// Trial is one evaluated point.
type Trial struct {
	Number   int
	Point    Point
	Value    float64
	Trades   int
	State    TrialState
	Err      error
	Duration time.Duration
}

// Status summarizes the outcome of a search.
type Status int

const (
	StatusSucceeded Status = iota
	// StatusNoValidParameters means every trial was degenerate or penalized.
	StatusNoValidParameters
)

func (s Status) String() string {
	if s == StatusNoValidParameters {
		return "no_valid_parameters"
	}
	return "succeeded"
}

// Result is the outcome of a search. BestPoint is always set once at least
// one trial ran. A succeeded result reports the best trial that made trades,
// even when a zero-trade trial scored higher.
type Result struct {
	Searcher      string
	BestPoint     Point
	BestObjective float64
	BestTrades    int
	// Trials counts distinct points evaluated. CacheHits counts repeat
	// proposals answered from cache; both consume the trial budget.
	Trials     int
	CacheHits  int
	Degenerate int
	Penalized  int
	Status     Status
	StopReason string
	Duration   time.Duration
	History    []Trial
}

// Summary is the one-line human outcome.
func (r *Result) Summary() string {
	if r.Status == StatusNoValidParameters {
		return fmt.Sprintf("no valid parameters found after %d trials (%d degenerate, %d penalized)",
			r.Trials, r.Degenerate, r.Penalized)
	}
	return fmt.Sprintf("optimization succeeded with %d trades (objective %.6f after %d trials)",
		r.BestTrades, r.BestObjective, r.Trials)
}

// Better returns whichever of two results found the higher valid objective.
// A nil or unsuccessful b never replaces a; ties keep a.
func Better(a, b *Result) *Result {
	if b == nil || b.Status != StatusSucceeded {
		return a
	}
	if a == nil || a.Status != StatusSucceeded || b.BestObjective > a.BestObjective {
		return b
	}
	return a
}

// Defaults
const (
	DefaultPenalty   = -1e9
	DefaultMaxTrials = 100
	DefaultSeed      = 42
)

// Options are shared by every searcher.
type Options struct {
	// MaxTrials bounds the number of objective calls. Zero means DefaultMaxTrials.
	MaxTrials int
	// Timeout bounds wall-clock time. Zero means no limit beyond the context.
	Timeout time.Duration
	// Workers is the number of concurrent trials. Zero means runtime.NumCPU.
	Workers int
	Seed    int64
	// Penalty replaces the objective of unusable points. Zero means DefaultPenalty.
	Penalty float64
	// DegenerateValue is the objective of a run with no trades.
	DegenerateValue float64
	// KeepHistory retains every trial on the Result.
	KeepHistory bool
	Logger      *zap.Logger
	Observer    TrialObserver
}

// DefaultOptions returns options with every default filled in.
func DefaultOptions() Options {
	return Options{
		MaxTrials: DefaultMaxTrials,
		Seed:      DefaultSeed,
		Penalty:   DefaultPenalty,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxTrials <= 0 {
		o.MaxTrials = DefaultMaxTrials
	}
	if o.Penalty == 0 {
		o.Penalty = DefaultPenalty
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
