package optimization

import (
	"fmt"
	"strings"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
)

// Searcher names
const (
	SearcherTPE        = "tpe"
	SearcherGenetic    = "genetic"
	SearcherLBFGS      = "lbfgs"
	SearcherNelderMead = "nelder-mead"
)

// SearcherConfig selects and tunes a searcher.
type SearcherConfig struct {
	Name    string
	TPE     TPEConfig
	Genetic GAConfig
	// Initial is the starting point of the local searchers. Nil means the centre of the space.
	Initial Point
}

// NewSearcher creates a searcher by name
func NewSearcher(cfg SearcherConfig, opts Options) (Searcher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case SearcherTPE, "", "global":
		return NewTPESampler(opts, cfg.TPE), nil
	case SearcherGenetic, "ga":
		return NewGeneticSearcher(opts, cfg.Genetic), nil
	case SearcherLBFGS, "local", "l-bfgs":
		return NewLocalSearcher(opts, LocalConfig{Method: MethodLBFGS, Initial: cfg.Initial}), nil
	case SearcherNelderMead, "neldermead", "simplex":
		return NewLocalSearcher(opts, LocalConfig{Method: MethodNelderMead, Initial: cfg.Initial}), nil
	default:
		return nil, apperrors.NewConfigurationError("optimization", "new_searcher",
			fmt.Sprintf("unknown searcher %q (available: %s)", cfg.Name, strings.Join(AvailableSearchers(), ", ")))
	}
}

// AvailableSearchers returns the list of available searcher names
func AvailableSearchers() []string {
	return []string{SearcherTPE, SearcherGenetic, SearcherLBFGS, SearcherNelderMead}
}

func checkSearchInputs(space *Space, objective Objective) error {
	if space == nil || space.Dim() == 0 {
		return apperrors.NewConfigurationError("optimization", "search", "parameter space is empty")
	}
	if objective == nil {
		return apperrors.NewConfigurationError("optimization", "search", "objective is nil")
	}
	return nil
}
