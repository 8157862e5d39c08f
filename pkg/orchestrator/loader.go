package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/internal/exchange/bybit"
	"github.com/ducminhle1904/signal-optimizer/pkg/config"
	"github.com/ducminhle1904/signal-optimizer/pkg/data"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// DefaultBarLoader loads bars from a CSV file or from Bybit klines.
type DefaultBarLoader struct {
	manager *data.DataManager
	// source overrides the Bybit client, for tests and custom transports.
	source bybit.KlineSource
	env    config.Env
	logger *zap.Logger
}

// NewDefaultBarLoader creates a loader. A nil source means a Bybit client is
// built from env when the bybit source is configured.
func NewDefaultBarLoader(manager *data.DataManager, source bybit.KlineSource, env config.Env, logger *zap.Logger) *DefaultBarLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if manager == nil {
		manager = data.NewDataManager(logger)
	}
	return &DefaultBarLoader{manager: manager, source: source, env: env, logger: logger.Named("loader")}
}

// Provider returns the range provider for the configured source.
func (l *DefaultBarLoader) Provider(cfg *config.RunConfig) (data.RangeProvider, error) {
	switch cfg.Data.Source {
	case config.SourceBybit:
		interval, err := bybit.ParseInterval(cfg.Data.Interval)
		if err != nil {
			return nil, err
		}
		source := l.source
		if source == nil {
			client := bybit.NewClient(bybit.Config{
				APIKey:    l.env.BybitAPIKey,
				APISecret: l.env.BybitAPISecret,
				Testnet:   cfg.Data.Testnet,
			})
			l.logger.Info("using bybit klines", zap.String("environment", client.GetEnvironment()))
			source = client
		}
		provider, err := bybit.NewKlineProvider(source, bybit.KlineProviderConfig{
			Category: cfg.Data.Category,
			Symbol:   cfg.Data.Symbol,
			Interval: interval,
		}, l.logger)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case config.SourceCSV, "":
		return l.manager.Range(cfg.DataFile()), nil
	default:
		return nil, apperrors.NewConfigurationError("orchestrator", "provider",
			fmt.Sprintf("unknown data source %q", cfg.Data.Source))
	}
}

// Load returns the bars in the configured date range, then keeps only the
// trailing period when one is set.
func (l *DefaultBarLoader) Load(ctx context.Context, cfg *config.RunConfig) ([]types.OHLCV, error) {
	provider, err := l.Provider(cfg)
	if err != nil {
		return nil, err
	}
	start, end, err := cfg.DateRange()
	if err != nil {
		return nil, err
	}

	bars, err := provider.LoadRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", apperrors.CategorizeError(err, "orchestrator", "load"))
	}

	if cfg.Data.Period != "" {
		period, ok := data.ParseTrailingPeriod(cfg.Data.Period)
		if !ok {
			return nil, apperrors.NewConfigurationError("orchestrator", "load",
				fmt.Sprintf("invalid trailing period %q", cfg.Data.Period))
		}
		bars = l.manager.FilterDataByPeriod(bars, period)
		if len(bars) == 0 {
			return nil, apperrors.NewDataError("orchestrator", "load", "no bars in trailing period").
				WithContext("period", cfg.Data.Period)
		}
	}

	first, last := types.Span(bars)
	l.logger.Info("bars loaded",
		zap.String("source", cfg.Data.Source),
		zap.Int("bars", len(bars)),
		zap.Time("first", first),
		zap.Time("last", last))
	return bars, nil
}
