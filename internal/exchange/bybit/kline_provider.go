package bybit

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/pkg/data"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// KlineSource serves one page of klines, newest first.
type KlineSource interface {
	GetKlines(ctx context.Context, params KlineParams) ([]Kline, error)
}

// DefaultLookback is the range loaded when no start is given
const DefaultLookback = 365 * 24 * time.Hour

// DefaultPace keeps paging under the public endpoint limit of 120 requests a minute
const DefaultPace = 500 * time.Millisecond

// KlineProviderConfig selects the market served by a KlineProvider
type KlineProviderConfig struct {
	Category string
	Symbol   string
	Interval KlineInterval
	// PageSize defaults to MaxKlineLimit.
	PageSize int
	// Pace is the pause between pages. Negative disables it.
	Pace time.Duration
}

// KlineProvider loads a date range of bars by paging backwards from the end.
type KlineProvider struct {
	source KlineSource
	cfg    KlineProviderConfig
	filter *data.DefaultDataFilter
	logger *zap.Logger
	now    func() time.Time
}

// NewKlineProvider creates a range provider over source
func NewKlineProvider(source KlineSource, cfg KlineProviderConfig, logger *zap.Logger) (*KlineProvider, error) {
	if source == nil {
		return nil, apperrors.NewConfigurationError("bybit", "new_kline_provider", "kline source is nil")
	}
	if cfg.Symbol == "" {
		return nil, apperrors.NewConfigurationError("bybit", "new_kline_provider", "symbol is required")
	}
	if cfg.Interval == "" {
		cfg.Interval = Interval1h
	}
	if cfg.Category == "" {
		cfg.Category = "spot"
	}
	if cfg.PageSize <= 0 || cfg.PageSize > MaxKlineLimit {
		cfg.PageSize = MaxKlineLimit
	}
	if cfg.Pace == 0 {
		cfg.Pace = DefaultPace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KlineProvider{
		source: source,
		cfg:    cfg,
		filter: data.NewDefaultDataFilter(),
		logger: logger.Named("bybit").With(zap.String("symbol", cfg.Symbol), zap.String("interval", string(cfg.Interval))),
		now:    time.Now,
	}, nil
}

// LoadRange returns the bars in [start, end] in ascending order. A zero end
// means now and a zero start means DefaultLookback before end.
func (p *KlineProvider) LoadRange(ctx context.Context, start, end time.Time) ([]types.OHLCV, error) {
	if end.IsZero() {
		end = p.now()
	}
	if start.IsZero() {
		start = end.Add(-DefaultLookback)
	}
	if !start.Before(end) {
		return nil, apperrors.NewConfigurationError("bybit", "load_range", "start must be before end").
			WithContext("start", start).
			WithContext("end", end)
	}

	startMs, endMs := start.UnixMilli(), end.UnixMilli()
	var bars []types.OHLCV
	cursor := endMs
	pages := 0

	for cursor >= startMs {
		from, to := time.UnixMilli(startMs).UTC(), time.UnixMilli(cursor).UTC()
		klines, err := p.source.GetKlines(ctx, KlineParams{
			Category: p.cfg.Category,
			Symbol:   p.cfg.Symbol,
			Interval: p.cfg.Interval,
			Start:    &from,
			End:      &to,
			Limit:    p.cfg.PageSize,
		})
		if err != nil {
			return nil, err
		}
		pages++
		if len(klines) == 0 {
			break
		}

		oldest := int64(0)
		for _, k := range klines {
			ms := k.StartTime.UnixMilli()
			if ms >= startMs && ms <= endMs {
				bars = append(bars, k.ToOHLCV())
			}
			if oldest == 0 || ms < oldest {
				oldest = ms
			}
		}
		p.logger.Debug("fetched kline page", zap.Int("page", pages), zap.Int("bars", len(bars)))

		if oldest <= startMs || oldest > cursor {
			break
		}
		cursor = oldest - 1

		if p.cfg.Pace > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.cfg.Pace):
			}
		}
	}

	bars = p.filter.Normalize(bars)
	if len(bars) == 0 {
		return nil, apperrors.NewDataError("bybit", "load_range", "no klines returned for range").
			WithContext("symbol", p.cfg.Symbol).
			WithContext("start", start).
			WithContext("end", end)
	}

	p.logger.Info("loaded klines",
		zap.Int("bars", len(bars)),
		zap.Int("pages", pages),
		zap.Time("first", bars[0].Timestamp),
		zap.Time("last", bars[len(bars)-1].Timestamp))
	return bars, nil
}
