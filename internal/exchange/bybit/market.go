package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// KlineInterval represents the time interval for kline data
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval3m  KlineInterval = "3"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval30m KlineInterval = "30"
	Interval1h  KlineInterval = "60"
	Interval2h  KlineInterval = "120"
	Interval4h  KlineInterval = "240"
	Interval6h  KlineInterval = "360"
	Interval12h KlineInterval = "720"
	Interval1d  KlineInterval = "D"
	Interval1w  KlineInterval = "W"
	Interval1M  KlineInterval = "M"
)

// MaxKlineLimit is the largest page the kline endpoint serves
const MaxKlineLimit = 1000

var intervalAliases = map[string]KlineInterval{
	"1m": Interval1m, "3m": Interval3m, "5m": Interval5m, "15m": Interval15m, "30m": Interval30m,
	"1h": Interval1h, "2h": Interval2h, "4h": Interval4h, "6h": Interval6h, "12h": Interval12h,
	"1d": Interval1d, "d": Interval1d, "1w": Interval1w, "w": Interval1w, "1mo": Interval1M,
}

// ParseInterval accepts Bybit codes ("60", "D") or short forms ("1h", "1d").
func ParseInterval(s string) (KlineInterval, error) {
	s = strings.TrimSpace(s)
	switch KlineInterval(s) {
	case Interval1m, Interval3m, Interval5m, Interval15m, Interval30m, Interval1h, Interval2h,
		Interval4h, Interval6h, Interval12h, Interval1d, Interval1w, Interval1M:
		return KlineInterval(s), nil
	}
	if iv, ok := intervalAliases[strings.ToLower(s)]; ok {
		return iv, nil
	}
	return "", apperrors.NewConfigurationError("bybit", "parse_interval", fmt.Sprintf("unsupported interval %q", s))
}

// Kline represents a single kline/candlestick data point
type Kline struct {
	StartTime  time.Time
	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64
	Volume     float64
	Turnover   float64
}

// ToOHLCV converts a kline into a bar
func (k Kline) ToOHLCV() types.OHLCV {
	return types.OHLCV{
		Timestamp: k.StartTime,
		Open:      k.OpenPrice,
		High:      k.HighPrice,
		Low:       k.LowPrice,
		Close:     k.ClosePrice,
		Volume:    k.Volume,
	}
}

// KlineParams holds parameters for fetching kline data
type KlineParams struct {
	Category string        // "spot", "linear", "inverse"
	Symbol   string        // Trading pair symbol (e.g., "BTCUSDT")
	Interval KlineInterval // Time interval
	Start    *time.Time    // Start time (optional)
	End      *time.Time    // End time (optional)
	Limit    int           // Number of records to return (max 1000, default 200)
}

// GetKlines fetches one page of klines, newest first, retrying transient failures
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]Kline, error) {
	if params.Category == "" {
		params.Category = "spot"
	}
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > MaxKlineLimit {
		params.Limit = MaxKlineLimit
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}
	if params.Start != nil {
		reqParams["start"] = params.Start.UnixMilli()
	}
	if params.End != nil {
		reqParams["end"] = params.End.UnixMilli()
	}

	var klines []Kline
	err := RetryWithConfig(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
		if err != nil {
			return apperrors.NewNetworkError("bybit", "get_klines", err)
		}
		klines, err = parseKlineResponse(result)
		return err
	}, c.retry)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines for %s: %w", params.Symbol, err)
	}
	return klines, nil
}

// parseKlineResponse decodes the kline list. A malformed row fails the page.
func parseKlineResponse(response interface{}) ([]Kline, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok || serverResp == nil {
		return nil, apperrors.NewDataError("bybit", "parse_klines", "invalid response type")
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorCategoryData, "bybit", "parse_klines")
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorCategoryData, "bybit", "parse_klines")
	}

	klines := make([]Kline, 0, len(klineResult.List))
	for i, item := range klineResult.List {
		k, err := parseKlineRow(item)
		if err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrorCategoryData, "bybit", "parse_klines").
				WithContext("row", i)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// parseKlineRow reads [startTime, open, high, low, close, volume, turnover]
func parseKlineRow(item []string) (Kline, error) {
	if len(item) < 7 {
		return Kline{}, fmt.Errorf("expected 7 fields, got %d", len(item))
	}
	ms, err := strconv.ParseInt(item[0], 10, 64)
	if err != nil {
		return Kline{}, fmt.Errorf("invalid start time %q: %w", item[0], err)
	}
	values := make([]float64, 6)
	for i := range values {
		values[i], err = strconv.ParseFloat(item[i+1], 64)
		if err != nil {
			return Kline{}, fmt.Errorf("invalid number %q: %w", item[i+1], err)
		}
	}
	return Kline{
		StartTime:  time.UnixMilli(ms).UTC(),
		OpenPrice:  values[0],
		HighPrice:  values[1],
		LowPrice:   values[2],
		ClosePrice: values[3],
		Volume:     values[4],
		Turnover:   values[5],
	}, nil
}
