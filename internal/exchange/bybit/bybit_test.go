package bybit

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
)

var base = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// fakeSource serves hourly klines for hours [0, total) newest first.
type fakeSource struct {
	total int
	calls []KlineParams
	err   error
}

func (f *fakeSource) GetKlines(ctx context.Context, params KlineParams) ([]Kline, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	var out []Kline
	for h := f.total - 1; h >= 0 && len(out) < params.Limit; h-- {
		ts := base.Add(time.Duration(h) * time.Hour)
		if params.End != nil && ts.After(*params.End) {
			continue
		}
		if params.Start != nil && ts.Before(*params.Start) {
			break
		}
		p := 100 + float64(h)
		out = append(out, Kline{StartTime: ts, OpenPrice: p, HighPrice: p + 1, LowPrice: p - 1, ClosePrice: p + 0.5, Volume: 1})
	}
	return out, nil
}

func newProvider(t *testing.T, src KlineSource, pageSize int) *KlineProvider {
	t.Helper()
	p, err := NewKlineProvider(src, KlineProviderConfig{Symbol: "BTCUSDT", PageSize: pageSize, Pace: -1}, nil)
	require.NoError(t, err)
	return p
}

func TestKlineProvider_PagesBackwards(t *testing.T) {
	src := &fakeSource{total: 100}
	p := newProvider(t, src, 10)

	start := base.Add(20 * time.Hour)
	end := base.Add(55 * time.Hour)
	bars, err := p.LoadRange(context.Background(), start, end)
	require.NoError(t, err)

	require.Len(t, bars, 36)
	assert.Equal(t, start, bars[0].Timestamp)
	assert.Equal(t, end, bars[len(bars)-1].Timestamp)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Timestamp.After(bars[i-1].Timestamp))
	}
	assert.Len(t, src.calls, 4)
	assert.Equal(t, Interval1h, src.calls[0].Interval)
	assert.Equal(t, "spot", src.calls[0].Category)
}

func TestKlineProvider_StopsWhenHistoryRunsOut(t *testing.T) {
	src := &fakeSource{total: 5}
	p := newProvider(t, src, 3)

	bars, err := p.LoadRange(context.Background(), base.Add(-48*time.Hour), base.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Len(t, bars, 5)
}

func TestKlineProvider_Errors(t *testing.T) {
	_, err := NewKlineProvider(nil, KlineProviderConfig{Symbol: "X"}, nil)
	assert.True(t, apperrors.IsConfigurationError(err))

	_, err = NewKlineProvider(&fakeSource{}, KlineProviderConfig{}, nil)
	assert.True(t, apperrors.IsConfigurationError(err))

	p := newProvider(t, &fakeSource{total: 0}, 10)
	_, err = p.LoadRange(context.Background(), base, base.Add(time.Hour))
	assert.True(t, apperrors.IsDataError(err))

	_, err = p.LoadRange(context.Background(), base, base)
	assert.True(t, apperrors.IsConfigurationError(err))

	boom := errors.New("boom")
	p = newProvider(t, &fakeSource{err: boom}, 10)
	_, err = p.LoadRange(context.Background(), base, base.Add(time.Hour))
	assert.ErrorIs(t, err, boom)
}

func TestKlineProvider_DefaultRange(t *testing.T) {
	src := &fakeSource{total: 10}
	p := newProvider(t, src, 100)
	p.now = func() time.Time { return base.Add(5 * time.Hour) }

	bars, err := p.LoadRange(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 6)
	assert.Equal(t, base.Add(5*time.Hour).Add(-DefaultLookback), *src.calls[0].Start)
}

func klineResponse(rows [][]string) *bybit_api.ServerResponse {
	list := make([]interface{}, len(rows))
	for i, r := range rows {
		row := make([]interface{}, len(r))
		for j, v := range r {
			row[j] = v
		}
		list[i] = row
	}
	return &bybit_api.ServerResponse{
		RetCode: 0,
		RetMsg:  "OK",
		Result:  map[string]interface{}{"symbol": "BTCUSDT", "category": "spot", "list": list},
	}
}

func TestParseKlineResponse(t *testing.T) {
	ms := strconv.FormatInt(base.UnixMilli(), 10)
	klines, err := parseKlineResponse(klineResponse([][]string{
		{ms, "100", "102", "99", "101", "5", "505"},
	}))
	require.NoError(t, err)
	require.Len(t, klines, 1)
	assert.Equal(t, base, klines[0].StartTime)

	bar := klines[0].ToOHLCV()
	assert.Equal(t, 100.0, bar.Open)
	assert.Equal(t, 102.0, bar.High)
	assert.Equal(t, 99.0, bar.Low)
	assert.Equal(t, 101.0, bar.Close)
	assert.Equal(t, 5.0, bar.Volume)

	_, err = parseKlineResponse(klineResponse([][]string{{ms, "100", "x", "99", "101", "5", "505"}}))
	assert.True(t, apperrors.IsDataError(err))

	_, err = parseKlineResponse(klineResponse([][]string{{ms, "100"}}))
	assert.True(t, apperrors.IsDataError(err))

	_, err = parseKlineResponse(&bybit_api.ServerResponse{RetCode: ErrCodeRateLimitExceeded, RetMsg: "too many visits"})
	assert.True(t, IsRateLimitError(err))

	_, err = parseKlineResponse("nope")
	assert.True(t, apperrors.IsDataError(err))
}

func TestRetryWithConfig(t *testing.T) {
	fast := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}

	calls := 0
	err := RetryWithConfig(context.Background(), func() error {
		calls++
		if calls < 3 {
			return NewBybitError(ErrCodeRateLimitExceeded, "slow down")
		}
		return nil
	}, fast)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = RetryWithConfig(context.Background(), func() error {
		calls++
		return NewBybitError(ErrCodeParamsError, "bad symbol")
	}, fast)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable errors return immediately")

	calls = 0
	err = RetryWithConfig(context.Background(), func() error {
		calls++
		return apperrors.NewNetworkError("bybit", "get_klines", errors.New("reset"))
	}, fast)
	require.Error(t, err)
	assert.Equal(t, 4, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, RetryWithConfig(ctx, func() error { return nil }, fast), context.Canceled)
}

func TestParseInterval(t *testing.T) {
	for in, want := range map[string]KlineInterval{"60": Interval1h, "1h": Interval1h, "4H": Interval4h, "D": Interval1d, "1d": Interval1d, "15m": Interval15m} {
		got, err := ParseInterval(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseInterval("7m")
	assert.True(t, apperrors.IsConfigurationError(err))
}

func TestNewClient_Environment(t *testing.T) {
	assert.Equal(t, "mainnet", NewClient(Config{}).GetEnvironment())
	assert.Equal(t, "testnet", NewClient(Config{Testnet: true}).GetEnvironment())
	assert.Equal(t, "demo", NewClient(Config{Demo: true}).GetEnvironment())
}
