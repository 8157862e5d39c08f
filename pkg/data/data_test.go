package data

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

const sampleCSV = `Datetime,Open,High,Low,Close,Volume
2024-01-01 00:00:00+00:00,100,101,99,100.5,10
2024-01-01 01:00:00+00:00,100.5,102,100,101.5,12
2024-01-01 02:00:00+00:00,101.5,103,101,102,8
2024-01-01 03:00:00+00:00,102,102.5,100,100.5,15
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSV_ParsesHeaderedFile(t *testing.T) {
	bars, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, bars, 4)

	assert.Equal(t, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), bars[1].Timestamp.UTC())
	assert.Equal(t, 100.5, bars[1].Open)
	assert.Equal(t, 102.0, bars[1].High)
	assert.Equal(t, 100.0, bars[1].Low)
	assert.Equal(t, 101.5, bars[1].Close)
	assert.Equal(t, 12.0, bars[1].Volume)
}

func TestReadCSV_ColumnOrderAndCaseDoNotMatter(t *testing.T) {
	content := "close,LOW,high,open,timestamp\n101,99,102,100,1704067200000\n"
	bars, err := ReadCSV(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, bars, 1)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Timestamp)
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 101.0, bars[0].Close)
	assert.Zero(t, bars[0].Volume, "volume is optional")
}

func TestReadCSV_FailsFast(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"header only", "Datetime,Open,High,Low,Close\n"},
		{"missing column", "Datetime,Open,High,Close\n2024-01-01,1,2,1.5\n"},
		{"bad price", "Datetime,Open,High,Low,Close\n2024-01-01,1,x,1,1.5\n"},
		{"missing price", "Datetime,Open,High,Low,Close\n2024-01-01,1,,1,1.5\n"},
		{"nan price", "Datetime,Open,High,Low,Close\n2024-01-01,1,NaN,1,1.5\n"},
		{"negative price", "Datetime,Open,High,Low,Close\n2024-01-01,1,2,-1,1.5\n"},
		{"bad timestamp", "Datetime,Open,High,Low,Close\nyesterday,1,2,1,1.5\n"},
		{"short row", "Datetime,Open,High,Low,Close\n2024-01-01,1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.True(t, apperrors.IsDataError(err), "got %v", err)
		})
	}
}

func TestReadCSV_ReportsLine(t *testing.T) {
	content := "Datetime,Open,High,Low,Close\n2024-01-01,1,2,1,1.5\n2024-01-02,1,2,oops,1.5\n"
	_, err := ReadCSV(strings.NewReader(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line=3")
}

func TestParseTimestamp(t *testing.T) {
	utc := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-06T07:08:09Z", utc},
		{"2024-05-06 09:08:09+02:00", utc},
		{"2024-05-06 07:08:09", utc},
		{"1714979289", utc},
		{"1714979289000", utc},
		{"2024-05-06", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}

	_, err := ParseTimestamp("")
	assert.Error(t, err)
}

func TestCSVProvider_MissingFileIsDataError(t *testing.T) {
	_, err := NewCSVProvider().LoadData(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, apperrors.IsDataError(err))
}

func TestCachedProvider_LoadsOnce(t *testing.T) {
	path := writeFile(t, sampleCSV)
	p := NewCachedProvider(NewCSVProvider(), nil)

	first, err := p.LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, 1, p.GetCacheSize())

	require.NoError(t, os.Remove(path))
	second, err := p.LoadData(path)
	require.NoError(t, err, "second load must come from the cache")
	assert.Equal(t, first, second)

	second[0].Close = 1
	third, _ := p.LoadData(path)
	assert.Equal(t, 100.5, third[0].Close, "cache hands out copies")

	p.ClearCache()
	assert.Zero(t, p.GetCacheSize())
}

func TestFilters(t *testing.T) {
	f := NewDefaultDataFilter()
	bars, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	t.Run("period", func(t *testing.T) {
		got := f.FilterByPeriod(bars, 2*time.Hour)
		require.Len(t, got, 3)
		assert.Equal(t, bars[1].Timestamp, got[0].Timestamp)
		assert.Len(t, f.FilterByPeriod(bars, 0), 4)
	})

	t.Run("date range", func(t *testing.T) {
		got := f.FilterByDateRange(bars, bars[1].Timestamp, bars[2].Timestamp)
		assert.Len(t, got, 2)
		assert.Len(t, f.FilterByDateRange(bars, time.Time{}, bars[1].Timestamp), 2)
		assert.Len(t, f.FilterByDateRange(bars, bars[3].Timestamp, time.Time{}), 1)
	})

	t.Run("sequence", func(t *testing.T) {
		assert.NoError(t, f.ValidateTimeSequence(bars))

		swapped := []types.OHLCV{bars[1], bars[0]}
		assert.True(t, apperrors.IsDataError(f.ValidateTimeSequence(swapped)))

		dup := []types.OHLCV{bars[0], bars[0]}
		assert.True(t, apperrors.IsDataError(f.ValidateTimeSequence(dup)))
	})

	t.Run("normalize", func(t *testing.T) {
		messy := []types.OHLCV{bars[2], bars[0], bars[1], bars[0]}
		got := f.Normalize(messy)
		require.Len(t, got, 3)
		for i := range got {
			assert.Equal(t, bars[i].Timestamp, got[i].Timestamp)
		}
	})
}

func TestDataManager_Range(t *testing.T) {
	path := writeFile(t, sampleCSV)
	dm := NewDataManager(nil)
	bars, err := dm.LoadFile(path)
	require.NoError(t, err)

	got, err := dm.Range(path).LoadRange(context.Background(), bars[2].Timestamp, time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = dm.Range(path).LoadRange(context.Background(), bars[3].Timestamp.Add(time.Hour), time.Time{})
	assert.True(t, apperrors.IsDataError(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = dm.Range(path).LoadRange(ctx, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDataManager_RejectsUnorderedFile(t *testing.T) {
	content := "Datetime,Open,High,Low,Close\n2024-01-02,1,2,1,1.5\n2024-01-01,1,2,1,1.5\n"
	_, err := NewDataManager(nil).LoadFile(writeFile(t, content))
	require.Error(t, err)
	assert.True(t, apperrors.IsDataError(err))
}

func TestFileLocator(t *testing.T) {
	root := t.TempDir()
	l := NewDefaultFileLocator(nil)
	assert.Empty(t, l.FindDataFile(root, "bybit", "btcusdt", "1h"))

	path := DataFilePath(root, "bybit", "linear", "btcusdt", "1h")
	assert.Equal(t, filepath.Join(root, "bybit", "linear", "BTCUSDT", "60", DataFileName), path)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	assert.Equal(t, path, l.FindDataFile(root, "bybit", "BTCUSDT", "60"))
}

func TestIntervalMinutes(t *testing.T) {
	for in, want := range map[string]string{"5m": "5", "1h": "60", "4h": "240", "1d": "1440", "1w": "10080", "15": "15", "x": "x"} {
		assert.Equal(t, want, IntervalMinutes(in), in)
	}
}

func TestParseTrailingPeriod(t *testing.T) {
	d, ok := ParseTrailingPeriod("30d")
	assert.True(t, ok)
	assert.Equal(t, 30*24*time.Hour, d)

	d, ok = ParseTrailingPeriod("7days")
	assert.True(t, ok)
	assert.Equal(t, 7*24*time.Hour, d)

	d, ok = ParseTrailingPeriod("168h")
	assert.True(t, ok)
	assert.Equal(t, 168*time.Hour, d)

	for _, bad := range []string{"", "d", "-3d", "soon"} {
		_, ok := ParseTrailingPeriod(bad)
		assert.False(t, ok, bad)
	}
}

func TestSaveCSV_RoundTrip(t *testing.T) {
	bars, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bybit", "linear", "BTCUSDT", "60", DataFileName)
	require.NoError(t, SaveCSV(path, bars))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "Datetime,Open,High,Low,Close,Volume\n2024-01-01T00:00:00Z,100,101,99,100.5,10\n"))

	back, err := NewCSVProvider().LoadData(path)
	require.NoError(t, err)
	require.Len(t, back, len(bars))
	for i := range bars {
		assert.True(t, bars[i].Timestamp.Equal(back[i].Timestamp))
		assert.Equal(t, bars[i].Close, back[i].Close)
		assert.Equal(t, bars[i].Volume, back[i].Volume)
	}
}
