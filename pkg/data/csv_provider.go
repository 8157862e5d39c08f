package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

// Recognised header names, lower-cased
var (
	timestampHeaders = []string{"datetime", "timestamp", "date", "time"}
	openHeaders      = []string{"open"}
	highHeaders      = []string{"high"}
	lowHeaders       = []string{"low"}
	closeHeaders     = []string{"close"}
	volumeHeaders    = []string{"volume"}
)

// TimeLayouts are tried in order for non-numeric timestamps. Layouts without
// a zone are read as UTC.
var TimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// csvColumns holds the column index of each field. volume is -1 when absent.
type csvColumns struct {
	timestamp, open, high, low, close, volume int
}

// CSVProvider loads Datetime,Open,High,Low,Close[,Volume] files. Columns are
// located by header name, case-insensitive, in any order. Any malformed row
// fails the whole load with a DATA error.
type CSVProvider struct{}

// NewCSVProvider creates a new CSV data provider
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads historical data from a CSV file
func (p *CSVProvider) LoadData(source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorCategoryData, "data", "open_csv").
			WithContext("file", source)
	}
	defer file.Close()

	bars, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}
	return bars, nil
}

// ValidateData applies the same checks the engine runs before simulating
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	return backtest.ValidateBars(data)
}

// ReadCSV parses bars from any reader.
func ReadCSV(r io.Reader) ([]types.OHLCV, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewDataError("data", "read_csv", "file is empty")
		}
		return nil, apperrors.WrapError(err, apperrors.ErrorCategoryData, "data", "read_csv")
	}
	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	var data []types.OHLCV
	lineNum := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrorCategoryData, "data", "read_csv").
				WithContext("line", lineNum)
		}
		if isBlank(record) {
			continue
		}

		bar, err := parseRecord(record, cols)
		if err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrorCategoryData, "data", "parse_row").
				WithContext("line", lineNum)
		}
		data = append(data, bar)
	}

	if len(data) == 0 {
		return nil, apperrors.NewDataError("data", "read_csv", "no data rows")
	}
	return data, nil
}

// CSVHeader is the header WriteCSV emits. ReadCSV accepts it back.
var CSVHeader = []string{"Datetime", "Open", "High", "Low", "Close", "Volume"}

// WriteCSV writes bars with RFC3339 UTC timestamps.
func WriteCSV(w io.Writer, bars []types.OHLCV) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, b := range bars {
		record := []string{
			b.Timestamp.UTC().Format(time.RFC3339),
			format(b.Open), format(b.High), format(b.Low), format(b.Close), format(b.Volume),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes bars to path, creating its directory.
func SaveCSV(path string, bars []types.OHLCV) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.WrapError(err, apperrors.ErrorCategoryData, "data", "save_csv").WithContext("file", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorCategoryData, "data", "save_csv").WithContext("file", path)
	}
	if err := WriteCSV(f, bars); err != nil {
		f.Close()
		return apperrors.WrapError(err, apperrors.ErrorCategoryData, "data", "save_csv").WithContext("file", path)
	}
	return f.Close()
}

func locateColumns(header []string) (csvColumns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	find := func(names []string) int {
		for _, n := range names {
			if i, ok := index[n]; ok {
				return i
			}
		}
		return -1
	}

	cols := csvColumns{
		timestamp: find(timestampHeaders),
		open:      find(openHeaders),
		high:      find(highHeaders),
		low:       find(lowHeaders),
		close:     find(closeHeaders),
		volume:    find(volumeHeaders),
	}
	var missing []string
	for name, idx := range map[string]int{"Datetime": cols.timestamp, "Open": cols.open, "High": cols.high, "Low": cols.low, "Close": cols.close} {
		if idx < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return cols, apperrors.NewDataError("data", "read_csv",
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}
	return cols, nil
}

func parseRecord(record []string, cols csvColumns) (types.OHLCV, error) {
	field := func(i int) (string, error) {
		if i >= len(record) {
			return "", fmt.Errorf("row has %d columns, need at least %d", len(record), i+1)
		}
		return strings.TrimSpace(record[i]), nil
	}

	raw, err := field(cols.timestamp)
	if err != nil {
		return types.OHLCV{}, err
	}
	ts, err := ParseTimestamp(raw)
	if err != nil {
		return types.OHLCV{}, err
	}

	prices := make([]float64, 4)
	for i, idx := range []int{cols.open, cols.high, cols.low, cols.close} {
		s, err := field(idx)
		if err != nil {
			return types.OHLCV{}, err
		}
		v, err := parsePrice(s)
		if err != nil {
			return types.OHLCV{}, err
		}
		prices[i] = v
	}

	volume := 0.0
	if cols.volume >= 0 && cols.volume < len(record) {
		if s := strings.TrimSpace(record[cols.volume]); s != "" {
			volume, err = strconv.ParseFloat(s, 64)
			if err != nil {
				return types.OHLCV{}, fmt.Errorf("invalid volume %q: %w", s, err)
			}
		}
	}

	return types.OHLCV{
		Timestamp: ts,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    volume,
	}, nil
}

func parsePrice(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("missing price")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("price %q must be finite and positive", s)
	}
	return v, nil
}

// ParseTimestamp reads the supported layouts, or unix seconds/milliseconds
// for all-digit values. The result keeps its zone offset.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range TimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
