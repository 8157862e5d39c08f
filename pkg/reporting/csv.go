package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
)

// TradeCSVHeader is the header row of the trades CSV.
var TradeCSVHeader = []string{
	"Trade",
	"Direction",
	"Entry_Time",
	"Entry_Price",
	"Exit_Time",
	"Exit_Price",
	"Exit_Reason",
	"PnL",
	"Return_%",
	"Cumulative_PnL",
	"Win_Loss",
}

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteTradesCSV writes one row per closed trade with a running PnL total.
func (r *DefaultCSVReporter) WriteTradesCSV(trades []backtest.Trade, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(TradeCSVHeader); err != nil {
		return err
	}

	cum := 0.0
	for i, t := range trades {
		cum += t.PnL
		outcome := "LOSS"
		if t.PnL > 0 {
			outcome = "WIN"
		}
		row := []string{
			strconv.Itoa(i + 1),
			t.Direction.String(),
			t.EntryTime.UTC().Format(time.RFC3339),
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			t.ExitTime.UTC().Format(time.RFC3339),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			string(t.ExitReason),
			strconv.FormatFloat(t.PnL, 'f', 8, 64),
			strconv.FormatFloat(t.Return*100, 'f', 4, 64),
			strconv.FormatFloat(cum, 'f', 8, 64),
			outcome,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteTradesCSV is a convenience wrapper around DefaultCSVReporter.
func WriteTradesCSV(trades []backtest.Trade, path string) error {
	return NewDefaultCSVReporter().WriteTradesCSV(trades, path)
}
