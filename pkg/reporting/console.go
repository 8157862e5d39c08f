package reporting

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/validation"
)

// maxConsoleTrades caps the trade table; the files carry the full list.
const maxConsoleTrades = 20

// DefaultConsoleReporter renders reports as go-pretty tables.
type DefaultConsoleReporter struct {
	out io.Writer
}

// NewDefaultConsoleReporter creates a console reporter writing to stdout.
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return NewConsoleReporter(os.Stdout)
}

// NewConsoleReporter creates a console reporter writing to w.
func NewConsoleReporter(w io.Writer) *DefaultConsoleReporter {
	if w == nil {
		w = os.Stdout
	}
	return &DefaultConsoleReporter{out: w}
}

func (r *DefaultConsoleReporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// OutputResults prints the search summary, the best parameters, the best
// run's performance and its most recent trades.
func (r *DefaultConsoleReporter) OutputResults(report *Report) {
	if report == nil {
		return
	}
	fmt.Fprintln(r.out)
	r.printSearch(report)
	if report.Final() != nil && report.Final().Status == optimization.StatusNoValidParameters {
		fmt.Fprintf(r.out, "❌ %s\n", report.Final().Summary())
		return
	}
	r.printParams(report.BestPoint)
	if report.Best != nil {
		r.printPerformance(report.Best)
		r.printTrades(report.Best.Trades)
	}
	if report.Validation != nil {
		r.PrintWalkForwardSummary(report.Validation)
	}
	if final := report.Final(); final != nil {
		fmt.Fprintf(r.out, "✅ %s\n", final.Summary())
	}
}

// PrintBacktest prints one run at a fixed point.
func (r *DefaultConsoleReporter) PrintBacktest(p optimization.Point, res *backtest.RunResult) {
	if res == nil {
		return
	}
	fmt.Fprintln(r.out)
	r.printParams(p)
	r.printPerformance(res)
	r.printTrades(res.Trades)
}

func (r *DefaultConsoleReporter) printSearch(report *Report) {
	title := "OPTIMIZATION"
	if report.Symbol != "" {
		title = fmt.Sprintf("OPTIMIZATION - %s %s %s", strings.ToUpper(report.Symbol), report.Interval, report.Generator)
	}
	t := r.newTable(title)
	t.AppendHeader(table.Row{"Stage", "Searcher", "Status", "Trials", "Cache Hits", "Degenerate", "Penalized", "Best", "Stop", "Duration"})
	for _, stage := range []struct {
		name string
		res  *optimization.Result
	}{{"global", report.Search}, {"refine", report.Refine}} {
		if stage.res == nil {
			continue
		}
		res := stage.res
		t.AppendRow(table.Row{
			stage.name, res.Searcher, res.Status.String(), res.Trials, res.CacheHits,
			res.Degenerate, res.Penalized, formatFloat(res.BestObjective, 6), res.StopReason,
			res.Duration.Round(time.Millisecond).String(),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	if report.Metric != "" {
		t.SetCaption("objective: %s", report.Metric)
	}
	t.Render()
}

func (r *DefaultConsoleReporter) printParams(p optimization.Point) {
	if len(p) == 0 {
		return
	}
	t := r.newTable("BEST PARAMETERS")
	t.AppendHeader(table.Row{"Parameter", "Value"})
	for _, name := range sortedKeys(p) {
		t.AppendRow(table.Row{name, formatFloat(p[name], 6)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 12, Align: text.AlignRight},
	})
	t.Render()
}

func (r *DefaultConsoleReporter) printPerformance(res *backtest.RunResult) {
	t := r.newTable("BEST RUN")
	t.AppendRows([]table.Row{
		{"💰 Cumulative PnL", formatFloat(res.CumulativePnL, 4)},
		{"📈 Cumulative Return", formatPercent(res.CumulativeReturn)},
		{"🔄 Total Trades", res.TotalTrades},
		{"✅ Winning Trades", res.WinningTrades},
		{"❌ Losing Trades", res.LosingTrades},
		{"🎯 Win Rate", formatPercent(res.WinRate)},
		{"💹 Profit Factor", formatFloat(res.ProfitFactor, 2)},
		{"📉 Max Drawdown", formatFloat(res.MaxDrawdown, 4)},
		{"📊 Sharpe Ratio", formatFloat(res.SharpeRatio, 2)},
		{"📅 Bars", res.Bars},
	})
	if res.OpenPosition != nil {
		t.AppendRow(table.Row{"⏳ Open Position", fmt.Sprintf("%s @ %s (unrealized %s)",
			res.OpenPosition.Direction, formatFloat(res.OpenPosition.EntryPrice, 4), formatFloat(res.UnrealizedPnL, 4))})
	}
	if res.Warning != nil {
		t.AppendRow(table.Row{"⚠️ Warning", res.Warning.Error()})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, WidthMax: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 60, Align: text.AlignRight},
	})
	t.Render()
}

func (r *DefaultConsoleReporter) printTrades(trades []backtest.Trade) {
	if len(trades) == 0 {
		return
	}
	start := 0
	if len(trades) > maxConsoleTrades {
		start = len(trades) - maxConsoleTrades
	}
	t := r.newTable(fmt.Sprintf("TRADES (%d of %d)", len(trades)-start, len(trades)))
	t.AppendHeader(table.Row{"#", "Side", "Entry Time", "Entry", "Exit Time", "Exit", "Reason", "PnL", "Return"})
	for i := start; i < len(trades); i++ {
		tr := trades[i]
		t.AppendRow(table.Row{
			i + 1, tr.Direction.String(),
			tr.EntryTime.UTC().Format("2006-01-02 15:04"), formatFloat(tr.EntryPrice, 4),
			tr.ExitTime.UTC().Format("2006-01-02 15:04"), formatFloat(tr.ExitPrice, 4),
			string(tr.ExitReason), formatFloat(tr.PnL, 4), formatPercent(tr.Return),
		})
	}
	t.Render()
}

// PrintWalkForwardSummary prints one row per fold and the consistency verdict.
func (r *DefaultConsoleReporter) PrintWalkForwardSummary(summary *validation.WalkForwardSummary) {
	if summary == nil {
		return
	}
	t := r.newTable(fmt.Sprintf("WALK-FORWARD (%s)", strings.ToUpper(summary.Mode)))
	t.AppendHeader(table.Row{"Fold", "Train", "Test", "Train Return", "Test Return", "Train DD", "Test DD", "Test Trades"})
	for _, f := range summary.Results {
		row := table.Row{
			f.Fold,
			fmt.Sprintf("%s → %s", f.TrainStart.Format("2006-01-02"), f.TrainEnd.Format("2006-01-02")),
			fmt.Sprintf("%s → %s", f.TestStart.Format("2006-01-02"), f.TestEnd.Format("2006-01-02")),
		}
		row = append(row, runCells(f.TrainResults, f.TestResults)...)
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{"avg", "", "",
		fmt.Sprintf("%.2f%% ± %.2f", summary.AverageTrainReturn, summary.TrainReturnStdDev),
		fmt.Sprintf("%.2f%% ± %.2f", summary.AverageTestReturn, summary.TestReturnStdDev),
		formatFloat(summary.AverageTrainDrawdown, 4), formatFloat(summary.AverageTestDrawdown, 4), ""})
	t.Render()

	fmt.Fprintf(r.out, "Return Degradation: %.1f%%\n", summary.ReturnDegradation)
	switch summary.OverfittingRisk {
	case "HIGH":
		fmt.Fprintln(r.out, "⚠️  HIGH OVERFITTING RISK - Strategy may not generalize well")
	case "MODERATE":
		fmt.Fprintln(r.out, "⚠️  MODERATE OVERFITTING - Some performance degradation")
	default:
		fmt.Fprintln(r.out, "✅ ROBUST STRATEGY - Good generalization across time periods")
	}
}

func runCells(train, test *backtest.RunResult) table.Row {
	cell := func(res *backtest.RunResult, f func(*backtest.RunResult) string) string {
		if res == nil {
			return "-"
		}
		return f(res)
	}
	ret := func(res *backtest.RunResult) string { return formatPercent(res.CumulativeReturn) }
	dd := func(res *backtest.RunResult) string { return formatFloat(res.MaxDrawdown, 4) }
	trades := func(res *backtest.RunResult) string { return fmt.Sprintf("%d", res.TotalTrades) }
	return table.Row{cell(train, ret), cell(test, ret), cell(train, dd), cell(test, dd), cell(test, trades)}
}

func formatFloat(v float64, prec int) string {
	switch {
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	case math.IsNaN(v):
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func sortedKeys(p optimization.Point) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
