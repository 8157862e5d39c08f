package reporting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/signal-optimizer/internal/backtest"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
	"github.com/ducminhle1904/signal-optimizer/pkg/validation"
)

// Sheet names
const (
	TradesSheet      = "Trades"
	SummarySheet     = "Summary"
	TrialsSheet      = "Trials"
	WalkForwardSheet = "Walk-Forward"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteTradesXLSX writes the best run's trades and the search summary to a
// workbook. Trials and Walk-Forward sheets are added when the report has them.
func (r *DefaultExcelReporter) WriteTradesXLSX(report *Report, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), TradesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(SummarySheet); err != nil {
		return err
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	var trades []backtest.Trade
	if report.Best != nil {
		trades = report.Best.Trades
	}
	if err := r.writeTradesSheet(fx, TradesSheet, trades, styles); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, SummarySheet, report, styles); err != nil {
		return err
	}
	if history := trialHistory(report); len(history) > 0 {
		if _, err := fx.NewSheet(TrialsSheet); err != nil {
			return err
		}
		if err := r.writeTrialsSheet(fx, TrialsSheet, report.BestPoint, history, styles); err != nil {
			return err
		}
	}
	if report.Validation != nil {
		if _, err := fx.NewSheet(WalkForwardSheet); err != nil {
			return err
		}
		if err := r.writeWalkForwardSheet(fx, WalkForwardSheet, report.Validation, styles); err != nil {
			return err
		}
	}

	return fx.SaveAs(path)
}

func border(color string, style int, sides ...string) []excelize.Border {
	out := make([]excelize.Border, len(sides))
	for i, side := range sides {
		out[i] = excelize.Border{Type: side, Color: color, Style: style}
	}
	return out
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	light := border("E0E0E0", 1, "left", "right", "bottom")
	right := &excelize.Alignment{Horizontal: "right"}
	numFmt := "0.0000"

	// Header style - Dark slate gray background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border("000000", 1, "left", "right", "top", "bottom"),
	})
	if err != nil {
		return styles, err
	}

	styles.NumberStyle, err = fx.NewStyle(&excelize.Style{CustomNumFmt: &numFmt, Alignment: right, Border: light})
	if err != nil {
		return styles, err
	}

	// Percentage style (right aligned, % format)
	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{NumFmt: 10, Alignment: right, Border: light})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: light})
	if err != nil {
		return styles, err
	}

	// Losing trades in red, winners in green
	styles.RedNumberStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &numFmt, Font: &excelize.Font{Color: "FF0000"}, Alignment: right, Border: light,
	})
	if err != nil {
		return styles, err
	}
	styles.GreenNumberStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &numFmt, Font: &excelize.Font{Color: "008000"}, Alignment: right, Border: light,
	})
	if err != nil {
		return styles, err
	}

	styles.SummaryStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: border("000000", 2, "left", "right", "top", "bottom"),
	})
	if err != nil {
		return styles, err
	}

	styles.TimestampStyle, err = fx.NewStyle(&excelize.Style{NumFmt: 22, Border: light})
	if err != nil {
		return styles, err
	}

	return styles, nil
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return fx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// writeRow writes values starting at column A with one style per value.
func writeRow(fx *excelize.File, sheet string, row int, values []interface{}, styles []int) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		if i < len(styles) {
			if err := fx.SetCellStyle(sheet, cell, cell, styles[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, trades []backtest.Trade, styles ExcelStyles) error {
	widths := map[string]float64{"A": 8, "B": 10, "C": 20, "D": 14, "E": 20, "F": 14, "G": 14, "H": 14, "I": 12, "J": 16}
	for col, w := range widths {
		if err := fx.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}

	headers := []string{"Trade", "Direction", "Entry Time", "Entry Price", "Exit Time", "Exit Price", "Exit Reason", "PnL", "Return", "Cumulative PnL"}
	if err := writeHeader(fx, sheet, headers, styles.HeaderStyle); err != nil {
		return err
	}

	cum := 0.0
	for i, t := range trades {
		cum += t.PnL
		pnlStyle := styles.GreenNumberStyle
		if t.PnL <= 0 {
			pnlStyle = styles.RedNumberStyle
		}
		values := []interface{}{
			i + 1, t.Direction.String(), t.EntryTime.UTC(), t.EntryPrice, t.ExitTime.UTC(),
			t.ExitPrice, string(t.ExitReason), t.PnL, t.Return, cum,
		}
		rowStyles := []int{
			styles.BaseStyle, styles.BaseStyle, styles.TimestampStyle, styles.NumberStyle, styles.TimestampStyle,
			styles.NumberStyle, styles.BaseStyle, pnlStyle, styles.PercentStyle, styles.NumberStyle,
		}
		if err := writeRow(fx, sheet, i+2, values, rowStyles); err != nil {
			return err
		}
	}

	if len(trades) > 0 {
		last, err := excelize.CoordinatesToCellName(len(headers), len(trades)+1)
		if err != nil {
			return err
		}
		return fx.AutoFilter(sheet, "A1:"+last, nil)
	}
	return nil
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, report *Report, styles ExcelStyles) error {
	if err := fx.SetColWidth(sheet, "A", "A", 24); err != nil {
		return err
	}
	if err := fx.SetColWidth(sheet, "B", "B", 60); err != nil {
		return err
	}

	row := 1
	section := func(title string) error {
		if row > 1 {
			row++
		}
		err := writeRow(fx, sheet, row, []interface{}{title, ""}, []int{styles.SummaryStyle, styles.SummaryStyle})
		row++
		return err
	}
	pair := func(label string, value interface{}, style int) error {
		if f, ok := value.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			value, style = formatFloat(f, 4), styles.BaseStyle
		}
		err := writeRow(fx, sheet, row, []interface{}{label, value}, []int{styles.BaseStyle, style})
		row++
		return err
	}

	if err := section("Run"); err != nil {
		return err
	}
	for _, kv := range [][2]string{
		{"Symbol", report.Symbol}, {"Interval", report.Interval},
		{"Generator", report.Generator}, {"Objective", report.Metric},
	} {
		if err := pair(kv[0], kv[1], styles.BaseStyle); err != nil {
			return err
		}
	}

	for _, stage := range []struct {
		title string
		res   *optimization.Result
	}{{"Global Search", report.Search}, {"Refinement", report.Refine}} {
		res := stage.res
		if res == nil {
			continue
		}
		if err := section(stage.title); err != nil {
			return err
		}
		rows := []struct {
			label string
			value interface{}
			style int
		}{
			{"Searcher", res.Searcher, styles.BaseStyle},
			{"Status", res.Status.String(), styles.BaseStyle},
			{"Message", res.Summary(), styles.BaseStyle},
			{"Best Objective", res.BestObjective, styles.NumberStyle},
			{"Trials", res.Trials, styles.BaseStyle},
			{"Cache Hits", res.CacheHits, styles.BaseStyle},
			{"Degenerate", res.Degenerate, styles.BaseStyle},
			{"Penalized", res.Penalized, styles.BaseStyle},
			{"Stop Reason", res.StopReason, styles.BaseStyle},
			{"Duration", res.Duration.String(), styles.BaseStyle},
		}
		for _, p := range rows {
			if err := pair(p.label, p.value, p.style); err != nil {
				return err
			}
		}
	}

	if len(report.BestPoint) > 0 {
		if err := section("Best Parameters"); err != nil {
			return err
		}
		for _, name := range sortedKeys(report.BestPoint) {
			if err := pair(name, report.BestPoint[name], styles.NumberStyle); err != nil {
				return err
			}
		}
	}

	if res := report.Best; res != nil {
		if err := section("Best Run"); err != nil {
			return err
		}
		rows := []struct {
			label string
			value interface{}
			style int
		}{
			{"Cumulative PnL", res.CumulativePnL, styles.NumberStyle},
			{"Cumulative Return", res.CumulativeReturn, styles.PercentStyle},
			{"Total Trades", res.TotalTrades, styles.BaseStyle},
			{"Winning Trades", res.WinningTrades, styles.BaseStyle},
			{"Losing Trades", res.LosingTrades, styles.BaseStyle},
			{"Win Rate", res.WinRate, styles.PercentStyle},
			{"Profit Factor", res.ProfitFactor, styles.NumberStyle},
			{"Max Drawdown", res.MaxDrawdown, styles.NumberStyle},
			{"Sharpe Ratio", res.SharpeRatio, styles.NumberStyle},
			{"Unrealized PnL", res.UnrealizedPnL, styles.NumberStyle},
			{"Bars", res.Bars, styles.BaseStyle},
		}
		for _, p := range rows {
			if err := pair(p.label, p.value, p.style); err != nil {
				return err
			}
		}
	}
	return nil
}

func trialHistory(report *Report) []optimization.Trial {
	var out []optimization.Trial
	for _, res := range []*optimization.Result{report.Search, report.Refine} {
		if res != nil {
			out = append(out, res.History...)
		}
	}
	return out
}

func (r *DefaultExcelReporter) writeTrialsSheet(fx *excelize.File, sheet string, best optimization.Point, trials []optimization.Trial, styles ExcelStyles) error {
	names := sortedKeys(best)
	headers := append([]string{"Trial", "State", "Objective", "Trades", "Error"}, names...)
	if err := writeHeader(fx, sheet, headers, styles.HeaderStyle); err != nil {
		return err
	}

	for i, t := range trials {
		errText := ""
		if t.Err != nil {
			errText = t.Err.Error()
		}
		values := []interface{}{t.Number, t.State.String(), t.Value, t.Trades, errText}
		rowStyles := []int{styles.BaseStyle, styles.BaseStyle, styles.NumberStyle, styles.BaseStyle, styles.BaseStyle}
		for _, name := range names {
			values = append(values, t.Point[name])
			rowStyles = append(rowStyles, styles.NumberStyle)
		}
		if err := writeRow(fx, sheet, i+2, values, rowStyles); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeWalkForwardSheet(fx *excelize.File, sheet string, summary *validation.WalkForwardSummary, styles ExcelStyles) error {
	headers := []string{"Fold", "Train Start", "Train End", "Test Start", "Test End", "Train Return", "Test Return", "Train Drawdown", "Test Drawdown", "Test Trades"}
	if err := writeHeader(fx, sheet, headers, styles.HeaderStyle); err != nil {
		return err
	}
	if err := fx.SetColWidth(sheet, "B", "E", 20); err != nil {
		return err
	}

	row := 2
	for _, f := range summary.Results {
		values := []interface{}{f.Fold, f.TrainStart, f.TrainEnd, f.TestStart, f.TestEnd}
		rowStyles := []int{styles.BaseStyle, styles.TimestampStyle, styles.TimestampStyle, styles.TimestampStyle, styles.TimestampStyle}
		for _, res := range []*backtest.RunResult{f.TrainResults, f.TestResults} {
			if res == nil {
				values = append(values, "-")
			} else {
				values = append(values, res.CumulativeReturn)
			}
			rowStyles = append(rowStyles, styles.PercentStyle)
		}
		for _, res := range []*backtest.RunResult{f.TrainResults, f.TestResults} {
			if res == nil {
				values = append(values, "-")
			} else {
				values = append(values, res.MaxDrawdown)
			}
			rowStyles = append(rowStyles, styles.NumberStyle)
		}
		if f.TestResults != nil {
			values = append(values, f.TestResults.TotalTrades)
		} else {
			values = append(values, 0)
		}
		rowStyles = append(rowStyles, styles.BaseStyle)
		if err := writeRow(fx, sheet, row, values, rowStyles); err != nil {
			return err
		}
		row++
	}

	row++
	verdict := [][]interface{}{
		{"Mode", summary.Mode},
		{"Average Train Return %", summary.AverageTrainReturn},
		{"Average Test Return %", summary.AverageTestReturn},
		{"Return Degradation %", summary.ReturnDegradation},
		{"Overfitting Risk", summary.OverfittingRisk},
	}
	for _, v := range verdict {
		if err := writeRow(fx, sheet, row, v, []int{styles.SummaryStyle, styles.BaseStyle}); err != nil {
			return err
		}
		row++
	}
	return nil
}

// WriteTradesXLSX is a convenience wrapper around DefaultExcelReporter.
func WriteTradesXLSX(report *Report, path string) error {
	return NewDefaultExcelReporter().WriteTradesXLSX(report, path)
}
