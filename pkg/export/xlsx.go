// Package export writes reports to spreadsheet files.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"freight-curve/decision/report"
)

const (
	SummarySheet = "Summary"
	DataSheet    = "Data"
	SeriesSheet  = "WS Series"
)

// WriteXLSX writes the report as a workbook with summary, data table and WS series sheets.
func WriteXLSX(w io.Writer, r *report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeSummary(f, r); err != nil {
		return err
	}
	if err := writeData(f, r); err != nil {
		return err
	}
	if err := writeSeries(f, r); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, r *report.Report) error {
	rows := [][]any{
		{r.Title()},
		{"Run", r.RunID.String()},
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Base", r.Base.Label, r.Base.Source},
		{"Compare", r.Compare.Label, r.Compare.Source},
		{},
		{"Market Headlines"},
	}
	for _, h := range r.Headlines {
		rows = append(rows, []any{"", h})
	}
	rows = append(rows, []any{}, []any{"Interesting Fact", r.Fact})
	for _, u := range r.Unmatched {
		rows = append(rows, []any{"Unmatched", u.Period, string(u.PresentIn)})
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	return f.SetColWidth(SummarySheet, "A", "A", 18)
}

func writeData(f *excelize.File, r *report.Report) error {
	if _, err := f.NewSheet(DataSheet); err != nil {
		return fmt.Errorf("failed to add data sheet: %w", err)
	}
	for i, header := range r.TableHeader() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(DataSheet, cell, header)
		f.SetColWidth(DataSheet, colName(i+1), colName(i+1), 14)
	}
	for i, row := range r.Rows {
		for j, value := range row.Cells() {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(DataSheet, cell, value); err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
		}
	}
	return nil
}

// writeSeries lays the WS values out one row per period with base, compare and
// change columns per route; unquoted values stay blank.
func writeSeries(f *excelize.File, r *report.Report) error {
	if _, err := f.NewSheet(SeriesSheet); err != nil {
		return fmt.Errorf("failed to add series sheet: %w", err)
	}
	header := []any{"Period"}
	for _, route := range r.Routes {
		header = append(header,
			fmt.Sprintf("%s (%s)", route, r.Base.Label),
			fmt.Sprintf("%s (%s)", route, r.Compare.Label),
			route+" Change")
	}
	if err := f.SetSheetRow(SeriesSheet, "A1", &header); err != nil {
		return err
	}

	for i, sp := range r.Series {
		row := []any{sp.Period}
		for _, p := range sp.Points {
			row = append(row, numeric(p.BaseRate), numeric(p.CompareRate), numeric(p.RateDelta))
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SeriesSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write series row %d: %w", i+2, err)
		}
	}
	return nil
}

func numeric(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.InexactFloat64()
}

func colName(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}
