package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"backoffice/backend/internal/domain"
)

const (
	sheetDaily   = "DRE"
	sheetSummary = "Resumo"
)

// WriteXLSX writes a workbook with the daily rows on sheet "DRE" and the
// summary lines on sheet "Resumo".
func WriteXLSX(w io.Writer, report domain.DREReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetDaily); err != nil {
		return err
	}
	header := make([]any, 0, len(dailyHeader))
	for _, h := range dailyHeader {
		header = append(header, h)
	}
	if err := f.SetSheetRow(sheetDaily, "A1", &header); err != nil {
		return err
	}
	for i, entry := range report.Daily {
		values := dailyDecimals(entry)
		row := make([]any, 0, len(dailyHeader))
		row = append(row, entry.Date, values[0].InexactFloat64(), entry.SalesCount)
		for _, v := range values[1:] {
			row = append(row, v.InexactFloat64())
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetDaily, cell, &row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}
	rows := [][]any{
		{"Período", report.From + " a " + report.To},
		{"Indicador", "Valor"},
	}
	for _, group := range [][]line{
		summaryLines(report.Summary),
		indicatorLines(report.Summary),
		taxLines(report.Summary),
		depreciationLines(report.Summary),
	} {
		for _, l := range group {
			rows = append(rows, []any{l.Label, l.Value})
		}
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetSummary, cell, &rows[i]); err != nil {
			return err
		}
	}

	return f.Write(w)
}
