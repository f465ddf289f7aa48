// Package export renders a DRE report as a downloadable document.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"backoffice/backend/internal/domain"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatXLSX, FormatPDF, FormatCSV, FormatHTML:
		return f, nil
	case "":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "text/html; charset=utf-8"
	}
}

// Filename is the attachment name, e.g. dre-2024-01-01_2024-01-30.pdf.
func (f Format) Filename(report domain.DREReport) string {
	return fmt.Sprintf("dre-%s_%s.%s", report.From, report.To, f)
}

// Write renders report in the given format.
func Write(w io.Writer, f Format, report domain.DREReport) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, report)
	case FormatPDF:
		return WritePDF(w, report)
	case FormatCSV:
		return WriteCSV(w, report)
	case FormatHTML:
		return WriteHTML(w, report)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

type line struct {
	Label string
	Value string
}

func brl(v decimal.Decimal) string {
	return "R$ " + v.StringFixed(2)
}

func pct(v decimal.Decimal) string {
	return v.StringFixed(2) + "%"
}

func summaryLines(s domain.DRESummary) []line {
	return []line{
		{"Vendas Totais", brl(s.TotalSales)},
		{"Despesas Totais", brl(s.TotalExpenses)},
		{"Lucro Total", brl(s.Profit)},
		{"Margem de Lucro", pct(s.ProfitMargin)},
		{"EBITDA", brl(s.EBITDA)},
		{"Margem EBITDA", pct(s.EBITDAMargin)},
	}
}

func indicatorLines(s domain.DRESummary) []line {
	return []line{
		{"ROI", pct(s.ROI)},
		{"ROE", pct(s.ROE)},
		{"Giro de Ativos", s.AssetTurnover.StringFixed(2)},
		{"Índice de Endividamento", pct(s.DebtRatio)},
	}
}

func taxLines(s domain.DRESummary) []line {
	return []line{
		{"ICMS", brl(s.ICMS)},
		{"PIS/COFINS", brl(s.PISCOFINS)},
		{"IR", brl(s.IncomeTax)},
	}
}

func depreciationLines(s domain.DRESummary) []line {
	return []line{
		{"Depreciação", brl(s.Depreciation)},
		{"Amortização", brl(s.Amortization)},
	}
}

// dailyHeader and dailyValues share column order across every tabular format.
var dailyHeader = []string{
	"date", "sales", "salesCount", "expenses", "operationalExpenses", "administrativeExpenses",
	"financialExpenses", "otherExpenses", "profit", "icms", "pisCofins", "incomeTax",
	"depreciation", "amortization", "otherRevenues", "financialRevenues", "serviceRevenues",
}

func dailyDecimals(e domain.DailyEntry) []decimal.Decimal {
	return []decimal.Decimal{
		e.Sales, e.Expenses, e.OperationalExpenses, e.AdministrativeExpenses, e.FinancialExpenses,
		e.OtherExpenses, e.Profit, e.ICMS, e.PISCOFINS, e.IncomeTax, e.Depreciation,
		e.Amortization, e.OtherRevenues, e.FinancialRevenues, e.ServiceRevenues,
	}
}

func dailyStrings(e domain.DailyEntry) []string {
	values := dailyDecimals(e)
	out := make([]string, 0, len(dailyHeader))
	out = append(out, e.Date, values[0].StringFixed(2), fmt.Sprint(e.SalesCount))
	for _, v := range values[1:] {
		out = append(out, v.StringFixed(2))
	}
	return out
}
