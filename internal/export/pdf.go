package export

import (
	"io"

	"github.com/phpdave11/gofpdf"

	"backoffice/backend/internal/domain"
)

// WritePDF renders an A4 page with the summary table followed by the
// daily sales, expenses and profit.
func WritePDF(w io.Writer, report domain.DREReport) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(14, 15, 14)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr("Demonstração do Resultado do Exercício"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, tr("Período: "+report.From+" a "+report.To))
	pdf.Ln(12)

	table := func(title string, lines []line) {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(110, 7, "Indicador", "1", 0, "L", true, 0, "")
		pdf.CellFormat(70, 7, "Valor", "1", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, l := range lines {
			pdf.CellFormat(110, 7, tr(l.Label), "1", 0, "L", false, 0, "")
			pdf.CellFormat(70, 7, tr(l.Value), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}

	table("Resumo", summaryLines(report.Summary))
	table("Indicadores", indicatorLines(report.Summary))
	table("Impostos", taxLines(report.Summary))
	table("Depreciação e Amortização", depreciationLines(report.Summary))

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, tr("Movimento diário"))
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "B", 10)
	for _, h := range []string{"Data", "Vendas", "Despesas", "Lucro"} {
		pdf.CellFormat(45, 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, e := range report.Daily {
		pdf.CellFormat(45, 6, e.Date, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, e.Sales.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, e.Expenses.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, e.Profit.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	return pdf.Output(w)
}
