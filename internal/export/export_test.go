package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/reporting"
)

func sampleReport(t *testing.T) domain.DREReport {
	t.Helper()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	period, err := reporting.NewPeriod(from, from.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	return reporting.BuildDRE(reporting.Input{
		Period: period,
		Sales:  []domain.Sale{{ID: "s1", Total: decimal.NewFromInt(1000), CreatedAt: from}},
		Expenses: []domain.Expense{
			{ID: "e1", Amount: decimal.NewFromInt(400), Type: domain.ExpenseOperational, Date: from.AddDate(0, 0, 1)},
		},
	}, reporting.DefaultRates(), from)
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatXLSX, "PDF": FormatPDF, " csv ": FormatCSV, "html": FormatHTML}
	for raw, want := range cases {
		got, err := ParseFormat(raw)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseFormat("docx"); err == nil {
		t.Fatalf("expected unsupported format to fail")
	}
}

func TestWriteXLSX(t *testing.T) {
	report := sampleReport(t)
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, report); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetDaily)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 1+len(report.Daily) {
		t.Fatalf("expected header plus %d rows, got %d", len(report.Daily), len(rows))
	}
	if rows[0][0] != "date" || rows[1][0] != "2024-01-01" {
		t.Fatalf("unexpected first cells: %v / %v", rows[0], rows[1])
	}

	value, err := f.GetCellValue(sheetSummary, "B3")
	if err != nil {
		t.Fatalf("summary cell: %v", err)
	}
	if value != "R$ 1000.00" {
		t.Fatalf("expected total sales in B3, got %q", value)
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, sampleReport(t)); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected PDF header")
	}
}

func TestWriteCSV(t *testing.T) {
	report := sampleReport(t)
	var buf bytes.Buffer
	if err := WriteCSV(&buf, report); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	if records[2][0] != "2024-01-02" || records[2][3] != "400.00" {
		t.Fatalf("unexpected second day: %v", records[2])
	}
}

func TestWriteHTMLAndEmail(t *testing.T) {
	report := sampleReport(t)
	var buf bytes.Buffer
	if err := WriteHTML(&buf, report); err != nil {
		t.Fatalf("write html: %v", err)
	}
	page := buf.String()
	if !strings.Contains(page, "Demonstração do Resultado do Exercício") || !strings.Contains(page, "R$ 1000.00") {
		t.Fatalf("unexpected html page: %s", page)
	}

	body, err := EmailHTML(report)
	if err != nil {
		t.Fatalf("email html: %v", err)
	}
	if !strings.Contains(body, "Relatório Financeiro") || !strings.Contains(body, "EBITDA") {
		t.Fatalf("unexpected email body: %s", body)
	}
}

func TestFilename(t *testing.T) {
	report := domain.DREReport{From: "2024-01-01", To: "2024-01-31"}
	if got := FormatPDF.Filename(report); got != "dre-2024-01-01_2024-01-31.pdf" {
		t.Fatalf("unexpected filename %q", got)
	}
}
