package export

import (
	"bytes"
	"encoding/csv"
	"html/template"
	"io"

	"backoffice/backend/internal/domain"
)

// WriteCSV writes one header row followed by one row per day.
func WriteCSV(w io.Writer, report domain.DREReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(dailyHeader); err != nil {
		return err
	}
	for _, entry := range report.Daily {
		if err := cw.Write(dailyStrings(entry)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type section struct {
	Title string
	Lines []line
}

type htmlView struct {
	From     string
	To       string
	Sections []section
	Header   []string
	Rows     [][]string
}

func sections(s domain.DRESummary) []section {
	return []section{
		{"Resumo", summaryLines(s)},
		{"Indicadores", indicatorLines(s)},
		{"Impostos", taxLines(s)},
		{"Depreciação e Amortização", depreciationLines(s)},
	}
}

// dreHTMLTmpl renders the printable report. Fields are escaped by html/template.
var dreHTMLTmpl = template.Must(template.New("dre").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>DRE {{.From}} a {{.To}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Demonstração do Resultado do Exercício</h2>
  <p>Período: {{.From}} a {{.To}}</p>
{{range .Sections}}
  <h3>{{.Title}}</h3>
  <table>
    <thead><tr><th>Indicador</th><th>Valor</th></tr></thead>
    <tbody>{{range .Lines}}<tr><td>{{.Label}}</td><td class="num">{{.Value}}</td></tr>{{end}}</tbody>
  </table>
{{end}}
  <h3>Movimento diário</h3>
  <table>
    <thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
    <tbody>{{range .Rows}}<tr>{{range .}}<td class="num">{{.}}</td>{{end}}</tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func WriteHTML(w io.Writer, report domain.DREReport) error {
	view := htmlView{
		From:     report.From,
		To:       report.To,
		Sections: sections(report.Summary),
		Header:   dailyHeader,
		Rows:     make([][]string, 0, len(report.Daily)),
	}
	for _, entry := range report.Daily {
		view.Rows = append(view.Rows, dailyStrings(entry))
	}
	return dreHTMLTmpl.Execute(w, view)
}

var emailHTMLTmpl = template.Must(template.New("dre-email").Parse(`<h1>Relatório Financeiro</h1>
<p>Período: {{.From}} a {{.To}}</p>
{{range .Sections}}<h2>{{.Title}}</h2>
<ul>{{range .Lines}}
  <li>{{.Label}}: {{.Value}}</li>{{end}}
</ul>
{{end}}`))

// EmailHTML is the HTML body of the report email.
func EmailHTML(report domain.DREReport) (string, error) {
	var buf bytes.Buffer
	err := emailHTMLTmpl.Execute(&buf, htmlView{
		From:     report.From,
		To:       report.To,
		Sections: sections(report.Summary),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
