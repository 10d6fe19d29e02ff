package writer

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const reportTemplate = "testcases.md.tmpl"

// ReportFileName is the Markdown report written next to each JSON file.
const ReportFileName = "testcases.md"

// reportData is the struct passed to the report template.
type reportData struct {
	Folder string
	Cases  []domain.TestCase
}

// Report renders resolved test cases as a Markdown document.
type Report struct {
	tmpl *template.Template
}

// NewReport parses the embedded report template.
func NewReport() (*Report, error) {
	tmpl, err := template.New(reportTemplate).Funcs(reportFuncMap()).ParseFS(templateFS, "templates/"+reportTemplate)
	if err != nil {
		return nil, domain.NewError("write", reportTemplate, 0, "failed to parse template", err)
	}
	return &Report{tmpl: tmpl}, nil
}

// Render executes the report template for one folder.
func (r *Report) Render(folder string, cases []domain.TestCase) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, reportData{Folder: folder, Cases: cases}); err != nil {
		return nil, domain.NewError("write", folder, 0, "failed to execute template", err)
	}
	return buf.Bytes(), nil
}

func reportFuncMap() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"inline": inline,
		// cell escapes text for a Markdown table cell.
		"cell": func(s string) string {
			return strings.ReplaceAll(inline(s), "|", `\|`)
		},
	}
}

// inline folds multi-line text onto one line.
func inline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
