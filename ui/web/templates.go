package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"sheetlens/domain/frame"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"go.uber.org/zap"
)

var funcMap = template.FuncMap{
	"add":  func(a, b int) int { return a + b },
	"secs": func(v float64) string { return fmt.Sprintf("%.2fs", v) },
	"pct":  func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"kb":   func(v float64) string { return fmt.Sprintf("%.1f KB", v) },
	"join": strings.Join,
	"truncate": func(s string, n int) string {
		r := []rune(s)
		if len(r) <= n {
			return s
		}
		return string(r[:n]) + "..."
	},
	"status": func(ok bool) string {
		if ok {
			return "✅ Success"
		}
		return "❌ Failed"
	},
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html", "templates/fragments/*.html")
}

// RenderMarkdown converts markdown to HTML
func RenderMarkdown(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(md)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.Render(doc, renderer)
}

func renderSidebar() (template.HTML, error) {
	raw, err := embeddedFiles.ReadFile("sidebar.md")
	if err != nil {
		return "", err
	}
	return template.HTML(RenderMarkdown(raw)), nil
}

// renderTemplate executes into a buffer first so a failing template never
// leaves a half-written page
func (s *Server) renderTemplate(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template error", zap.String("template", name), zap.Error(err))
		http.Error(w, "Template rendering failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debug("error writing template response", zap.Error(err))
	}
}

// Preview is a table rendered as text cells
type Preview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Shown   int        `json:"shown"`
	Total   int        `json:"total"`
}

// NewPreview formats the first n rows of t
func NewPreview(t *frame.Table, n int) Preview {
	head := t.Head(n)
	p := Preview{
		Columns: t.Columns(),
		Rows:    make([][]string, head.Len()),
		Shown:   head.Len(),
		Total:   t.Len(),
	}
	for i := range p.Rows {
		cells := make([]string, head.Width())
		for c := range cells {
			v := head.ColumnAt(c).Values[i]
			if v == nil {
				continue
			}
			cells[c] = frame.FormatValue(v)
		}
		p.Rows[i] = cells
	}
	return p
}
