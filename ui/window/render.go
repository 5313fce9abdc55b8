package window

import (
	"fmt"
	"strings"

	"sheetlens/models"

	"github.com/charmbracelet/glamour"
)

const apiKeyHint = "Make sure your API key is set in the .env file"

func newRenderer(style string, width int) *glamour.TermRenderer {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil
	}
	return r
}

// resultMarkdown lays out an analysis result the way the analysis tab shows it
func resultMarkdown(r *models.AnalysisResult) string {
	if !r.Success {
		msg := r.Error
		if msg == "" {
			msg = "Unknown error"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "❌ Error during analysis: %s\n\n", msg)
		if r.Code != "" {
			fmt.Fprintf(&b, "### 🔧 Generated Code\n\n```go\n%s\n```\n\n", strings.TrimRight(r.Code, "\n"))
		}
		b.WriteString("*" + apiKeyHint + "*\n")
		return b.String()
	}

	output := r.Output
	if !r.HasOutput() {
		output = "No output generated"
	}

	var b strings.Builder
	b.WriteString("✅ Analysis completed successfully!\n\n")
	fmt.Fprintf(&b, "### 📊 Results\n\n```text\n%s\n```\n\n", strings.TrimRight(output, "\n"))
	fmt.Fprintf(&b, "### 🔧 Generated Code\n\n```go\n%s\n```\n\n", strings.TrimRight(r.Code, "\n"))
	if r.Repaired {
		fmt.Fprintf(&b, "*Repaired after: %s*\n\n", r.InitialError)
	}
	b.WriteString("### 📈 Performance\n\n")
	fmt.Fprintf(&b, "- Model: %s\n", r.Model)
	fmt.Fprintf(&b, "- Latency: %gs\n", r.LatencyS)
	fmt.Fprintf(&b, "- Total Tokens: %d\n", r.Tokens.TotalTokens)
	fmt.Fprintf(&b, "- Prompt Tokens: %d\n", r.Tokens.PromptTokens)
	fmt.Fprintf(&b, "- Completion Tokens: %d\n", r.Tokens.CompletionTokens)
	return b.String()
}

func (m Model) renderMarkdown(md string) string {
	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
