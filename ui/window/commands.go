package window

import (
	"context"

	"sheetlens/domain/frame"
	"sheetlens/models"

	tea "github.com/charmbracelet/bubbletea"
)

type loadedMsg struct {
	path  string
	table *frame.Table
	err   error
}

type analyzedMsg struct {
	result *models.AnalysisResult
}

type savedMsg struct {
	path string
	err  error
}

func (m Model) loadCmd(path string) tea.Cmd {
	load := m.deps.Load
	return func() tea.Msg {
		table, err := load(path)
		return loadedMsg{path: path, table: table, err: err}
	}
}

// analyzeCmd runs off the update loop so the window keeps redrawing
func (m Model) analyzeCmd(ctx context.Context, instruction string) tea.Cmd {
	analyst, table, model := m.deps.Analyst, m.table, m.model
	return func() tea.Msg {
		return analyzedMsg{result: analyst.Analyze(ctx, instruction, table, model)}
	}
}

func (m Model) saveCmd() tea.Cmd {
	writer, table, path := m.deps.Parquet, m.table, m.path
	return func() tea.Msg {
		out, err := writer.SaveFor(table, path)
		return savedMsg{path: out, err: err}
	}
}
