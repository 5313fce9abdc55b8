// Package window is the terminal window front end: load a spreadsheet, browse
// it, save it to Parquet and run analyses without blocking the screen.
package window

import (
	"context"
	"fmt"
	"strings"

	"sheetlens/adapters/columnar"
	"sheetlens/adapters/excel"
	"sheetlens/domain/frame"
	"sheetlens/internal/batch"
	"sheetlens/models"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type tab int

const (
	tabPreview tab = iota
	tabAnalysis
	tabStructure
)

var tabNames = []string{"📊 Data Preview", "🤖 AI Analysis", "📋 Data Structure"}

const (
	placeholder = "e.g., 'Sort by column X in descending order' or 'Calculate the sum of column Y'"
	// chrome is the number of lines taken by header, tabs, input and footer
	chrome = 8
)

// Deps are the collaborators of the window
type Deps struct {
	Analyst batch.Analyst
	Parquet *columnar.Writer
	// Load reads a spreadsheet; excel.Load when nil
	Load func(path string) (*frame.Table, error)
	// Model is the initial small/large choice
	Model string
	// Style is the glamour style name; "auto" detects the terminal
	Style string
	// Path is loaded on start when set
	Path string
}

// Model is the bubbletea model of the window
type Model struct {
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc
	styles Styles

	renderer *glamour.TermRenderer
	input    textinput.Model
	open     textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int

	tab     tab
	opening bool
	busy    bool

	path   string
	table  *frame.Table
	model  string
	result *models.AnalysisResult

	status  string
	warning string
	err     error
}

// New creates the window model
func New(deps Deps) Model {
	if deps.Load == nil {
		deps.Load = excel.Load
	}
	if deps.Model == "" {
		deps.Model = models.ModelLarge
	}

	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = 1000
	input.Width = 76

	open := textinput.New()
	open.Placeholder = "path/to/file.xlsx"
	open.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		styles:   DefaultStyles(),
		renderer: newRenderer(deps.Style, 76),
		input:    input,
		open:     open,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		width:    80,
		height:   20 + chrome,
		model:    deps.Model,
	}
	if deps.Path != "" {
		m.busy = true
		m.status = "Loading " + deps.Path + "..."
	}
	m.refresh()
	return m
}

// Init loads the start file, if any
func (m Model) Init() tea.Cmd {
	if m.deps.Path != "" {
		return tea.Batch(m.loadCmd(m.deps.Path), m.spinner.Tick)
	}
	return textinput.Blink
}

// Shutdown cancels a running analysis
func (m Model) Shutdown() {
	m.cancel()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 20)
		m.height = max(msg.Height, chrome+3)
		m.viewport.Width = m.width
		m.viewport.Height = m.height - chrome
		m.input.Width = m.width - 6
		m.renderer = newRenderer(m.deps.Style, m.width-4)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case loadedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			m.refresh()
			return m, nil
		}
		m.path = msg.path
		m.table = msg.table
		m.result = nil
		m.err = nil
		rows, cols := msg.table.Shape()
		m.status = fmt.Sprintf("Loaded %s: %d rows × %d columns", msg.path, rows, cols)
		m.refresh()
		return m, nil

	case analyzedMsg:
		m.busy = false
		m.result = msg.result
		m.status = ""
		m.refresh()
		m.viewport.GotoTop()
		return m, nil

	case savedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = "Parquet saved to: " + msg.path
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.Shutdown()
		return m, tea.Quit
	}

	if m.opening {
		switch msg.Type {
		case tea.KeyEsc:
			m.opening = false
			m.open.Blur()
			return m, nil
		case tea.KeyEnter:
			path := strings.TrimSpace(m.open.Value())
			m.opening = false
			m.open.Blur()
			if path == "" {
				return m, nil
			}
			m.busy = true
			m.status = "Loading " + path + "..."
			return m, tea.Batch(m.loadCmd(path), m.spinner.Tick)
		}
		var cmd tea.Cmd
		m.open, cmd = m.open.Update(msg)
		return m, cmd
	}

	m.warning = ""
	switch msg.Type {
	case tea.KeyEsc:
		m.Shutdown()
		return m, tea.Quit
	case tea.KeyTab:
		return m.switchTab((m.tab + 1) % 3), nil
	case tea.KeyShiftTab:
		return m.switchTab((m.tab + 2) % 3), nil
	case tea.KeyCtrlO:
		// a load would swap the table under a running analysis
		if m.busy {
			return m, nil
		}
		m.opening = true
		m.open.SetValue("")
		cmd := m.open.Focus()
		return m, cmd
	case tea.KeyCtrlT:
		if m.model == models.ModelLarge {
			m.model = models.ModelSmall
		} else {
			m.model = models.ModelLarge
		}
		return m, nil
	case tea.KeyCtrlS:
		if m.table == nil {
			m.warning = "❌ No file loaded!"
			return m, nil
		}
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, tea.Batch(m.saveCmd(), m.spinner.Tick)
	case tea.KeyEnter:
		if m.tab == tabAnalysis {
			return m.startAnalysis()
		}
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.tab == tabAnalysis {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) switchTab(t tab) Model {
	m.tab = t
	if t == tabAnalysis {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	m.refresh()
	m.viewport.GotoTop()
	return m
}

func (m Model) startAnalysis() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	if m.table == nil {
		m.warning = "❌ No file loaded!"
		return m, nil
	}
	instruction := strings.TrimSpace(m.input.Value())
	if instruction == "" {
		m.warning = "⚠️ Please enter a valid analysis instruction!"
		return m, nil
	}

	m.busy = true
	m.err = nil
	m.result = nil
	m.status = "🤖 Generating analysis code..."
	m.refresh()
	return m, tea.Batch(m.analyzeCmd(m.ctx, instruction), m.spinner.Tick)
}

// refresh renders the active tab into the viewport
func (m *Model) refresh() {
	m.viewport.SetContent(m.content())
}

func (m Model) content() string {
	if m.table == nil {
		return "No file loaded. Press ctrl+o to open an .xlsx file."
	}
	switch m.tab {
	case tabStructure:
		return m.table.Structure()
	case tabAnalysis:
		if m.busy && m.result == nil {
			return "🤖 Generating analysis code..."
		}
		if m.result == nil {
			return "Type an instruction below and press enter."
		}
		return m.renderMarkdown(resultMarkdown(m.result))
	default:
		return m.table.String()
	}
}

// View renders the window
func (m Model) View() string {
	var b strings.Builder

	file := "no file"
	if m.path != "" {
		file = m.path
	}
	header := m.styles.Title.Render("XLSX → Parquet Converter & AI Analyzer") + "  " +
		m.styles.Info.Render(fmt.Sprintf("%s · AI Model: %s", file, m.model))
	b.WriteString(header + "\n")

	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == m.tab {
			tabs[i] = m.styles.ActiveTab.Render(name)
		} else {
			tabs[i] = m.styles.Tab.Render(name)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n\n")

	b.WriteString(m.styles.Content.Render(m.viewport.View()) + "\n")

	switch {
	case m.opening:
		b.WriteString(m.styles.Input.Render("Open: "+m.open.View()) + "\n")
	case m.tab == tabAnalysis:
		b.WriteString(m.styles.Input.Render(m.input.View()) + "\n")
	}

	b.WriteString(m.statusLine() + "\n")
	b.WriteString(m.styles.Help.Render("tab switch · ctrl+o open · ctrl+s save .parquet · ctrl+t model · enter analyze · esc quit"))
	return b.String()
}

func (m Model) statusLine() string {
	switch {
	case m.warning != "":
		return m.styles.Warning.Render(m.warning)
	case m.err != nil:
		return m.styles.Error.Render("❌ Error: " + m.err.Error())
	case m.busy:
		return m.spinner.View() + " " + m.styles.Status.Render(m.status)
	default:
		return m.styles.Status.Render(m.status)
	}
}

// Run starts the window and blocks until it is closed
func Run(deps Deps, opts ...tea.ProgramOption) error {
	m := New(deps)
	defer m.Shutdown()
	_, err := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...).Run()
	return err
}
