package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nconklindev/sift/internal/converter"
	"github.com/nconklindev/sift/internal/logger"
	"github.com/nconklindev/sift/internal/session"
	"github.com/nconklindev/sift/internal/table"
	"github.com/nconklindev/sift/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bubbletable "github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

type state int

const (
	stateFilePicker state = iota
	stateWorkspace
	stateColumnSelection
)

type control int

const (
	controlDedupe control = iota
	controlFill
	controlColumns
	controlChart
	controlFormat
	controlDownload
	controlReset
)

const maxCellWidth = 24

// Options configures the terminal UI.
type Options struct {
	Files        []string
	StartDir     string
	OutputDir    string
	PreviewRows  int
	ChartMaxRows int
}

type Model struct {
	state      state
	filepicker filepicker.Model
	session    *session.Session
	opts       Options

	active  int
	cursor  int
	pending int

	colCursor int
	colOrder  []string

	status string
	err    error

	width  int
	height int
	keys   keyMap
	help   help.Model
}

type fileLoadedMsg struct {
	file *session.FileState
}

type fileSavedMsg struct {
	result *types.ExportResult
	path   string
	err    error
}

func InitialModel(opts Options) Model {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 5
	}
	if opts.ChartMaxRows <= 0 {
		opts.ChartMaxRows = 20
	}

	fp := filepicker.New()
	fp.AllowedTypes = []string{".csv", ".xlsx"}
	fp.CurrentDirectory = opts.StartDir
	if fp.CurrentDirectory == "" {
		fp.CurrentDirectory, _ = os.Getwd()
	}

	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(accent)
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(accentSoft)
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(accentSoft)
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(muted)
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(accent).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(muted)

	m := Model{
		state:      stateFilePicker,
		filepicker: fp,
		session:    session.New(),
		opts:       opts,
		pending:    len(opts.Files),
		keys:       defaultKeyMap(),
		help:       help.New(),
	}
	if m.pending > 0 {
		m.state = stateWorkspace
	}

	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.filepicker.Init()}
	for _, path := range m.opts.Files {
		cmds = append(cmds, loadFile(path))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

		// Leave room for the title, subtitle and help line.
		height := msg.Height - 14
		if height < 5 {
			height = 5
		}

		m.filepicker.SetHeight(height)

		return m, nil

	case fileLoadedMsg:
		if m.pending > 0 {
			m.pending--
		}
		m.session.Attach(msg.file)
		m.active = len(m.session.Files()) - 1
		m.cursor = 0
		m.state = stateWorkspace
		m.err = nil
		m.status = ""
		if !msg.file.Failed() {
			m.status = fmt.Sprintf("Loaded %s", msg.file.Name)
		}
		return m, nil

	case fileSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Saved %s (%s, %d rows)", msg.path, humanize.Bytes(uint64(msg.result.Size)), msg.result.Rows)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker:
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m, tea.Quit
			case key.Matches(msg, m.keys.Back):
				if len(m.session.Files()) > 0 {
					m.state = stateWorkspace
					return m, nil
				}
			}

		case stateWorkspace:
			return m.updateWorkspace(msg)

		case stateColumnSelection:
			return m.updateColumnSelection(msg), nil
		}
	}

	// The picker also needs its directory listings while hidden.
	if _, isKey := msg.(tea.KeyMsg); m.state == stateFilePicker || !isKey {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.pending++
			m.state = stateWorkspace
			return m, loadFile(path)
		}

		return m, cmd
	}

	return m, nil
}

func (m Model) updateWorkspace(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	files := m.session.Files()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.AddFile):
		m.state = stateFilePicker
		return m, m.filepicker.Init()

	case len(files) == 0:
		return m, nil

	case key.Matches(msg, m.keys.NextFile):
		m.active = (m.active + 1) % len(files)
		m.cursor = 0
		m.status, m.err = "", nil

	case key.Matches(msg, m.keys.PrevFile):
		m.active = (m.active - 1 + len(files)) % len(files)
		m.cursor = 0
		m.status, m.err = "", nil

	case key.Matches(msg, m.keys.Remove):
		fs := m.activeFile()
		_ = m.session.Remove(fs.ID)
		if m.active >= len(m.session.Files()) {
			m.active = max(0, len(m.session.Files())-1)
		}
		m.cursor = 0
		m.status = fmt.Sprintf("Closed %s", fs.Name)
		if len(m.session.Files()) == 0 {
			m.state = stateFilePicker
			return m, m.filepicker.Init()
		}

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.controls())-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		return m.activate()
	}

	return m, nil
}

// activate runs the control under the cursor.
func (m Model) activate() (tea.Model, tea.Cmd) {
	controls := m.controls()
	if m.cursor >= len(controls) {
		return m, nil
	}
	fs := m.activeFile()

	switch controls[m.cursor] {
	case controlDedupe:
		m = m.dispatch(session.ToggleDedupe{Enabled: !fs.Dedupe})
	case controlFill:
		m = m.dispatch(session.ToggleFill{Enabled: !fs.Fill})
	case controlColumns:
		m.colOrder = slices.Clone(fs.Selected)
		m.colCursor = 0
		m.state = stateColumnSelection
	case controlChart:
		m = m.dispatch(session.ToggleChart{Enabled: !fs.ShowChart})
	case controlFormat:
		next := converter.FormatXLSX
		if fs.Format == converter.FormatXLSX {
			next = converter.FormatCSV
		}
		m = m.dispatch(session.ChooseFormat{Format: next})
	case controlReset:
		m = m.dispatch(session.Reset{})
	case controlDownload:
		art, err := fs.Export()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.status = fmt.Sprintf("Writing %s…", art.Name)
		return m, saveArtifact(filepath.Join(m.opts.OutputDir, art.Name), art)
	}

	m.cursor = min(m.cursor, len(m.controls())-1)
	return m, nil
}

func (m Model) dispatch(ev session.Event) Model {
	fs := m.activeFile()
	if err := fs.Apply(ev); err != nil {
		m.err = err
		m.status = ""
		return m
	}
	m.err = nil
	m.status = fs.Message
	return m
}

func (m Model) updateColumnSelection(msg tea.KeyMsg) Model {
	columns := m.activeFile().Columns()

	switch {
	case key.Matches(msg, m.keys.Back):
		m.state = stateWorkspace
	case key.Matches(msg, m.keys.Up):
		if m.colCursor > 0 {
			m.colCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.colCursor < len(columns)-1 {
			m.colCursor++
		}
	case key.Matches(msg, m.keys.All):
		m.colOrder = slices.Clone(columns)
	case key.Matches(msg, m.keys.None):
		m.colOrder = nil
	case key.Matches(msg, m.keys.Apply):
		m.state = stateWorkspace
		m = m.dispatch(session.SelectColumns{Columns: m.colOrder})
	case msg.String() == " ":
		if len(columns) == 0 {
			break
		}
		name := columns[m.colCursor]
		if i := slices.Index(m.colOrder, name); i >= 0 {
			m.colOrder = slices.Delete(m.colOrder, i, i+1)
		} else {
			m.colOrder = append(m.colOrder, name)
		}
	}

	return m
}

func (m Model) activeFile() *session.FileState {
	files := m.session.Files()
	if len(files) == 0 {
		return nil
	}
	return files[m.active]
}

// controls lists what the active file offers, in display order. The chart
// toggle only appears while a numeric column is left.
func (m Model) controls() []control {
	fs := m.activeFile()
	if fs == nil || fs.Failed() {
		return nil
	}

	out := []control{controlDedupe, controlFill, controlColumns}
	if fs.Chartable() {
		out = append(out, controlChart)
	}
	return append(out, controlFormat, controlDownload, controlReset)
}

func loadFile(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("file could not be read", "path", path, "error", err)
			return fileLoadedMsg{file: session.FailedFile(filepath.Base(path), err)}
		}
		return fileLoadedMsg{file: session.NewFileState(session.Upload{Name: filepath.Base(path), Data: data})}
	}
}

func saveArtifact(path string, art *session.Artifact) tea.Cmd {
	data := art.Data
	result := art.Result
	return func() tea.Msg {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fileSavedMsg{err: err}
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fileSavedMsg{err: err}
		}
		logger.Info("export written", "path", path, "bytes", len(data))
		return fileSavedMsg{result: result, path: path}
	}
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateWorkspace:
		return m.viewWorkspace()
	case stateColumnSelection:
		return m.viewColumnSelection()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▤ Sift - File Cleaner & Converter"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select a CSV or XLSX file to clean"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")

	helpText := "Press q to quit"
	if len(m.session.Files()) > 0 {
		helpText = "esc: back to files • q: quit"
	}
	s.WriteString(HelpStyle.Render(helpText))

	return s.String()
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, fs := range m.session.Files() {
		name := fs.Name
		switch {
		case i == m.active:
			tabs = append(tabs, ActiveTabStyle.Render(name))
		case fs.Failed():
			tabs = append(tabs, FailedTabStyle.Render("✗ "+name))
		default:
			tabs = append(tabs, TabStyle.Render(name))
		}
	}
	if m.pending > 0 {
		tabs = append(tabs, DisabledStyle.Render(fmt.Sprintf("loading %d…", m.pending)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewWorkspace() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▤ Sift - File Cleaner & Converter"))
	s.WriteString("\n")
	s.WriteString(m.viewTabs())
	s.WriteString("\n\n")

	fs := m.activeFile()
	if fs == nil {
		s.WriteString(SubtitleStyle.Render("Loading…"))
		return s.String()
	}

	var body strings.Builder
	if fs.Failed() {
		body.WriteString(ErrorStyle.Render(fmt.Sprintf("✗ Could not read %s", fs.Name)))
		body.WriteString("\n\n")
		body.WriteString(fs.Err.Error())
		body.WriteString("\n")
	} else {
		body.WriteString(m.viewFile(fs))
	}

	if m.err != nil {
		body.WriteString("\n")
		body.WriteString(ErrorStyle.Render("✗ " + m.err.Error()))
		body.WriteString("\n")
	} else if m.status != "" {
		body.WriteString("\n")
		body.WriteString(SuccessStyle.Render("✓ " + m.status))
		body.WriteString("\n")
	}

	body.WriteString(HelpStyle.Render(m.help.View(workspaceKeys(m.keys))))

	s.WriteString(BoxStyle.Render(body.String()))
	return s.String()
}

func (m Model) viewFile(fs *session.FileState) string {
	var s strings.Builder
	t := fs.Table()

	s.WriteString(SelectedStyle.Render(fmt.Sprintf("Preview of %s", fs.Name)))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("%d rows × %d columns • %s", t.Rows(), len(t.Columns()), fs.Stage)))
	s.WriteString("\n")
	s.WriteString(m.viewPreview(t))
	s.WriteString("\n\n")

	for i, c := range m.controls() {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}

		line := fmt.Sprintf("%s %s", cursor, m.controlLabel(fs, c))
		if m.cursor == i {
			line = SelectedStyle.Render(line)
		}
		s.WriteString(line)
		s.WriteString("\n")
	}

	if fs.ShowChart {
		if chart, ok := table.ChartData(t); ok {
			s.WriteString("\n")
			s.WriteString(renderChart(chart, m.opts.ChartMaxRows, m.width))
		}
	}

	return s.String()
}

func (m Model) controlLabel(fs *session.FileState, c control) string {
	check := func(on bool) string {
		if on {
			return "[✓]"
		}
		return "[ ]"
	}

	switch c {
	case controlDedupe:
		return check(fs.Dedupe) + " Remove duplicates"
	case controlFill:
		return check(fs.Fill) + " Fill missing values"
	case controlColumns:
		return fmt.Sprintf("    Select columns to keep (%d/%d)", len(fs.Selected), len(fs.Columns()))
	case controlChart:
		return check(fs.ShowChart) + " Show chart"
	case controlFormat:
		csvMark, xlsxMark := "(•)", "( )"
		if fs.Format == converter.FormatXLSX {
			csvMark, xlsxMark = "( )", "(•)"
		}
		return fmt.Sprintf("    Convert to: %s CSV %s Excel", csvMark, xlsxMark)
	case controlDownload:
		return fmt.Sprintf("    Download as %s", converter.OutputName(fs.Name, fs.Format))
	case controlReset:
		return "    Reset to uploaded table"
	}
	return ""
}

// viewPreview renders the first rows of t with a bubbles table.
func (m Model) viewPreview(t *table.Table) string {
	if len(t.Columns()) == 0 {
		return DisabledStyle.Render("(no columns selected)")
	}

	head := t.Head(m.opts.PreviewRows)

	cols := make([]bubbletable.Column, len(t.Columns()))
	for j, c := range t.Columns() {
		width := lipgloss.Width(c.Name)
		for _, row := range head {
			width = max(width, lipgloss.Width(row[j]))
		}
		cols[j] = bubbletable.Column{Title: c.Name, Width: min(width, maxCellWidth)}
	}

	rows := make([]bubbletable.Row, len(head))
	for i, row := range head {
		rows[i] = bubbletable.Row(row)
	}

	styles := bubbletable.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(muted).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Cell

	tbl := bubbletable.New(
		bubbletable.WithColumns(cols),
		bubbletable.WithRows(rows),
		bubbletable.WithHeight(len(rows)+1),
		bubbletable.WithFocused(false),
		bubbletable.WithStyles(styles),
	)

	return tbl.View()
}

func (m Model) viewColumnSelection() string {
	var s strings.Builder
	fs := m.activeFile()

	s.WriteString(TitleStyle.Render("▤ Select Columns to Keep"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("File: %s", fs.Name)))
	s.WriteString("\n\n")

	for i, name := range fs.Columns() {
		cursor := " "
		if m.colCursor == i {
			cursor = ">"
		}

		checked := "   "
		if pos := slices.Index(m.colOrder, name); pos >= 0 {
			checked = fmt.Sprintf("%2d.", pos+1)
		}

		kind := ""
		if c := fs.Table().Column(name); c != nil {
			kind = c.Kind.String()
		}

		line := fmt.Sprintf("%s [%s] %s", cursor, checked, name)

		if m.colCursor == i {
			line = SelectedStyle.Render(line)
		} else if slices.Contains(m.colOrder, name) {
			line = CheckedStyle.Render(line)
		} else {
			line = UnselectedStyle.Render(line)
		}

		s.WriteString(line)
		s.WriteString(DisabledStyle.Render(" " + kind))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Keeping %d of %d column(s), in the numbered order\n", len(m.colOrder), len(fs.Columns())))
	s.WriteString(HelpStyle.Render(m.help.View(columnKeys(m.keys))))

	return BoxStyle.Render(s.String())
}
