package ui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nconklindev/sift/internal/converter"
	"github.com/nconklindev/sift/internal/session"
	"github.com/nconklindev/sift/internal/table"
)

const dataCSV = "id,value\n1,10\n1,10\n2,\n3,20\n"

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func loaded(t *testing.T, m Model, name, content string) Model {
	t.Helper()
	fs := session.NewFileState(session.Upload{Name: name, Data: []byte(content)})
	m, _ = update(m, fileLoadedMsg{file: fs})
	return m
}

// moveTo puts the cursor on the given control.
func moveTo(t *testing.T, m Model, c control) Model {
	t.Helper()
	for i, got := range m.controls() {
		if got == c {
			m.cursor = i
			return m
		}
	}
	t.Fatalf("control %d not offered", c)
	return m
}

func TestInitialModel(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantState state
	}{
		{"no files opens the picker", Options{}, stateFilePicker},
		{"files on the command line open the workspace", Options{Files: []string{"a.csv"}}, stateWorkspace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := InitialModel(tt.opts)
			assert.Equal(t, tt.wantState, m.state)
			assert.Equal(t, 5, m.opts.PreviewRows)
			assert.Equal(t, 20, m.opts.ChartMaxRows)
		})
	}
}

func TestUpdate_DedupeThenFill(t *testing.T) {
	m := loaded(t, InitialModel(Options{}), "data.csv", dataCSV)
	require.Equal(t, stateWorkspace, m.state)

	m = moveTo(t, m, controlDedupe)
	m, _ = update(m, keyEnter)
	assert.Equal(t, "Removed 1 duplicate row(s)", m.status)
	assert.True(t, m.activeFile().Dedupe)
	assert.Equal(t, 3, m.activeFile().Table().Rows())

	m = moveTo(t, m, controlFill)
	m, _ = update(m, keySpace)
	assert.NoError(t, m.err)
	assert.Equal(t, [][]string{{"1", "10"}, {"2", "15"}, {"3", "20"}}, m.activeFile().Table().Head(5))

	view := m.View()
	assert.Contains(t, view, "[✓] Remove duplicates")
	assert.Contains(t, view, "[✓] Fill missing values")
	assert.Contains(t, view, "3 rows × 2 columns")
}

func TestUpdate_ColumnSelection(t *testing.T) {
	m := loaded(t, InitialModel(Options{}), "data.csv", dataCSV)

	m = moveTo(t, m, controlColumns)
	m, _ = update(m, keyEnter)
	require.Equal(t, stateColumnSelection, m.state)
	assert.Equal(t, []string{"id", "value"}, m.colOrder)

	// Clear, then pick value before id.
	m, _ = update(m, runeKey('n'))
	assert.Empty(t, m.colOrder)
	m, _ = update(m, keyDown)
	m, _ = update(m, keySpace)
	m.colCursor = 0
	m, _ = update(m, keySpace)
	assert.Equal(t, []string{"value", "id"}, m.colOrder)
	assert.Contains(t, m.View(), " 1.] value")

	m, _ = update(m, keyEnter)
	assert.Equal(t, stateWorkspace, m.state)
	assert.Equal(t, []string{"value", "id"}, m.activeFile().Columns())
	assert.Equal(t, session.StageColumnFiltered, m.activeFile().Stage)
}

func TestUpdate_ColumnSelectionCancel(t *testing.T) {
	m := loaded(t, InitialModel(Options{}), "data.csv", dataCSV)

	m = moveTo(t, m, controlColumns)
	m, _ = update(m, keyEnter)
	m, _ = update(m, runeKey('n'))
	m, _ = update(m, keyEsc)

	assert.Equal(t, stateWorkspace, m.state)
	assert.Equal(t, []string{"id", "value"}, m.activeFile().Columns())
}

func TestUpdate_NoColumnsSelected(t *testing.T) {
	m := loaded(t, InitialModel(Options{}), "data.csv", dataCSV)

	m = moveTo(t, m, controlColumns)
	m, _ = update(m, keyEnter)
	m, _ = update(m, runeKey('n'))
	m, _ = update(m, keyEnter)

	assert.Empty(t, m.activeFile().Columns())
	assert.NotContains(t, m.controls(), controlChart)
	assert.Contains(t, m.View(), "(no columns selected)")
}

func TestUpdate_ChartOnlyForNumericColumns(t *testing.T) {
	m := loaded(t, InitialModel(Options{}), "names.csv", "name,city\nann,oslo\nbob,rome\n")
	assert.NotContains(t, m.controls(), controlChart)

	m = loaded(t, m, "data.csv", dataCSV)
	require.Contains(t, m.controls(), controlChart)

	m = moveTo(t, m, controlChart)
	m, _ = update(m, keyEnter)
	assert.True(t, m.activeFile().ShowChart)
	assert.Contains(t, m.View(), barChar)
}

func TestUpdate_FailedFile(t *testing.T) {
	m := InitialModel(Options{})
	m, _ = update(m, fileLoadedMsg{file: session.FailedFile("notes.txt", errors.New("boom"))})

	assert.Equal(t, stateWorkspace, m.state)
	assert.Empty(t, m.controls())

	m, cmd := update(m, keyEnter)
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Could not read notes.txt")

	// A failing file leaves the others usable.
	m = loaded(t, m, "data.csv", dataCSV)
	assert.NotEmpty(t, m.controls())
	assert.Contains(t, m.viewTabs(), "✗ notes.txt")
}

func TestUpdate_SwitchAndCloseFiles(t *testing.T) {
	m := loaded(t, InitialModel(Options{}), "a.csv", dataCSV)
	m = loaded(t, m, "b.csv", dataCSV)
	require.Equal(t, 1, m.active)

	m, _ = update(m, keyTab)
	assert.Equal(t, 0, m.active)
	assert.Equal(t, "a.csv", m.activeFile().Name)

	m, _ = update(m, runeKey('x'))
	assert.Len(t, m.session.Files(), 1)
	assert.Equal(t, "b.csv", m.activeFile().Name)

	m, _ = update(m, runeKey('x'))
	assert.Equal(t, stateFilePicker, m.state)
	assert.Nil(t, m.activeFile())
}

func TestUpdate_Download(t *testing.T) {
	dir := t.TempDir()
	m := loaded(t, InitialModel(Options{OutputDir: dir}), "data.csv", dataCSV)

	m = moveTo(t, m, controlFormat)
	m, _ = update(m, keyEnter)
	assert.Equal(t, converter.FormatXLSX, m.activeFile().Format)
	assert.Contains(t, m.View(), "Download as data.xlsx")

	m = moveTo(t, m, controlDownload)
	m, cmd := update(m, keyEnter)
	require.NotNil(t, cmd)
	assert.Equal(t, session.StageDownloadable, m.activeFile().Stage)

	msg := cmd()
	saved, ok := msg.(fileSavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)
	assert.Equal(t, filepath.Join(dir, "data.xlsx"), saved.path)

	data, err := os.ReadFile(saved.path)
	require.NoError(t, err)
	assert.Equal(t, saved.result.Size, len(data))

	tbl, err := converter.Parse("data.xlsx", data)
	require.NoError(t, err)
	assert.Equal(t, 4, tbl.Rows())

	m, _ = update(m, msg)
	assert.True(t, strings.HasPrefix(m.status, "Saved "))
}

func TestUpdate_Reset(t *testing.T) {
	m := loaded(t, InitialModel(Options{}), "data.csv", dataCSV)

	m = moveTo(t, m, controlDedupe)
	m, _ = update(m, keyEnter)
	m = moveTo(t, m, controlReset)
	m, _ = update(m, keyEnter)

	fs := m.activeFile()
	assert.False(t, fs.Dedupe)
	assert.Equal(t, 4, fs.Table().Rows())
	assert.Equal(t, "Restored the uploaded table", m.status)
}

func TestLoadFile_Missing(t *testing.T) {
	msg := loadFile(filepath.Join(t.TempDir(), "gone.csv"))()

	got, ok := msg.(fileLoadedMsg)
	require.True(t, ok)
	assert.True(t, got.file.Failed())
	assert.Equal(t, "gone.csv", got.file.Name)
}

func TestRenderChart(t *testing.T) {
	tbl, err := converter.Parse("data.csv", []byte("a,b,c\n1,-4,9\n2,,9\n4,2,9\n"))
	require.NoError(t, err)

	chart, ok := table.ChartData(tbl)
	require.True(t, ok)

	out := renderChart(chart, 2, 80)
	assert.Contains(t, out, barChar)
	assert.Contains(t, out, negativeBarChar)
	assert.Contains(t, out, "–")
	assert.Contains(t, out, "… 1 more row(s) not shown")
	assert.NotContains(t, out, " c ")

	assert.Empty(t, renderChart(nil, 10, 80))
}
