package converter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nconklindev/sift/internal/logger"
	"github.com/nconklindev/sift/internal/table"
	"github.com/nconklindev/sift/internal/types"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SniffLines is how many leading lines are inspected to pick a CSV delimiter.
const SniffLines = 10

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrUnknownFormat     = errors.New("unknown export format")
	ErrEmptyFile         = errors.New("empty file")
	ErrInvalidWorkbook   = errors.New("invalid xlsx workbook")
)

// ParseError reports why a single uploaded file could not be read.
type ParseError struct {
	File   string
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("%s: parse %s: %v", e.File, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseFormat accepts the names a user may type for a format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// DetectFormat decides the format of a file from its extension only.
func DetectFormat(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))

	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ReadBytes reads headers and rows from the contents of an uploaded file.
func ReadBytes(name string, data []byte) (*types.FileData, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, &ParseError{File: name, Err: err}
	}

	var fd *types.FileData
	switch format {
	case FormatCSV:
		fd, err = readCSVData(data)
	case FormatXLSX:
		fd, err = readXLSXData(data)
	}
	if err != nil {
		return nil, &ParseError{File: name, Format: format, Err: err}
	}

	logger.Debug("file read", "file", name, "format", format, "columns", len(fd.Headers), "rows", len(fd.Rows))
	return fd, nil
}

// Parse reads an uploaded file into a Table.
func Parse(name string, data []byte) (*table.Table, error) {
	fd, err := ReadBytes(name, data)
	if err != nil {
		return nil, err
	}

	format, _ := DetectFormat(name)
	t, err := table.New(fd)
	if err != nil {
		return nil, &ParseError{File: name, Format: format, Err: err}
	}
	return t, nil
}

func readCSVData(data []byte) (*types.FileData, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyFile
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	// Blank lines between records carry no data.
	rows := records[1:][:0]
	for _, rec := range records[1:] {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" && len(records[0]) > 1 {
			continue
		}
		rows = append(rows, rec)
	}

	return &types.FileData{
		Headers: records[0],
		Rows:    rows,
	}, nil
}

// decodeText turns CSV bytes into UTF-8: BOM-marked UTF-8 and UTF-16 are
// honoured and anything else that is not valid UTF-8 is read as
// Windows-1252.
func decodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:]), nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return "", fmt.Errorf("decode utf-16: %w", err)
		}
		return string(out), nil
	case utf8.Valid(data):
		return string(data), nil
	default:
		out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		if err != nil {
			return "", fmt.Errorf("decode windows-1252: %w", err)
		}
		return string(out), nil
	}
}

// delimiters are the candidates tried when sniffing, comma first.
var delimiters = []rune{',', ';', '\t', '|'}

// sniffDelimiter keeps the comma unless the header has none, or the comma
// count varies between records while another candidate's count holds
// steady. Delimiters inside quoted fields are not counted.
func sniffDelimiter(text string) rune {
	records := delimiterCounts(text)
	if len(records) == 0 {
		return ','
	}

	header := records[0]
	steady := func(d rune) bool {
		for _, rec := range records[1:] {
			if rec[d] != header[d] {
				return false
			}
		}
		return true
	}

	if header[','] > 0 && steady(',') {
		return ','
	}

	best, bestN := ',', 0
	for _, d := range delimiters[1:] {
		if header[d] > bestN && steady(d) {
			best, bestN = d, header[d]
		}
	}
	if bestN > 0 || header[','] > 0 {
		return best
	}

	// Ragged rows and no comma in the header: go by the header alone.
	for _, d := range delimiters[1:] {
		if header[d] > bestN {
			best, bestN = d, header[d]
		}
	}
	return best
}

// delimiterCounts counts every candidate delimiter outside quotes in each of
// the first SniffLines non-blank records.
func delimiterCounts(text string) []map[rune]int {
	var records []map[rune]int
	counts := make(map[rune]int)
	blank, quoted := true, false

	flush := func() {
		if !blank {
			records = append(records, counts)
		}
		counts = make(map[rune]int)
		blank = true
	}

	for _, r := range text {
		if len(records) == SniffLines {
			return records
		}
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '\n':
			flush()
			continue
		case strings.ContainsRune(string(delimiters), r):
			counts[r]++
		}
		if r != ' ' && r != '\r' {
			blank = false
		}
	}
	if len(records) < SniffLines {
		flush()
	}

	return records
}

func readXLSXData(data []byte) (*types.FileData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)

	// Raw values keep numbers free of their display format.
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	shown, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}

	cells := newSheetCells(f, sheetName)
	for i, row := range rows {
		for j, raw := range row {
			if i >= len(shown) || j >= len(shown[i]) || shown[i][j] == raw {
				continue
			}
			row[j] = cells.value(j+1, i+1, raw, shown[i][j])
		}
	}

	// GetRows trims trailing empty cells; keep data rows that are wider than
	// the header by widening the header instead of failing.
	headers := rows[0]
	for _, row := range rows[1:] {
		for len(headers) < len(row) {
			headers = append(headers, "")
		}
	}

	return &types.FileData{
		Headers: headers,
		Rows:    rows[1:],
	}, nil
}

// sheetCells resolves the text of cells whose raw and displayed values
// differ. Booleans keep TRUE/FALSE and date-formatted serials become ISO
// dates; other numbers stay raw.
type sheetCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	dates    map[int]bool // style ID -> date format
}

func newSheetCells(f *excelize.File, sheet string) *sheetCells {
	c := &sheetCells{f: f, sheet: sheet, dates: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		c.date1904 = *props.Date1904
	}
	return c
}

func (c *sheetCells) value(col, row int, raw, shown string) string {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}

	if typ, err := c.f.GetCellType(c.sheet, cell); err == nil && typ == excelize.CellTypeBool {
		return shown
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	if !c.isDate(cell) {
		return strconv.FormatFloat(serial, 'f', -1, 64)
	}

	tm, err := excelize.ExcelDateToTime(serial, c.date1904)
	if err != nil {
		return shown
	}
	switch {
	case serial < 1:
		return tm.Format("15:04:05")
	case tm.Hour() == 0 && tm.Minute() == 0 && tm.Second() == 0:
		return tm.Format("2006-01-02")
	default:
		return tm.Format("2006-01-02 15:04:05")
	}
}

func (c *sheetCells) isDate(cell string) bool {
	id, err := c.f.GetCellStyle(c.sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	if d, ok := c.dates[id]; ok {
		return d
	}

	style, err := c.f.GetStyle(id)
	d := err == nil && isDateFormat(style)
	c.dates[id] = d
	return d
}

// isDateFormat reports whether a number format shows a date or time: the
// built-in date formats, or a custom code with date or time tokens.
func isDateFormat(s *excelize.Style) bool {
	switch {
	case s.NumFmt >= 14 && s.NumFmt <= 22,
		s.NumFmt >= 27 && s.NumFmt <= 36,
		s.NumFmt >= 45 && s.NumFmt <= 47,
		s.NumFmt >= 50 && s.NumFmt <= 58:
		return true
	case s.CustomNumFmt != nil:
		return hasDateTokens(*s.CustomNumFmt)
	}
	return false
}

// hasDateTokens scans a number format code, skipping quoted literals,
// bracketed sections and escaped characters.
func hasDateTokens(code string) bool {
	quoted, bracketed := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case quoted:
			quoted = ch != '"'
		case bracketed:
			bracketed = ch != ']'
		case ch == '"':
			quoted = true
		case ch == '[':
			bracketed = true
		case ch == '\\':
			i++
		case strings.IndexByte("yYmMdDhHsS", ch) >= 0:
			return true
		}
	}
	return false
}

// Export serializes t in the given format without an index column.
func Export(t *table.Table, format Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case FormatCSV:
		err = writeCSV(&buf, t)
	case FormatXLSX:
		err = writeXLSX(&buf, t)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeCSV(w io.Writer, t *table.Table) error {
	if len(t.Columns()) == 0 {
		return nil
	}

	writer := csv.NewWriter(w)

	if err := writer.Write(t.ColumnNames()); err != nil {
		return err
	}
	for i := 0; i < t.Rows(); i++ {
		if err := writer.Write(t.Row(i)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeXLSX(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	cols := t.Columns()
	if len(cols) > 0 {
		header := make([]interface{}, len(cols))
		for j, c := range cols {
			header[j] = c.Name
		}
		if err := sw.SetRow("A1", header); err != nil {
			return err
		}

		for i := 0; i < t.Rows(); i++ {
			row := make([]interface{}, len(cols))
			for j, c := range cols {
				cell := c.Cells[i]
				switch {
				case cell.Missing:
					row[j] = nil
				case c.Kind == table.KindNumeric:
					row[j] = cell.Num
				default:
					row[j] = cell.Text
				}
			}
			cellName, _ := excelize.CoordinatesToCellName(1, i+2)
			if err := sw.SetRow(cellName, row); err != nil {
				return err
			}
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

// OutputName swaps the extension of an uploaded file's name for the export
// format's extension.
func OutputName(name string, format Format) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return base + "." + string(format)
}

// MIMEType returns the content type of an exported file.
func MIMEType(format Format) string {
	switch format {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// Describe summarizes an exported table.
func Describe(input string, t *table.Table, format Format, data []byte) *types.ExportResult {
	return &types.ExportResult{
		InputFile:  input,
		OutputFile: OutputName(input, format),
		Format:     string(format),
		MIMEType:   MIMEType(format),
		Columns:    t.ColumnNames(),
		Rows:       t.Rows(),
		Size:       len(data),
	}
}
