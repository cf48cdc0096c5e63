// Package table holds the in-memory representation of an uploaded file and
// the cleaning transforms that operate on it.
package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"

	"github.com/nconklindev/sift/internal/types"
)

var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrDuplicateColumn = errors.New("duplicate column")
)

type Kind int

const (
	KindNumeric Kind = iota
	KindTemporal
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindTemporal:
		return "temporal"
	default:
		return "text"
	}
}

// missingMarkers are the tokens read as a missing value, matching the
// default NA set of common dataframe readers.
var missingMarkers = map[string]bool{
	"":         true,
	"NA":       true,
	"N/A":      true,
	"n/a":      true,
	"NaN":      true,
	"nan":      true,
	"-NaN":     true,
	"-nan":     true,
	"null":     true,
	"NULL":     true,
	"None":     true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"<NA>":     true,
	"1.#IND":   true,
	"-1.#IND":  true,
	"1.#QNAN":  true,
	"-1.#QNAN": true,
}

// IsMissing reports whether a raw value is treated as missing.
func IsMissing(s string) bool {
	return missingMarkers[strings.TrimSpace(s)]
}

type Cell struct {
	Text    string
	Num     float64
	Missing bool
}

func (c Cell) String() string {
	if c.Missing {
		return ""
	}
	return c.Text
}

type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// Table is an ordered set of uniquely named columns of equal length. A
// table with zero columns still remembers how many rows it had.
type Table struct {
	cols []*Column
	rows int
}

// New builds a Table from a raw grid, inferring each column's kind. Short
// rows are padded with missing cells.
func New(data *types.FileData) (*Table, error) {
	names := uniqueHeaders(data.Headers)
	t := &Table{rows: len(data.Rows)}

	for j, row := range data.Rows {
		if len(row) > len(names) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", j+2, len(row), len(names))
		}
	}

	for i, name := range names {
		col := &Column{Name: name, Cells: make([]Cell, len(data.Rows))}
		for j, row := range data.Rows {
			raw := ""
			if i < len(row) {
				raw = row[i]
			}
			col.Cells[j] = Cell{Text: raw, Missing: IsMissing(raw)}
		}
		inferKind(col)
		t.cols = append(t.cols, col)
	}

	return t, nil
}

// uniqueHeaders names empty headers "Unnamed: i" and suffixes repeats with
// ".1", ".2", ... so every column name is unique. Whitespace is kept.
func uniqueHeaders(headers []string) []string {
	names := make([]string, len(headers))
	seen := make(map[string]bool, len(headers))
	counts := make(map[string]int, len(headers))

	for i, h := range headers {
		name := h
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for seen[name] {
			counts[base]++
			name = fmt.Sprintf("%s.%d", base, counts[base])
		}
		seen[name] = true
		names[i] = name
	}

	return names
}

func inferKind(col *Column) {
	numeric := true
	temporal := true
	for i := range col.Cells {
		c := &col.Cells[i]
		if c.Missing {
			continue
		}
		text := strings.TrimSpace(c.Text)
		if numeric {
			if _, err := parseNumber(text); err != nil {
				numeric = false
			}
		}
		if !numeric && temporal {
			if _, err := dateparse.ParseAny(text); err != nil {
				temporal = false
			}
		}
		if !numeric && !temporal {
			break
		}
	}

	switch {
	case numeric:
		col.Kind = KindNumeric
		for i := range col.Cells {
			c := &col.Cells[i]
			if !c.Missing {
				c.Text = strings.TrimSpace(c.Text)
				c.Num, _ = parseNumber(c.Text)
			}
		}
	case temporal:
		col.Kind = KindTemporal
	default:
		col.Kind = KindText
	}
}

func parseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return f, nil
}

func (t *Table) Rows() int {
	return t.rows
}

func (t *Table) Columns() []*Column {
	return t.cols
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.cols {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Row returns the display values of row i in column order.
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.cols))
	for j, c := range t.cols {
		row[j] = c.Cells[i].String()
	}
	return row
}

// NumericColumns returns the numeric columns in column order.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.cols {
		if c.Kind == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy so transforms on the copy leave t untouched.
func (t *Table) Clone() *Table {
	out := &Table{rows: t.rows, cols: make([]*Column, len(t.cols))}
	for i, c := range t.cols {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		out.cols[i] = &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return out
}

// Head returns the first min(n, Rows()) rows as display strings.
func (t *Table) Head(n int) [][]string {
	if n > t.rows {
		n = t.rows
	}
	if n < 0 {
		n = 0
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		out[i] = t.Row(i)
	}
	return out
}

// Missing counts the missing cells per column.
func (t *Table) Missing() map[string]int {
	out := make(map[string]int, len(t.cols))
	for _, c := range t.cols {
		n := 0
		for _, cell := range c.Cells {
			if cell.Missing {
				n++
			}
		}
		out[c.Name] = n
	}
	return out
}
