package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Dedupe returns a table holding the first occurrence of every distinct row.
// Missing cells compare equal to each other and numeric cells compare by
// value, so "1" and "1.0" are the same. A table with no columns has no
// rows to compare and is returned as is.
func Dedupe(t *Table) *Table {
	if len(t.cols) == 0 {
		return t.Clone()
	}

	seen := make(map[string]bool, t.rows)
	keep := make([]int, 0, t.rows)

	var key strings.Builder
	for i := 0; i < t.rows; i++ {
		key.Reset()
		for _, c := range t.cols {
			writeKey(&key, c, c.Cells[i])
		}
		k := key.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		keep = append(keep, i)
	}

	return t.take(keep)
}

func writeKey(b *strings.Builder, c *Column, cell Cell) {
	switch {
	case cell.Missing:
		b.WriteString("\x00")
	case c.Kind == KindNumeric:
		b.WriteString(strconv.FormatFloat(cell.Num, 'g', -1, 64))
	default:
		b.WriteString(strconv.Quote(cell.Text))
	}
	b.WriteByte('\x1f')
}

func (t *Table) take(rows []int) *Table {
	out := &Table{rows: len(rows), cols: make([]*Column, len(t.cols))}
	for j, c := range t.cols {
		cells := make([]Cell, len(rows))
		for i, r := range rows {
			cells[i] = c.Cells[r]
		}
		out.cols[j] = &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return out
}

// Means returns the mean of the non-missing values of every numeric column
// that has at least one such value.
func Means(t *Table) map[string]float64 {
	out := make(map[string]float64)
	for _, c := range t.NumericColumns() {
		var sum float64
		n := 0
		for _, cell := range c.Cells {
			if cell.Missing {
				continue
			}
			sum += cell.Num
			n++
		}
		if n > 0 {
			out[c.Name] = sum / float64(n)
		}
	}
	return out
}

// FillMissingMean replaces missing cells of numeric columns with the column
// mean. Text and temporal columns, and numeric columns with no values at
// all, are returned unchanged.
func FillMissingMean(t *Table) *Table {
	out := t.Clone()
	means := Means(t)

	for _, c := range out.cols {
		mean, ok := means[c.Name]
		if !ok {
			continue
		}
		text := strconv.FormatFloat(mean, 'f', -1, 64)
		for i := range c.Cells {
			if c.Cells[i].Missing {
				c.Cells[i] = Cell{Text: text, Num: mean}
			}
		}
	}

	return out
}

// Select returns a table holding exactly the named columns, in the order
// given. An empty selection yields a table with no columns and the same
// number of rows.
func Select(t *Table, names []string) (*Table, error) {
	out := &Table{rows: t.rows, cols: make([]*Column, 0, len(names))}
	picked := make(map[string]bool, len(names))

	for _, name := range names {
		if picked[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		c := t.Column(name)
		if c == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		picked[name] = true
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		out.cols = append(out.cols, &Column{Name: c.Name, Kind: c.Kind, Cells: cells})
	}

	return out, nil
}
