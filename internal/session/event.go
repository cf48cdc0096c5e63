package session

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nconklindev/sift/internal/converter"
	"github.com/nconklindev/sift/internal/table"
)

var ErrNotChartable = errors.New("no numeric column to chart")

// Event is a single user interaction with one file.
type Event interface {
	Name() string
	apply(fs *FileState) error
}

// ToggleDedupe switches duplicate-row removal.
type ToggleDedupe struct{ Enabled bool }

func (ToggleDedupe) Name() string { return "dedupe" }

func (e ToggleDedupe) apply(fs *FileState) error {
	fs.Dedupe = e.Enabled
	if !e.Enabled {
		return nil
	}

	before := fs.current.Rows()
	fs.setTable(table.Dedupe(fs.current))
	fs.advance(StageCleaned)

	if removed := before - fs.current.Rows(); removed > 0 {
		fs.note(fmt.Sprintf("Removed %d duplicate row(s)", removed))
	} else {
		fs.note("No duplicate rows found")
	}
	return nil
}

// ToggleFill switches filling missing numeric values with column means.
type ToggleFill struct{ Enabled bool }

func (ToggleFill) Name() string { return "fill" }

func (e ToggleFill) apply(fs *FileState) error {
	fs.Fill = e.Enabled
	if !e.Enabled {
		return nil
	}

	fs.setTable(table.FillMissingMean(fs.current))
	fs.advance(StageCleaned)
	fs.note("Missing values filled with column means")
	return nil
}

// SelectColumns keeps the named columns, in the given order.
type SelectColumns struct{ Columns []string }

func (SelectColumns) Name() string { return "columns" }

func (e SelectColumns) apply(fs *FileState) error {
	if slices.Equal(e.Columns, fs.current.ColumnNames()) {
		return nil
	}

	t, err := table.Select(fs.current, e.Columns)
	if err != nil {
		return err
	}

	fs.setTable(t)
	fs.advance(StageColumnFiltered)
	fs.note(fmt.Sprintf("Keeping %d column(s)", len(e.Columns)))
	return nil
}

// ToggleChart switches the bar chart preview.
type ToggleChart struct{ Enabled bool }

func (ToggleChart) Name() string { return "chart" }

func (e ToggleChart) apply(fs *FileState) error {
	if e.Enabled && !fs.Chartable() {
		return ErrNotChartable
	}

	fs.ShowChart = e.Enabled
	if e.Enabled {
		fs.advance(StageCharted)
	}
	return nil
}

// ChooseFormat picks the export format.
type ChooseFormat struct{ Format converter.Format }

func (ChooseFormat) Name() string { return "format" }

func (e ChooseFormat) apply(fs *FileState) error {
	format, err := converter.ParseFormat(string(e.Format))
	if err != nil {
		return err
	}
	if format == fs.Format {
		return nil
	}

	fs.Format = format
	fs.invalidate()
	return nil
}

// Reset restores the table as it was parsed and clears every toggle.
type Reset struct{}

func (Reset) Name() string { return "reset" }

func (Reset) apply(fs *FileState) error {
	fs.Dedupe = false
	fs.Fill = false
	fs.ShowChart = false
	fs.reached = StageParsed
	fs.Stage = StageParsed
	fs.setTable(fs.parsed.Clone())
	fs.note("Restored the uploaded table")
	return nil
}
