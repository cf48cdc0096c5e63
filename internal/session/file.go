// Package session models one user's files and the events that change them.
//
// Every interaction is an Event applied to a FileState. Transforms are
// destructive and cumulative: switching a toggle off keeps the table as it
// is, switching it on again re-applies the (idempotent) transform. Reset is
// the only way back to the parsed table.
package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nconklindev/sift/internal/converter"
	"github.com/nconklindev/sift/internal/logger"
	"github.com/nconklindev/sift/internal/table"
	"github.com/nconklindev/sift/internal/types"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrFileFailed      = errors.New("file failed to parse")
	ErrNoArtifact      = errors.New("no export generated")
	ErrUnknownEvent    = errors.New("unknown event")
)

type Stage int

const (
	StageUploaded Stage = iota
	StageParsed
	StageCleaned
	StageColumnFiltered
	StageCharted
	StageExportRequested
	StageDownloadable
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageUploaded:
		return "uploaded"
	case StageParsed:
		return "parsed"
	case StageCleaned:
		return "cleaned"
	case StageColumnFiltered:
		return "column_filtered"
	case StageCharted:
		return "charted"
	case StageExportRequested:
		return "export_requested"
	case StageDownloadable:
		return "downloadable"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Upload is a file as handed over by the user.
type Upload struct {
	Name string
	Data []byte
}

// Artifact is an exported file held in memory until downloaded.
type Artifact struct {
	Name   string
	MIME   string
	Data   []byte
	Result *types.ExportResult
}

type FileState struct {
	ID   string
	Name string

	Stage   Stage
	Err     error
	Message string

	Dedupe    bool
	Fill      bool
	ShowChart bool
	Format    converter.Format
	Selected  []string

	reached  Stage
	parsed   *table.Table
	current  *table.Table
	artifact *Artifact
}

// NewFileState parses an upload. A parse failure is kept on the returned
// state rather than returned, so one bad file never stops the others.
func NewFileState(up Upload) *FileState {
	fs := &FileState{
		ID:     uuid.NewString(),
		Name:   up.Name,
		Stage:  StageUploaded,
		Format: converter.FormatCSV,
	}

	t, err := converter.Parse(up.Name, up.Data)
	if err != nil {
		logger.Warn("file failed to parse", "file", up.Name, "error", err)
		fs.Err = err
		fs.Stage = StageFailed
		return fs
	}

	fs.parsed = t
	fs.current = t.Clone()
	fs.Selected = t.ColumnNames()
	fs.advance(StageParsed)

	return fs
}

// FailedFile records a file that could not even be read.
func FailedFile(name string, err error) *FileState {
	return &FileState{
		ID:     uuid.NewString(),
		Name:   name,
		Stage:  StageFailed,
		Err:    err,
		Format: converter.FormatCSV,
	}
}

func (fs *FileState) Failed() bool {
	return fs.Stage == StageFailed
}

// Table is the current, transformed table. Nil when parsing failed.
func (fs *FileState) Table() *table.Table {
	return fs.current
}

// Columns lists every column that can still be selected.
func (fs *FileState) Columns() []string {
	if fs.current == nil {
		return nil
	}
	return fs.current.ColumnNames()
}

// Chartable reports whether the chart toggle should be offered.
func (fs *FileState) Chartable() bool {
	return fs.current != nil && table.Chartable(fs.current)
}

// note records the outcome of the last event for display.
func (fs *FileState) note(msg string) {
	fs.Message = msg
}

func (fs *FileState) Artifact() *Artifact {
	return fs.artifact
}

// Apply dispatches one event against the file. Message only describes the
// outcome of the latest event.
func (fs *FileState) Apply(ev Event) error {
	if fs.Failed() {
		return fmt.Errorf("%w: %s: %v", ErrFileFailed, fs.Name, fs.Err)
	}
	fs.Message = ""

	if err := ev.apply(fs); err != nil {
		return err
	}

	logger.Debug("event applied", "file", fs.Name, "event", ev.Name(), "stage", fs.Stage.String(),
		"rows", fs.current.Rows(), "columns", len(fs.current.Columns()))
	return nil
}

// advance records that a working stage was reached. Stages only move
// forward here; export stages are set by Export and undone by invalidate.
func (fs *FileState) advance(s Stage) {
	if s > fs.reached {
		fs.reached = s
	}
	if s > fs.Stage {
		fs.Stage = s
	}
}

// invalidate drops a generated export once what it was built from changes.
func (fs *FileState) invalidate() {
	fs.artifact = nil
	if fs.Stage >= StageExportRequested {
		fs.Stage = fs.reached
	}
}

// setTable replaces the current table and trims the selection to what is
// left in it.
func (fs *FileState) setTable(t *table.Table) {
	fs.current = t
	fs.Selected = t.ColumnNames()
	if fs.ShowChart && !table.Chartable(t) {
		fs.ShowChart = false
	}
	fs.invalidate()
}

// Export serializes the current table to the chosen format and keeps the
// bytes until the next change.
func (fs *FileState) Export() (*Artifact, error) {
	if fs.Failed() {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileFailed, fs.Name, fs.Err)
	}

	fs.Stage = StageExportRequested

	data, err := converter.Export(fs.current, fs.Format)
	if err != nil {
		fs.Stage = fs.reached
		return nil, fmt.Errorf("export %s: %w", fs.Name, err)
	}

	fs.artifact = &Artifact{
		Name:   converter.OutputName(fs.Name, fs.Format),
		MIME:   converter.MIMEType(fs.Format),
		Data:   data,
		Result: converter.Describe(fs.Name, fs.current, fs.Format, data),
	}
	fs.Stage = StageDownloadable
	fs.note(fmt.Sprintf("Processing complete for %s", fs.Name))

	logger.Info("export generated", "file", fs.Name, "output", fs.artifact.Name, "format", fs.Format, "bytes", len(data))
	return fs.artifact, nil
}
