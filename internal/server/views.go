package server

import (
	"fmt"
	"net/http"

	"github.com/nconklindev/sift/internal/converter"
	"github.com/nconklindev/sift/internal/session"
	"github.com/nconklindev/sift/internal/table"
)

type sessionView struct {
	ID      string `json:"id"`
	Created string `json:"created"`
}

type uploadResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stage string `json:"stage"`
	Error string `json:"error,omitempty"`
}

type columnView struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
}

type artifactView struct {
	Name    string   `json:"name"`
	MIME    string   `json:"mime"`
	Size    int      `json:"size"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

type fileView struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Stage     string        `json:"stage"`
	Error     string        `json:"error,omitempty"`
	Message   string        `json:"message,omitempty"`
	Rows      int           `json:"rows"`
	Columns   []columnView  `json:"columns"`
	Preview   [][]string    `json:"preview"`
	Dedupe    bool          `json:"dedupe"`
	Fill      bool          `json:"fill"`
	Chart     bool          `json:"chart"`
	Chartable bool          `json:"chartable"`
	Format    string        `json:"format"`
	Output    string        `json:"output"`
	Selected  []string      `json:"selected"`
	Download  *artifactView `json:"download,omitempty"`
}

func newFileView(fs *session.FileState, previewRows int) fileView {
	v := fileView{
		ID:      fs.ID,
		Name:    fs.Name,
		Stage:   fs.Stage.String(),
		Message: fs.Message,
		Format:  string(fs.Format),
		Output:  converter.OutputName(fs.Name, fs.Format),
		Columns: []columnView{},
		Preview: [][]string{},
	}
	if fs.Failed() {
		v.Error = fs.Err.Error()
		return v
	}

	t := fs.Table()
	missing := t.Missing()
	for _, c := range t.Columns() {
		v.Columns = append(v.Columns, columnView{Name: c.Name, Kind: c.Kind.String(), Missing: missing[c.Name]})
	}
	v.Rows = t.Rows()
	v.Preview = t.Head(previewRows)
	v.Dedupe = fs.Dedupe
	v.Fill = fs.Fill
	v.Chart = fs.ShowChart
	v.Chartable = fs.Chartable()
	v.Selected = fs.Selected

	if art := fs.Artifact(); art != nil {
		v.Download = newArtifactView(art)
	}
	return v
}

func newArtifactView(art *session.Artifact) *artifactView {
	return &artifactView{
		Name:    art.Name,
		MIME:    art.MIME,
		Size:    len(art.Data),
		Rows:    art.Result.Rows,
		Columns: art.Result.Columns,
	}
}

type chartView struct {
	*table.Chart
	TotalRows int `json:"total_rows"`
}

// newChartView keeps at most maxRows rows of c.
func newChartView(c *table.Chart, maxRows int) chartView {
	total := len(c.Labels)
	if total <= maxRows {
		return chartView{Chart: c, TotalRows: total}
	}

	out := &table.Chart{Labels: c.Labels[:maxRows]}
	for _, s := range c.Series {
		out.Series = append(out.Series, table.Series{Name: s.Name, Values: s.Values[:maxRows]})
	}
	return chartView{Chart: out, TotalRows: total}
}

// eventRequest is the JSON body of POST .../events.
type eventRequest struct {
	Type    string   `json:"type" validate:"required,oneof=dedupe fill columns chart format reset"`
	Enabled *bool    `json:"enabled"`
	Columns []string `json:"columns" validate:"omitempty,dive,required"`
	Format  string   `json:"format" validate:"omitempty,oneof=csv xlsx excel"`
}

// Bind implements render.Binder.
func (e *eventRequest) Bind(r *http.Request) error {
	return validate.Struct(e)
}

func (e *eventRequest) event() (session.Event, error) {
	switch e.Type {
	case "dedupe", "fill", "chart":
		if e.Enabled == nil {
			return nil, newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
				[]FieldError{{Field: "enabled", Rule: "required"}})
		}
	}

	switch e.Type {
	case "dedupe":
		return session.ToggleDedupe{Enabled: *e.Enabled}, nil
	case "fill":
		return session.ToggleFill{Enabled: *e.Enabled}, nil
	case "chart":
		return session.ToggleChart{Enabled: *e.Enabled}, nil
	case "columns":
		if e.Columns == nil {
			return nil, newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
				[]FieldError{{Field: "columns", Rule: "required"}})
		}
		return session.SelectColumns{Columns: e.Columns}, nil
	case "format":
		if e.Format == "" {
			return nil, newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
				[]FieldError{{Field: "format", Rule: "required"}})
		}
		return session.ChooseFormat{Format: converter.Format(e.Format)}, nil
	case "reset":
		return session.Reset{}, nil
	}
	return nil, fmt.Errorf("%w: %q", session.ErrUnknownEvent, e.Type)
}
