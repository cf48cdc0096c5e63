package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/nconklindev/sift/internal/converter"
	"github.com/nconklindev/sift/internal/logger"
	"github.com/nconklindev/sift/internal/session"
	"github.com/nconklindev/sift/internal/table"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":   "ok",
		"sessions": s.store.Len(),
	})
}

// createSession handles POST /api/sessions
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := s.store.Create()
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, sessionView{ID: sess.ID, Created: sess.Created.Format(time.RFC3339)})
}

// deleteSession handles DELETE /api/sessions/{sessionID}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "sessionID")); err != nil {
		renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listFiles handles GET /api/sessions/{sessionID}/files
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	views := []fileView{}
	err := s.store.With(chi.URLParam(r, "sessionID"), func(sess *session.Session) error {
		for _, fs := range sess.Files() {
			views = append(views, newFileView(fs, s.cfg.PreviewRows))
		}
		return nil
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, views)
}

// uploadFiles handles POST /api/sessions/{sessionID}/files. Every part of
// the multipart field "files" becomes one file; parse failures are reported
// per file and do not fail the request.
func (s *Server) uploadFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			err = newAPIError(http.StatusBadRequest, "INVALID_REQUEST", "Expected a multipart upload", err.Error())
		}
		renderError(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		renderError(w, r, fmt.Errorf("%w: use the \"files\" field", errNoFiles))
		return
	}

	uploads := make([]session.Upload, 0, len(parts))
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			renderError(w, r, fmt.Errorf("open upload %s: %w", part.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			renderError(w, r, fmt.Errorf("read upload %s: %w", part.Filename, err))
			return
		}
		uploads = append(uploads, session.Upload{Name: part.Filename, Data: data})
	}

	var results []uploadResult
	err := s.store.With(chi.URLParam(r, "sessionID"), func(sess *session.Session) error {
		for _, fs := range sess.Add(uploads...) {
			res := uploadResult{ID: fs.ID, Name: fs.Name, Stage: fs.Stage.String()}
			if fs.Failed() {
				res.Error = fs.Err.Error()
			}
			results = append(results, res)
			s.metrics.filesParsed.WithLabelValues(formatLabel(fs.Name), result(fs.Err)).Inc()
		}
		return nil
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	logger.InfoContext(r.Context(), "files uploaded", "session", chi.URLParam(r, "sessionID"), "count", len(results))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, results)
}

func formatLabel(name string) string {
	format, err := converter.DetectFormat(name)
	if err != nil {
		return "unknown"
	}
	return string(format)
}

// withFile runs fn against the file named by the request path.
func (s *Server) withFile(r *http.Request, fn func(*session.Session, *session.FileState) error) error {
	return s.store.With(chi.URLParam(r, "sessionID"), func(sess *session.Session) error {
		fs, err := sess.File(chi.URLParam(r, "fileID"))
		if err != nil {
			return err
		}
		return fn(sess, fs)
	})
}

// getFile handles GET .../files/{fileID}
func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	var view fileView
	err := s.withFile(r, func(_ *session.Session, fs *session.FileState) error {
		view = newFileView(fs, s.cfg.PreviewRows)
		return nil
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// removeFile handles DELETE .../files/{fileID}
func (s *Server) removeFile(w http.ResponseWriter, r *http.Request) {
	err := s.withFile(r, func(sess *session.Session, fs *session.FileState) error {
		return sess.Remove(fs.ID)
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// applyEvent handles POST .../files/{fileID}/events
func (s *Server) applyEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := render.Bind(r, &req); err != nil {
		var invalid validator.ValidationErrors
		if !errors.As(err, &invalid) {
			err = newAPIError(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
		}
		renderError(w, r, err)
		return
	}

	ev, err := req.event()
	if err != nil {
		renderError(w, r, err)
		return
	}

	var view fileView
	err = s.store.With(chi.URLParam(r, "sessionID"), func(sess *session.Session) error {
		fs, err := sess.Dispatch(chi.URLParam(r, "fileID"), ev)
		if fs == nil {
			return err
		}
		s.metrics.events.WithLabelValues(ev.Name(), result(err)).Inc()
		if err != nil {
			return err
		}
		view = newFileView(fs, s.cfg.PreviewRows)
		return nil
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// chart handles GET .../files/{fileID}/chart
func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	var view chartView
	err := s.withFile(r, func(_ *session.Session, fs *session.FileState) error {
		if fs.Failed() {
			return fmt.Errorf("%w: %s", session.ErrFileFailed, fs.Name)
		}
		c, ok := table.ChartData(fs.Table())
		if !ok {
			return session.ErrNotChartable
		}
		view = newChartView(c, s.cfg.Chart.MaxRows)
		return nil
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// export handles POST .../files/{fileID}/export
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	var view *artifactView
	err := s.withFile(r, func(_ *session.Session, fs *session.FileState) error {
		art, err := fs.Export()
		if err != nil {
			return err
		}
		s.metrics.exports.WithLabelValues(string(fs.Format)).Inc()
		view = newArtifactView(art)
		return nil
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// download handles GET .../files/{fileID}/download
func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	var art *session.Artifact
	err := s.withFile(r, func(_ *session.Session, fs *session.FileState) error {
		if fs.Failed() {
			return fmt.Errorf("%w: %s", session.ErrFileFailed, fs.Name)
		}
		art = fs.Artifact()
		if art == nil {
			return session.ErrNoArtifact
		}
		return nil
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", art.MIME)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	_, _ = w.Write(art.Data)
}
