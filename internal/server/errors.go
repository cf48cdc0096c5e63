package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/nconklindev/sift/internal/converter"
	"github.com/nconklindev/sift/internal/logger"
	"github.com/nconklindev/sift/internal/session"
	"github.com/nconklindev/sift/internal/table"
)

// APIError is the JSON body of every failed API request.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func newAPIError(status int, code, message string, details any) *APIError {
	return &APIError{
		StatusCode: status,
		ErrorCode:  code,
		Message:    message,
		Details:    details,
	}
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

var errNoFiles = errors.New("no files in request")

// errorFor maps domain errors onto API errors.
func errorFor(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return newAPIError(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Upload exceeds the size limit", tooLarge.Limit)
	}

	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		fields := make([]FieldError, len(invalid))
		for i, fe := range invalid {
			fields[i] = FieldError{Field: fe.Field(), Rule: fe.Tag()}
		}
		return newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", fields)
	}

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return newAPIError(http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found", nil)
	case errors.Is(err, session.ErrFileNotFound):
		return newAPIError(http.StatusNotFound, "FILE_NOT_FOUND", "File not found", nil)
	case errors.Is(err, session.ErrFileFailed):
		return newAPIError(http.StatusConflict, "FILE_FAILED", "File could not be parsed", err.Error())
	case errors.Is(err, session.ErrNoArtifact):
		return newAPIError(http.StatusConflict, "NO_EXPORT", "Export the file before downloading it", nil)
	case errors.Is(err, session.ErrNotChartable):
		return newAPIError(http.StatusConflict, "NOT_CHARTABLE", "File has no numeric column to chart", nil)
	case errors.Is(err, table.ErrUnknownColumn),
		errors.Is(err, table.ErrDuplicateColumn),
		errors.Is(err, converter.ErrUnknownFormat),
		errors.Is(err, session.ErrUnknownEvent),
		errors.Is(err, errNoFiles):
		return newAPIError(http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}

	return newAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error", nil)
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := errorFor(err)

	args := []any{
		"error", err,
		"status", apiErr.StatusCode,
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", args...)
	} else {
		logger.WarnContext(r.Context(), "request rejected", args...)
	}

	_ = render.Render(w, r, apiErr)
}
