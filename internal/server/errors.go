// Package server provides the local HTTP preview server for the resume builder.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/resume-builder/internal/entries"
	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/sections"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrExportNotFound indicates an unknown export id
type ErrExportNotFound struct {
	ID string
}

func (e *ErrExportNotFound) Error() string {
	return fmt.Sprintf("export not found: %s", e.ID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	if errors.Is(err, export.ErrExportInProgress) {
		return http.StatusConflict
	}

	var (
		kindErr   *entries.KindError
		fieldErr  *entries.FieldError
		indexErr  *sections.IndexError
		secErr    *sections.ValidationError
		schemaErr *schemas.ValidationError
		loadErr   *schemas.SchemaLoadError
		reqErr    *ErrValidation
		notFound  *ErrExportNotFound
	)
	switch {
	case errors.As(err, &kindErr), errors.As(err, &indexErr), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &fieldErr), errors.As(err, &reqErr), errors.As(err, &loadErr):
		return http.StatusBadRequest
	case errors.As(err, &secErr), errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
