// Package export assembles a multi-page A4 PDF from rasterized vertical slices of
// a rendered document.
package export

import (
	"errors"
	"fmt"
)

// ErrExportInProgress is returned when Export is called while another export of the
// same document is still running. The second call does nothing.
var ErrExportInProgress = errors.New("export already in progress")

// Export stages reported in ExportError.
const (
	StageMount   = "mount"
	StageCapture = "capture"
	StageCompose = "compose"
	StageSave    = "save"
	StageCancel  = "cancel"
)

// ExportError is the single terminal error of a failed export attempt.
// Page is 1-based and zero when the failure is not tied to a page.
type ExportError struct {
	Stage   string
	Page    int
	Message string
	Cause   error
}

func (e *ExportError) Error() string {
	where := e.Stage
	if e.Page > 0 {
		where = fmt.Sprintf("%s, page %d", e.Stage, e.Page)
	}
	if e.Cause != nil {
		return fmt.Sprintf("export error (%s): %s: %v", where, e.Message, e.Cause)
	}
	return fmt.Sprintf("export error (%s): %s", where, e.Message)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// UserMessage is the text shown to the user for a failed export.
func (e *ExportError) UserMessage() string {
	if e.Cause != nil {
		return fmt.Sprintf("PDF export failed: %v", e.Cause)
	}
	return fmt.Sprintf("PDF export failed: %s", e.Message)
}
