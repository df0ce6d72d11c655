// Package sections holds the editable, ordered records of each repeatable form section
// and keeps the flat form fields in sync with them.
package sections

import (
	"fmt"
	"strings"

	"github.com/jonathan/resume-builder/internal/entries"
)

// IndexError is returned when a record index is outside the section.
type IndexError struct {
	Kind  entries.Kind
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range for section %s (len %d)", e.Index, e.Kind, e.Len)
}

// ValidationError lists field problems found in a section's records.
type ValidationError struct {
	Kind   entries.Kind
	Errors []FieldProblem
}

// FieldProblem is one invalid field of one record.
type FieldProblem struct {
	Index   int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed for section %s:\n", e.Kind))
	for i, p := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. [%d].%s: %s\n", i+1, p.Index, p.Field, p.Message))
	}
	return sb.String()
}
