// Package entries converts between the flat text stored in a form field and ordered
// lists of structured records (one job, one school, one skill per record).
package entries

import "fmt"

// KindError is returned when a section kind name is not recognised.
type KindError struct {
	Name string
}

func (e *KindError) Error() string {
	return fmt.Sprintf("unknown section kind: %q", e.Name)
}

// DecodeError describes why a flat field could not be decoded.
// Decode never returns it; it is logged and an empty list is used instead.
type DecodeError struct {
	Kind    Kind
	Line    int
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	prefix := fmt.Sprintf("decode error (%s", e.Kind)
	if e.Line > 0 {
		prefix += fmt.Sprintf(", line %d", e.Line)
	}
	prefix += ")"
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// FieldError is returned when a value cannot be stored in a record field.
type FieldError struct {
	Kind    Kind
	Field   string
	Message string
	Cause   error
}

func (e *FieldError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("field error (%s.%s): %s: %v", e.Kind, e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("field error (%s.%s): %s", e.Kind, e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return e.Cause
}
