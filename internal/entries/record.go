package entries

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one structured entry of a section. Values are string, int or bool
// depending on the field.
type Record map[string]any

// NewRecord returns a record with every field of the kind set to its default.
func NewRecord(kind Kind) Record {
	r := make(Record, len(kindFields[kind]))
	for _, field := range kindFields[kind] {
		r[field] = zeroValue(field)
	}
	return r
}

func zeroValue(field string) any {
	switch field {
	case FieldIsCurrent:
		return false
	case FieldProficiency:
		return DefaultProficiency
	case FieldType:
		return DefaultLinkType
	default:
		return ""
	}
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the field as text. Missing fields yield "".
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the field as an integer, or def when missing or unparseable.
func (r Record) Int(field string, def int) int {
	switch v := r[field].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

// Bool returns the field as a boolean. Strings "true"/"1" count as true.
func (r Record) Bool(field string) bool {
	switch v := r[field].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		return false
	}
}

// Coerce converts value into the type stored for field in records of kind.
// It accepts the loose types that arrive from JSON (float64 numbers, string booleans).
func Coerce(kind Kind, field string, value any) (any, error) {
	if !kind.HasField(field) {
		return nil, &FieldError{Kind: kind, Field: field, Message: "unknown field"}
	}

	probe := Record{field: value}
	switch field {
	case FieldIsCurrent:
		switch value.(type) {
		case bool, string, nil:
			return probe.Bool(field), nil
		}
		return nil, &FieldError{Kind: kind, Field: field, Message: fmt.Sprintf("expected boolean, got %T", value)}
	case FieldProficiency:
		switch v := value.(type) {
		case nil:
			return DefaultProficiency, nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, &FieldError{Kind: kind, Field: field, Message: "expected integer", Cause: err}
			}
			return n, nil
		case int, int64, float64:
			return probe.Int(field, DefaultProficiency), nil
		}
		return nil, &FieldError{Kind: kind, Field: field, Message: fmt.Sprintf("expected integer, got %T", value)}
	default:
		switch value.(type) {
		case nil:
			return "", nil
		case map[string]any, []any:
			return nil, &FieldError{Kind: kind, Field: field, Message: fmt.Sprintf("expected text, got %T", value)}
		}
		return probe.String(field), nil
	}
}
