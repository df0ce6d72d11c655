package export

import (
	"strings"
	"time"
	"unicode"
)

// PlaceholderName replaces the subject's name when both name fields are empty.
const PlaceholderName = "CV"

// FileName builds "{first}_{last}_{YYYY-MM-DD}.pdf". Empty name parts are left out
// and PlaceholderName is used when nothing remains.
func FileName(first, last string, now time.Time) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{first, last} {
		if s := sanitize(p); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, PlaceholderName)
	}
	parts = append(parts, now.Format("2006-01-02"))
	return strings.Join(parts, "_") + ".pdf"
}

// sanitize keeps letters, digits, '-' and '_' and turns whitespace runs into '_'.
func sanitize(s string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			sb.WriteRune(r)
			lastUnderscore = false
		case unicode.IsSpace(r) || r == '_':
			if !lastUnderscore && sb.Len() > 0 {
				sb.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(sb.String(), "_")
}

// ensurePDFExt appends ".pdf" unless the name already ends with it.
func ensurePDFExt(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return name
	}
	return name + ".pdf"
}
