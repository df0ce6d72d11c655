package entries

import "strings"

// CurrentMarker is the literal that marks an ongoing period ("present").
const CurrentMarker = "do teraz"

// Period is a date range as written in a header line.
type Period struct {
	Start   string
	End     string
	Current bool
}

// ParsePeriod reads the third header field. Text containing CurrentMarker is an
// ongoing period; anything else is split on the first two "-" separated segments.
// Dates that contain "-" themselves (ISO dates) are not supported.
func ParsePeriod(text string) Period {
	parts := strings.Split(text, "-")
	start := strings.TrimSpace(parts[0])

	if strings.Contains(text, CurrentMarker) {
		return Period{Start: start, Current: true}
	}

	var end string
	if len(parts) > 1 {
		end = strings.TrimSpace(parts[1])
	}
	return Period{Start: start, End: end}
}

// FormatPeriod is the inverse of ParsePeriod. An ongoing period never carries an end
// date, and without a start date only the ongoing marker survives.
func FormatPeriod(start, end string, current bool) string {
	if current {
		return start + " - " + CurrentMarker
	}
	if start == "" {
		return ""
	}
	if end != "" {
		return start + " - " + end
	}
	return start
}
