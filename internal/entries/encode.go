package entries

import (
	"strconv"
	"strings"
)

// Encode serialises records into the flat field format of the kind.
// Missing fields are written as empty text, proficiency defaults to 3 and the link
// type to "website". Experience and education records are each followed by a blank line.
func Encode(kind Kind, records []Record) string {
	var sb strings.Builder

	switch kind {
	case KindExperience, KindEducation:
		firstField, secondField := kind.headerFields()
		for _, r := range records {
			period := FormatPeriod(r.String(FieldStartDate), r.String(FieldEndDate), r.Bool(FieldIsCurrent))
			sb.WriteString(r.String(firstField))
			sb.WriteString(fieldSeparator)
			sb.WriteString(r.String(secondField))
			sb.WriteString(fieldSeparator)
			sb.WriteString(period)
			sb.WriteString("\n")
			if details := r.String(FieldDetails); details != "" {
				sb.WriteString(details)
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
		return sb.String()

	case KindSkills, KindLanguages, KindInterests, KindPortfolio:
		lines := make([]string, 0, len(records))
		for _, r := range records {
			lines = append(lines, encodeLine(kind, r))
		}
		return strings.Join(lines, "\n")

	default:
		return ""
	}
}

func encodeLine(kind Kind, r Record) string {
	switch kind {
	case KindSkills:
		return "- " + r.String(FieldSkill) + fieldSeparator + strconv.Itoa(r.Int(FieldProficiency, DefaultProficiency))
	case KindLanguages:
		return "- " + r.String(FieldLanguage) + bulletMarker + r.String(FieldLevel)
	case KindInterests:
		return "- " + r.String(FieldInterest)
	case KindPortfolio:
		linkType := r.String(FieldType)
		if linkType == "" {
			linkType = DefaultLinkType
		}
		return r.String(FieldTitle) + fieldSeparator + r.String(FieldURL) + fieldSeparator + linkType
	}
	return ""
}

// Equivalent compares two flat fields ignoring the trailing blank lines that
// Encode appends as a formatting convention.
func Equivalent(a, b string) bool {
	return trimTrailingBlank(a) == trimTrailingBlank(b)
}

func trimTrailingBlank(s string) string {
	return strings.TrimRight(strings.ReplaceAll(s, "\r\n", "\n"), " \t\n")
}
