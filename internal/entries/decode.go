package entries

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)

const (
	fieldSeparator = "|"
	bulletMarker   = "-"
)

// Decode parses a flat field into records of the given kind.
// It never fails: unparseable input is logged and yields an empty list.
func Decode(kind Kind, text string) (records []Record) {
	defer func() {
		if r := recover(); r != nil {
			logDecodeError(&DecodeError{
				Kind:    kind,
				Message: "recovered from panic",
				Cause:   fmt.Errorf("%v", r),
			})
			records = []Record{}
		}
	}()

	if !kind.Valid() {
		logDecodeError(&DecodeError{Kind: kind, Message: "unknown section kind"})
		return []Record{}
	}
	if strings.TrimSpace(text) == "" {
		return []Record{}
	}

	lines := splitLines(text)
	switch kind {
	case KindExperience, KindEducation:
		return decodeBlocks(kind, lines)
	case KindPortfolio:
		return decodePortfolio(lines)
	default:
		return decodeBullets(kind, lines)
	}
}

func logDecodeError(err *DecodeError) {
	log.Printf("[CODEC] %v", err)
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// IsHeaderLine reports whether a line starts a new record in a block section.
// Bullet lines are details even when they contain the field separator.
func IsHeaderLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.Contains(trimmed, fieldSeparator) && !strings.HasPrefix(trimmed, bulletMarker)
}

// decodeBlocks handles the experience/education grammar: a header line
// "first|second|period" followed by free-text detail lines.
func decodeBlocks(kind Kind, lines []string) []Record {
	records := []Record{}
	firstField, secondField := kind.headerFields()

	var current Record
	var details []string

	flush := func() {
		if current == nil && len(details) == 0 {
			return
		}
		if current == nil {
			current = NewRecord(kind)
		}
		current[FieldDetails] = strings.Join(details, "\n")
		records = append(records, current)
		current = nil
		details = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if IsHeaderLine(trimmed) {
			flush()

			parts := splitFields(trimmed)
			current = NewRecord(kind)
			current[firstField] = part(parts, 0)
			current[secondField] = part(parts, 1)

			period := ParsePeriod(part(parts, 2))
			current[FieldStartDate] = period.Start
			current[FieldEndDate] = period.End
			current[FieldIsCurrent] = period.Current
			continue
		}

		details = append(details, strings.TrimRight(line, " \t\r"))
	}
	flush()

	return records
}

// decodeBullets handles one-record-per-line kinds with an optional "- " bullet.
// A bare bullet is an empty record; blank lines are skipped.
func decodeBullets(kind Kind, lines []string) []Record {
	records := []Record{}

	for _, line := range lines {
		item := stripBullet(line)
		if item == "" && strings.TrimSpace(line) != bulletMarker {
			continue
		}

		r := NewRecord(kind)
		switch kind {
		case KindSkills:
			parts := splitFields(item)
			r[FieldSkill] = part(parts, 0)
			r[FieldProficiency] = parseProficiency(part(parts, 1))
		case KindLanguages:
			parts := strings.SplitN(item, bulletMarker, 2)
			r[FieldLanguage] = part(parts, 0)
			r[FieldLevel] = part(parts, 1)
		case KindInterests:
			r[FieldInterest] = item
		}
		records = append(records, r)
	}

	return records
}

// decodePortfolio handles "title|url|type" lines.
func decodePortfolio(lines []string) []Record {
	records := []Record{}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		parts := splitFields(trimmed)
		r := NewRecord(KindPortfolio)
		r[FieldTitle] = part(parts, 0)
		r[FieldURL] = part(parts, 1)
		if t := part(parts, 2); t != "" {
			r[FieldType] = t
		}
		records = append(records, r)
	}

	return records
}

func stripBullet(line string) string {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, bulletMarker) {
		trimmed = strings.TrimSpace(trimmed[len(bulletMarker):])
	}
	return trimmed
}

func splitFields(line string) []string {
	parts := strings.Split(line, fieldSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func part(parts []string, i int) string {
	if i < len(parts) {
		return strings.TrimSpace(parts[i])
	}
	return ""
}

// parseProficiency reads a skill level. Out-of-range values are kept as-is;
// range checks belong to validation, not decoding.
func parseProficiency(text string) int {
	n, err := strconv.Atoi(text)
	if err != nil {
		return DefaultProficiency
	}
	return n
}
