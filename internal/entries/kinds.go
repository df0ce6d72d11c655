package entries

import (
	"strings"
)

// Kind identifies a repeatable section of the form.
type Kind string

// Section kinds. The string value doubles as the key of the flat field in the form data.
const (
	KindExperience Kind = "experience"
	KindEducation  Kind = "education"
	KindSkills     Kind = "skills"
	KindLanguages  Kind = "languages"
	KindInterests  Kind = "interests"
	KindPortfolio  Kind = "portfolio"
)

// Record field names.
const (
	FieldCompany     = "company"
	FieldPosition    = "position"
	FieldSchool      = "school"
	FieldDegree      = "degree"
	FieldStartDate   = "startDate"
	FieldEndDate     = "endDate"
	FieldIsCurrent   = "isCurrent"
	FieldDetails     = "details"
	FieldSkill       = "skill"
	FieldProficiency = "proficiency"
	FieldLanguage    = "language"
	FieldLevel       = "level"
	FieldInterest    = "interest"
	FieldTitle       = "title"
	FieldURL         = "url"
	FieldType        = "type"
)

// Defaults applied when a field is missing or unparseable.
const (
	DefaultProficiency = 3
	DefaultLinkType    = "website"
)

// LinkTypes lists the accepted portfolio link types.
var LinkTypes = []string{"website", "github", "linkedin", "other"}

var kindFields = map[Kind][]string{
	KindExperience: {FieldCompany, FieldPosition, FieldStartDate, FieldEndDate, FieldIsCurrent, FieldDetails},
	KindEducation:  {FieldSchool, FieldDegree, FieldStartDate, FieldEndDate, FieldIsCurrent, FieldDetails},
	KindSkills:     {FieldSkill, FieldProficiency},
	KindLanguages:  {FieldLanguage, FieldLevel},
	KindInterests:  {FieldInterest},
	KindPortfolio:  {FieldTitle, FieldURL, FieldType},
}

// Kinds returns every section kind in form order.
func Kinds() []Kind {
	return []Kind{KindExperience, KindEducation, KindSkills, KindLanguages, KindInterests, KindPortfolio}
}

// ParseKind resolves a section name. Matching is case-insensitive.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := kindFields[k]; !ok {
		return "", &KindError{Name: name}
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindFields[k]
	return ok
}

// FormKey is the key under which the section's flat field is stored.
func (k Kind) FormKey() string {
	return string(k)
}

// Fields returns the record field names of the kind in declaration order.
func (k Kind) Fields() []string {
	fields := kindFields[k]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// HasField reports whether field belongs to records of this kind.
func (k Kind) HasField(field string) bool {
	for _, f := range kindFields[k] {
		if f == field {
			return true
		}
	}
	return false
}

// blockGrammar reports whether the kind uses header lines followed by detail lines
// with a blank separator between records.
func (k Kind) blockGrammar() bool {
	return k == KindExperience || k == KindEducation
}

// headerFields returns the two leading positional header fields of a block kind.
func (k Kind) headerFields() (string, string) {
	if k == KindEducation {
		return FieldSchool, FieldDegree
	}
	return FieldCompany, FieldPosition
}
