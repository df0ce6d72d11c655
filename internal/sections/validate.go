package sections

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/resume-builder/internal/entries"
)

// Field separators of the flat format cannot appear inside header values.
// 0x7C is the validator escape for "|".
var rules = map[entries.Kind]map[string]any{
	entries.KindExperience: {
		entries.FieldCompany:   "excludes=0x7C",
		entries.FieldPosition:  "excludes=0x7C",
		entries.FieldStartDate: "excludes=0x7C",
		entries.FieldEndDate:   "excludes=0x7C",
	},
	entries.KindEducation: {
		entries.FieldSchool:    "excludes=0x7C",
		entries.FieldDegree:    "excludes=0x7C",
		entries.FieldStartDate: "excludes=0x7C",
		entries.FieldEndDate:   "excludes=0x7C",
	},
	entries.KindSkills: {
		entries.FieldSkill:       "excludes=0x7C",
		entries.FieldProficiency: "min=1,max=5",
	},
	entries.KindLanguages: {
		entries.FieldLanguage: "excludes=-",
	},
	entries.KindInterests: {},
	entries.KindPortfolio: {
		entries.FieldTitle: "excludes=0x7C",
		entries.FieldURL:   "omitempty,url",
		entries.FieldType:  "oneof=" + strings.Join(entries.LinkTypes, " "),
	},
}

var validate = validator.New()

// Validate checks the section's records against the limits the form enforces
// (proficiency range, link types, separators inside values). The codec itself
// accepts anything; a failure here never blocks a mutation.
func (s *Store) Validate(kind entries.Kind) error {
	kindRules, ok := rules[kind]
	if !ok {
		return &entries.KindError{Name: string(kind)}
	}

	records := s.Records(kind)
	verr := &ValidationError{Kind: kind}

	for i, r := range records {
		data := make(map[string]any, len(kindRules))
		applicable := make(map[string]any, len(kindRules))
		for field, rule := range kindRules {
			if v, present := r[field]; present {
				data[field] = v
				applicable[field] = rule
			}
		}

		problems := validate.ValidateMap(data, applicable)
		fields := make([]string, 0, len(problems))
		for field := range problems {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			verr.Errors = append(verr.Errors, FieldProblem{
				Index:   i,
				Field:   field,
				Message: describe(problems[field]),
			})
		}
	}

	if len(verr.Errors) == 0 {
		return nil
	}
	return verr
}

func describe(problem any) string {
	err, ok := problem.(error)
	if !ok {
		return fmt.Sprint(problem)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Param() != "" {
			return fmt.Sprintf("failed %q (%s)", fe.Tag(), strings.ReplaceAll(fe.Param(), "0x7C", "|"))
		}
		return fmt.Sprintf("failed %q", fe.Tag())
	}
	return err.Error()
}
