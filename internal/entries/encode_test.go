package entries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_ExperienceExample(t *testing.T) {
	records := []Record{{
		FieldCompany:   "Acme Corp",
		FieldPosition:  "Engineer",
		FieldStartDate: "01.2020",
		FieldEndDate:   "",
		FieldIsCurrent: true,
		FieldDetails:   "- Built X\n- Led Y",
	}}

	assert.Equal(t, "Acme Corp|Engineer|01.2020 - do teraz\n- Built X\n- Led Y\n\n", Encode(KindExperience, records))
}

func TestEncode_CurrentNeverEmitsEndDate(t *testing.T) {
	records := []Record{{
		FieldCompany:   "Acme",
		FieldPosition:  "Engineer",
		FieldStartDate: "01.2020",
		FieldEndDate:   "12.2022",
		FieldIsCurrent: true,
	}}

	text := Encode(KindExperience, records)
	assert.Equal(t, "Acme|Engineer|01.2020 - do teraz\n\n", text)
	assert.NotContains(t, text, "12.2022")
}

func TestEncode_PeriodVariants(t *testing.T) {
	assert.Equal(t, "2019 - 2020", FormatPeriod("2019", "2020", false))
	assert.Equal(t, "2019", FormatPeriod("2019", "", false))
	assert.Equal(t, "", FormatPeriod("", "2020", false))
	assert.Equal(t, " - do teraz", FormatPeriod("", "", true))
}

func TestEncode_MissingFields(t *testing.T) {
	assert.Equal(t, "||\n\n", Encode(KindEducation, []Record{{}}))
	assert.Equal(t, "- |3", Encode(KindSkills, []Record{{}}))
	assert.Equal(t, "- -", Encode(KindLanguages, []Record{{}}))
	assert.Equal(t, "- ", Encode(KindInterests, []Record{{}}))
	assert.Equal(t, "||website", Encode(KindPortfolio, []Record{nil}))
}

func TestEncode_LineKinds(t *testing.T) {
	skills := []Record{
		{FieldSkill: "Go", FieldProficiency: 5},
		{FieldSkill: "SQL", FieldProficiency: float64(4)},
		{FieldSkill: "Cooking", FieldProficiency: "oops"},
	}
	assert.Equal(t, "- Go|5\n- SQL|4\n- Cooking|3", Encode(KindSkills, skills))

	langs := []Record{{FieldLanguage: "English", FieldLevel: "C1"}}
	assert.Equal(t, "- English-C1", Encode(KindLanguages, langs))

	interests := []Record{{FieldInterest: "Chess"}, {FieldInterest: "Hiking"}}
	assert.Equal(t, "- Chess\n- Hiking", Encode(KindInterests, interests))

	links := []Record{{FieldTitle: "Code", FieldURL: "https://github.com/jdoe", FieldType: "github"}}
	assert.Equal(t, "Code|https://github.com/jdoe|github", Encode(KindPortfolio, links))
}

func TestEncode_EmptyAndUnknown(t *testing.T) {
	for _, kind := range Kinds() {
		assert.Equal(t, "", Encode(kind, nil), kind)
	}
	assert.Equal(t, "", Encode(Kind("nope"), []Record{{"a": "b"}}))
}

func TestRoundTrip_AllKinds(t *testing.T) {
	cases := map[Kind][]Record{
		KindExperience: {
			{FieldCompany: "Acme Corp", FieldPosition: "Engineer", FieldStartDate: "01.2020", FieldEndDate: "", FieldIsCurrent: true, FieldDetails: "- Built X\n- Led Y"},
			{FieldCompany: "Globex", FieldPosition: "Intern", FieldStartDate: "06.2018", FieldEndDate: "09.2018", FieldIsCurrent: false, FieldDetails: ""},
			{FieldCompany: "", FieldPosition: "", FieldStartDate: "", FieldEndDate: "", FieldIsCurrent: false, FieldDetails: "notes only"},
		},
		KindEducation: {
			{FieldSchool: "MIT", FieldDegree: "BSc", FieldStartDate: "2014", FieldEndDate: "2018", FieldIsCurrent: false, FieldDetails: "- Dean's list | twice"},
		},
		KindSkills: {
			{FieldSkill: "Go", FieldProficiency: 5},
			{FieldSkill: "Cooking", FieldProficiency: 3},
		},
		KindLanguages: {
			{FieldLanguage: "English", FieldLevel: "C1"},
			{FieldLanguage: "Polish", FieldLevel: ""},
		},
		KindInterests: {
			{FieldInterest: "Chess"},
		},
		KindPortfolio: {
			{FieldTitle: "Blog", FieldURL: "https://example.com", FieldType: "website"},
			{FieldTitle: "Profile", FieldURL: "https://linkedin.com/in/jdoe", FieldType: "linkedin"},
		},
	}

	for kind, records := range cases {
		t.Run(string(kind), func(t *testing.T) {
			encoded := Encode(kind, records)
			decoded := Decode(kind, encoded)
			assert.Equal(t, records, decoded)
		})
	}
}

func TestRoundTrip_EmptyLineRecords(t *testing.T) {
	cases := map[Kind][]Record{
		KindSkills:    {{FieldSkill: "Go", FieldProficiency: 5}, NewRecord(KindSkills)},
		KindLanguages: {NewRecord(KindLanguages), {FieldLanguage: "English", FieldLevel: "C1"}},
		KindInterests: {{FieldInterest: "Chess"}, NewRecord(KindInterests)},
	}

	for kind, records := range cases {
		t.Run(string(kind), func(t *testing.T) {
			assert.Equal(t, records, Decode(kind, Encode(kind, records)))
		})
	}
	assert.Equal(t, "- Chess\n- ", Encode(KindInterests, cases[KindInterests]))
}

func TestRoundTrip_EncodeIsStable(t *testing.T) {
	handTyped := map[Kind]string{
		KindExperience: "  Acme |Engineer| 01.2020-do teraz \n- Built X\n\n\n\nGlobex|Dev|2018 - 2019\nsome note\n",
		KindEducation:  "MIT|BSc|2014 - 2018",
		KindSkills:     "Go|5\n-Rust\n\n- SQL | 4",
		KindLanguages:  "English - C1\n-Polish",
		KindInterests:  "Chess\n-  Hiking",
		KindPortfolio:  "Blog|https://example.com|\n",
	}

	for kind, text := range handTyped {
		t.Run(string(kind), func(t *testing.T) {
			first := Encode(kind, Decode(kind, text))
			second := Encode(kind, Decode(kind, first))
			third := Encode(kind, Decode(kind, second))
			assert.Equal(t, first, second)
			assert.Equal(t, second, third)
		})
	}
}

func TestEquivalent(t *testing.T) {
	assert.True(t, Equivalent("Acme|Eng|2020\n\n", "Acme|Eng|2020"))
	assert.True(t, Equivalent("a\r\nb\r\n", "a\nb"))
	assert.False(t, Equivalent("a\nb", "a\nc"))
}

func TestCoerce(t *testing.T) {
	v, err := Coerce(KindSkills, FieldProficiency, float64(4))
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	v, err = Coerce(KindSkills, FieldProficiency, "2")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = Coerce(KindSkills, FieldProficiency, "high")
	var fieldErr *FieldError
	assert.ErrorAs(t, err, &fieldErr)

	v, err = Coerce(KindExperience, FieldIsCurrent, "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Coerce(KindExperience, FieldCompany, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", v)

	_, err = Coerce(KindExperience, "salary", "lots")
	assert.ErrorAs(t, err, &fieldErr)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Experience ")
	require.NoError(t, err)
	assert.Equal(t, KindExperience, k)

	_, err = ParseKind("hobbies")
	var kindErr *KindError
	assert.ErrorAs(t, err, &kindErr)
}

func TestNewRecord_Defaults(t *testing.T) {
	assert.Equal(t, Record{FieldSkill: "", FieldProficiency: 3}, NewRecord(KindSkills))
	assert.Equal(t, Record{FieldTitle: "", FieldURL: "", FieldType: "website"}, NewRecord(KindPortfolio))
	assert.Equal(t, false, NewRecord(KindExperience)[FieldIsCurrent])
}
