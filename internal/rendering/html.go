package rendering

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/jonathan/resume-builder/internal/entries"
	"github.com/jonathan/resume-builder/internal/pagination"
)

// RootSelector selects the element that is measured, previewed and exported.
const RootSelector = "#resume-root"

// Flat form keys of the non-repeatable fields.
const (
	KeyFirstName = "firstName"
	KeyLastName  = "lastName"
	KeyHeadline  = "headline"
	KeyEmail     = "email"
	KeyPhone     = "phone"
	KeyLocation  = "location"
	KeySummary   = "summary"
	KeyClause    = "clause"
)

//go:embed templates/classic.html.tmpl
var templateFS embed.FS

const defaultTemplate = "templates/classic.html.tmpl"

// Options are presentation hints passed through to the template unchanged.
type Options struct {
	Color    string `json:"color,omitempty" yaml:"color,omitempty"`
	Font     string `json:"font,omitempty" yaml:"font,omitempty"`
	FontSize int    `json:"font_size,omitempty" yaml:"font_size,omitempty"`
}

// DefaultOptions returns the classic look.
func DefaultOptions() Options {
	return Options{Color: "#2b6cb0", Font: "Georgia, serif", FontSize: 14}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Color == "" {
		o.Color = def.Color
	}
	if o.Font == "" {
		o.Font = def.Font
	}
	if o.FontSize <= 0 {
		o.FontSize = def.FontSize
	}
	return o
}

// Renderer turns flat form data into an HTML document.
type Renderer interface {
	Render(formData map[string]string, opts Options) (string, error)
}

// HTMLRenderer renders with html/template. The zero value uses the embedded template.
type HTMLRenderer struct {
	// TemplatePath overrides the embedded template when set.
	TemplatePath string
}

// TemplateData is what the template sees.
type TemplateData struct {
	FullName     string
	Headline     string
	Contacts     []string
	Summary      string
	Experience   []EntryView
	Education    []EntryView
	Skills       []SkillView
	Languages    []LanguageView
	Interests    []string
	Portfolio    []LinkView
	Clause       string
	Options      Options
	PageWidthPx  int
	PageHeightPx int
}

// EntryView is one experience or education block.
type EntryView struct {
	Title    string
	Subtitle string
	Period   string
	Bullets  []string
}

// SkillView is one skill with its proficiency rendered as stars.
type SkillView struct {
	Name  string
	Level int
	Stars string
}

// LanguageView is one language line.
type LanguageView struct {
	Name  string
	Level string
}

// LinkView is one portfolio link.
type LinkView struct {
	Title string
	URL   template.URL
	Type  string
}

// Render implements Renderer.
func (r HTMLRenderer) Render(formData map[string]string, opts Options) (string, error) {
	tmpl, err := r.parseTemplate()
	if err != nil {
		return "", err
	}

	data := BuildTemplateData(formData, opts)

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", &TemplateError{
			Message: "failed to execute template",
			Cause:   err,
		}
	}
	return out.String(), nil
}

func (r HTMLRenderer) parseTemplate() (*template.Template, error) {
	var content []byte
	var err error

	if r.TemplatePath != "" {
		content, err = os.ReadFile(r.TemplatePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &TemplateError{
					Message: fmt.Sprintf("template file not found: %s", r.TemplatePath),
					Cause:   err,
				}
			}
			return nil, &TemplateError{
				Message: fmt.Sprintf("failed to read template file: %s", r.TemplatePath),
				Cause:   err,
			}
		}
	} else {
		content, err = templateFS.ReadFile(defaultTemplate)
		if err != nil {
			return nil, &TemplateError{Message: "embedded template missing", Cause: err}
		}
	}

	tmpl, err := template.New("resume").Parse(string(content))
	if err != nil {
		return nil, &TemplateError{
			Message: "failed to parse template",
			Cause:   err,
		}
	}
	return tmpl, nil
}

// BuildTemplateData decodes the flat sections and gathers the personal fields.
func BuildTemplateData(formData map[string]string, opts Options) *TemplateData {
	data := &TemplateData{
		FullName:     strings.TrimSpace(formData[KeyFirstName] + " " + formData[KeyLastName]),
		Headline:     formData[KeyHeadline],
		Summary:      formData[KeySummary],
		Clause:       formData[KeyClause],
		Options:      opts.withDefaults(),
		PageWidthPx:  pagination.PageWidthPx,
		PageHeightPx: pagination.PageHeightPx,
	}

	for _, key := range []string{KeyEmail, KeyPhone, KeyLocation} {
		if v := strings.TrimSpace(formData[key]); v != "" {
			data.Contacts = append(data.Contacts, v)
		}
	}

	for _, r := range entries.Decode(entries.KindExperience, formData[entries.KindExperience.FormKey()]) {
		data.Experience = append(data.Experience, entryView(r, entries.FieldPosition, entries.FieldCompany))
	}
	for _, r := range entries.Decode(entries.KindEducation, formData[entries.KindEducation.FormKey()]) {
		data.Education = append(data.Education, entryView(r, entries.FieldSchool, entries.FieldDegree))
	}
	// Line sections skip records still empty in the editor.
	for _, r := range entries.Decode(entries.KindSkills, formData[entries.KindSkills.FormKey()]) {
		if r.String(entries.FieldSkill) == "" {
			continue
		}
		level := r.Int(entries.FieldProficiency, entries.DefaultProficiency)
		data.Skills = append(data.Skills, SkillView{
			Name:  r.String(entries.FieldSkill),
			Level: level,
			Stars: Stars(level),
		})
	}
	for _, r := range entries.Decode(entries.KindLanguages, formData[entries.KindLanguages.FormKey()]) {
		if r.String(entries.FieldLanguage) == "" {
			continue
		}
		data.Languages = append(data.Languages, LanguageView{
			Name:  r.String(entries.FieldLanguage),
			Level: r.String(entries.FieldLevel),
		})
	}
	for _, r := range entries.Decode(entries.KindInterests, formData[entries.KindInterests.FormKey()]) {
		if interest := r.String(entries.FieldInterest); interest != "" {
			data.Interests = append(data.Interests, interest)
		}
	}
	for _, r := range entries.Decode(entries.KindPortfolio, formData[entries.KindPortfolio.FormKey()]) {
		data.Portfolio = append(data.Portfolio, LinkView{
			Title: r.String(entries.FieldTitle),
			URL:   safeURL(r.String(entries.FieldURL)),
			Type:  r.String(entries.FieldType),
		})
	}

	return data
}

func entryView(r entries.Record, titleField, subtitleField string) EntryView {
	return EntryView{
		Title:    r.String(titleField),
		Subtitle: r.String(subtitleField),
		Period:   entries.FormatPeriod(r.String(entries.FieldStartDate), r.String(entries.FieldEndDate), r.Bool(entries.FieldIsCurrent)),
		Bullets:  Bullets(r.String(entries.FieldDetails)),
	}
}

// Bullets splits free-text details into list items, dropping bullet markers.
func Bullets(details string) []string {
	var out []string
	for _, line := range strings.Split(details, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "-•*"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Stars renders a 1..5 proficiency as filled and empty stars. Values outside the
// range are clamped for display only.
func Stars(level int) string {
	level = min(5, max(0, level))
	return strings.Repeat("★", level) + strings.Repeat("☆", 5-level)
}

// safeURL only lets http(s) and mailto links through as trusted URLs.
func safeURL(raw string) template.URL {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "mailto:") {
		return template.URL(strings.TrimSpace(raw))
	}
	return template.URL("#")
}
