package blueprint

import (
	"strings"

	"github.com/uc4u2/candidate-intake/internal/models"
)

const (
	descriptionSuffix = "Complete this form so our team has the details we need to continue the conversation."

	// EmailSubject and EmailBody keep their {name}, {profession_label} and
	// {link} tokens; the mail sender fills them in.
	EmailSubject = "You're invited to share your {profession_label} profile"
	EmailBody    = "Hello {name},\n\nThank you for your interest in our {profession_label} opportunity. To help us move forward, please take a moment to share a few details.\n\nStart your profile here: {link}\n\nWe appreciate your time!\n"

	hrRecruitingKey = "hr_recruiting"
	customKey       = "custom"
)

// Blueprint is a starter template for one profession.
type Blueprint struct {
	ProfessionKey string                   `json:"professionKey"`
	Label         string                   `json:"label"`
	Name          string                   `json:"name"`
	Description   string                   `json:"description"`
	EmailSubject  string                   `json:"emailSubject"`
	EmailBody     string                   `json:"emailBody"`
	Schema        models.Schema            `json:"schema"`
	Fields        []models.FieldDefinition `json:"fields"`
}

// Template returns the blueprint as an unsaved draft template.
func (b *Blueprint) Template() models.Template {
	return models.Template{
		ProfessionKey: b.ProfessionKey,
		Name:          b.Name,
		Description:   b.Description,
		Status:        models.TemplateDraft,
		Locale:        models.DefaultLocale,
		EmailSubject:  b.EmailSubject,
		EmailBody:     b.EmailBody,
		Schema:        b.Schema,
		Fields:        b.Fields,
	}
}

// Get returns the starter template for professionKey, or nil when the
// profession is not in the catalog. Every call builds a fresh value.
func Get(professionKey string) *Blueprint {
	key := strings.TrimSpace(professionKey)
	for _, p := range professions {
		if p.Key == key {
			return build(p.Key, p.Label)
		}
	}
	return nil
}

// Professions lists catalog entries in picker order.
func Professions() []Profession {
	out := make([]Profession, len(professions))
	copy(out, professions)
	return out
}

// Label returns the display label for a profession key.
func Label(professionKey string) (string, bool) {
	for _, p := range professions {
		if p.Key == professionKey {
			return p.Label, true
		}
	}
	return "", false
}

func build(key, label string) *Blueprint {
	var sections []sectionSpec
	if key == hrRecruitingKey {
		sections = hrRecruitingSections
	} else {
		extras, ok := professionFields[key]
		if !ok {
			extras = professionFields[customKey]
		}
		sections = genericSections(label, extras)
	}

	schemaSections := make([]models.SchemaSection, 0, len(sections))
	for _, s := range sections {
		entries := make([]models.SchemaField, 0, len(s.fields))
		for i, f := range s.fields {
			entries = append(entries, models.SchemaFieldFrom(f.definition(nil, i)))
		}
		schemaSections = append(schemaSections, models.SchemaSection{
			Key:         s.key,
			Title:       s.title,
			Description: s.description,
			Fields:      entries,
		})
	}

	return &Blueprint{
		ProfessionKey: key,
		Label:         label,
		Name:          label + " candidate intake",
		Description:   label + " questionnaire. " + descriptionSuffix,
		EmailSubject:  EmailSubject,
		EmailBody:     EmailBody,
		Schema: models.Schema{
			Title:       label + " candidate intake",
			Description: label + ": " + descriptionSuffix,
			Sections:    schemaSections,
		},
		Fields: flatten(sections),
	}
}

func genericSections(label string, extras []fieldSpec) []sectionSpec {
	sections := []sectionSpec{
		{
			key:         "contact",
			title:       "Contact information",
			description: "Tell us how we can reach you.",
			fields:      baseContactFields,
		},
		{
			key:         "experience",
			title:       "Experience overview",
			description: "Share a quick snapshot of your background.",
			fields:      baseBackgroundFields,
		},
	}
	if len(extras) > 0 {
		sections = append(sections, sectionSpec{
			key:         "role_specific",
			title:       label + " details",
			description: "A few specifics so we can match you with the right opportunities.",
			fields:      extras,
		})
	}
	return sections
}

// flatten lays every section's fields out in one list, tagging each with
// its section title and numbering them across sections.
func flatten(sections []sectionSpec) []models.FieldDefinition {
	var out []models.FieldDefinition
	for _, s := range sections {
		title := s.title
		for _, f := range s.fields {
			out = append(out, f.definition(&title, len(out)))
		}
	}
	return out
}

func (f fieldSpec) definition(section *string, order int) models.FieldDefinition {
	cfg := models.FieldConfig{}
	if len(f.options) > 0 {
		opts := make([]any, len(f.options))
		for i, o := range f.options {
			opts[i] = o
		}
		cfg[models.ConfigOptions] = opts
	}
	var sec *string
	if section != nil {
		v := *section
		sec = &v
	}
	typ := models.FieldType(f.typ)
	return models.FieldDefinition{
		Section:    sec,
		Key:        f.key,
		Label:      f.label,
		Type:       typ,
		FieldType:  typ,
		IsRequired: f.required,
		OrderIndex: order,
		Config:     cfg,
	}
}
