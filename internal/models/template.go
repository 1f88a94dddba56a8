package models

import "strings"

// TemplateStatus is the publication state of a form template.
type TemplateStatus string

const (
	TemplateDraft    TemplateStatus = "draft"
	TemplateActive   TemplateStatus = "active"
	TemplateArchived TemplateStatus = "archived"
)

// Valid reports whether s is a known status.
func (s TemplateStatus) Valid() bool {
	switch s {
	case TemplateDraft, TemplateActive, TemplateArchived:
		return true
	}
	return false
}

// DefaultLocale is used when a template does not name one.
const DefaultLocale = "en"

// Template is a profession-scoped form definition with its invite email copy.
// Schema and Fields describe the same data and are always sent together.
type Template struct {
	ID            RecordID          `json:"id,omitempty"`
	ProfessionKey string            `json:"profession_key"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Status        TemplateStatus    `json:"status"`
	Locale        string            `json:"locale"`
	EmailSubject  string            `json:"email_subject"`
	EmailBody     string            `json:"email_body"`
	Schema        Schema            `json:"schema"`
	Fields        []FieldDefinition `json:"fields"`
}

// LocaleOrDefault returns the template locale, or DefaultLocale.
func (t Template) LocaleOrDefault() string {
	if v := strings.TrimSpace(t.Locale); v != "" {
		return v
	}
	return DefaultLocale
}
