package models

import "time"

// TemplateDraftModel stores a template being edited locally before it is
// published to the forms API.
type TemplateDraftModel struct {
	Base
	TemplateID    *string           `json:"templateId"    gorm:"index"`
	ProfessionKey string            `json:"professionKey" gorm:"index"`
	Name          string            `json:"name"`
	Description   string            `json:"description"   gorm:"type:text"`
	Status        TemplateStatus    `json:"status"`
	Locale        string            `json:"locale"`
	EmailSubject  string            `json:"emailSubject"`
	EmailBody     string            `json:"emailBody"     gorm:"type:text"`
	Schema        Schema            `json:"schema"        gorm:"type:text;serializer:json"`
	Fields        []FieldDefinition `json:"fields"        gorm:"type:text;serializer:json"`
	Version       int               `json:"version"       gorm:"default:0"`
	PublishedAt   *time.Time        `json:"publishedAt"`

	History []TemplateDraftHistoryModel `json:"history,omitempty" gorm:"foreignKey:DraftID"`
}

func (TemplateDraftModel) TableName() string { return "template_drafts" }

// TemplateDraftHistoryModel is a snapshot of a draft's fields before an update.
type TemplateDraftHistoryModel struct {
	Base
	DraftID string            `json:"-"       gorm:"index;not null"`
	Version int               `json:"version"`
	Name    string            `json:"name"`
	Fields  []FieldDefinition `json:"fields"  gorm:"type:text;serializer:json"`
	SavedAt time.Time         `json:"savedAt"`
}

func (TemplateDraftHistoryModel) TableName() string { return "template_draft_histories" }
