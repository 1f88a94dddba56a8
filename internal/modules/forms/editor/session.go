package editor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/blueprint"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/fields"
	"go.uber.org/zap"
)

// Metadata is the template information edited beside the fields.
type Metadata struct {
	ID            models.RecordID
	ProfessionKey string
	Name          string
	Description   string
	Status        models.TemplateStatus
	Locale        string
	EmailSubject  string
	EmailBody     string
}

// Session is one template being edited. The field list is the only source
// of truth; the JSON text of the fields is derived from it on demand, and
// text edits are accepted only after they parse.
type Session struct {
	meta     Metadata
	schema   models.Schema
	fields   []models.FieldDefinition
	identity fields.IdentityMap

	fieldsText string
	fieldsErr  error
	schemaText string
	schemaErr  error

	log *zap.Logger
}

// NewSession opens tpl for editing.
func NewSession(tpl models.Template, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	status := tpl.Status
	if status == "" {
		status = models.TemplateActive
	}
	res := fields.NormalizeFields(tpl.Fields, nil)
	return &Session{
		meta: Metadata{
			ID:            tpl.ID,
			ProfessionKey: tpl.ProfessionKey,
			Name:          tpl.Name,
			Description:   tpl.Description,
			Status:        status,
			Locale:        tpl.LocaleOrDefault(),
			EmailSubject:  tpl.EmailSubject,
			EmailBody:     tpl.EmailBody,
		},
		schema:   tpl.Schema,
		fields:   res.Fields,
		identity: res.Map,
		log:      log,
	}
}

func (s *Session) Metadata() Metadata { return s.meta }

// SetMetadata replaces the template information.
func (s *Session) SetMetadata(m Metadata) { s.meta = m }

// Fields returns a copy of the canonical list.
func (s *Session) Fields() []models.FieldDefinition {
	out := make([]models.FieldDefinition, len(s.fields))
	copy(out, s.fields)
	return out
}

// SetFields accepts a structured edit of the list.
func (s *Session) SetFields(defs []models.FieldDefinition) {
	res := fields.NormalizeFields(defs, s.identity)
	s.fields, s.identity = res.Fields, res.Map
	s.fieldsText, s.fieldsErr = "", nil
}

// FieldsText is the JSON view of the fields. While the last text edit is
// unparseable it returns that text as typed.
func (s *Session) FieldsText() string {
	if s.fieldsErr != nil {
		return s.fieldsText
	}
	text, err := fields.Serialize(s.fields)
	if err != nil {
		s.log.Warn("serialize fields failed", zap.Error(err))
		return ""
	}
	return text
}

// SetFieldsText applies a JSON text edit. Text that does not parse is kept
// for display and reported by FieldsError; the field list is left as it was.
func (s *Session) SetFieldsText(text string) error {
	res := fields.Parse(text, s.identity)
	if res.Err != nil {
		s.fieldsText, s.fieldsErr = text, res.Err
		return res.Err
	}
	s.fields, s.identity = res.Fields, res.Map
	s.fieldsText, s.fieldsErr = "", nil
	return nil
}

// FieldsError is the parse error of the pending text edit, if any.
func (s *Session) FieldsError() error { return s.fieldsErr }

// Schema returns the stored schema object.
func (s *Session) Schema() models.Schema { return s.schema }

// SchemaText is the JSON view of the schema.
func (s *Session) SchemaText() string {
	if s.schemaErr != nil {
		return s.schemaText
	}
	text, err := indentJSON(s.schema)
	if err != nil {
		return ""
	}
	return text
}

// SetSchemaText applies a JSON edit of the schema. Only objects are accepted.
func (s *Session) SetSchemaText(text string) error {
	if strings.TrimSpace(text) == "" {
		s.schema, s.schemaText, s.schemaErr = models.Schema{}, "", nil
		return nil
	}
	trimmed := strings.TrimSpace(text)
	var schema models.Schema
	if !strings.HasPrefix(trimmed, "{") {
		s.schemaText, s.schemaErr = text, ErrSchemaInvalid
		return ErrSchemaInvalid
	}
	if err := json.Unmarshal([]byte(trimmed), &schema); err != nil {
		s.schemaText, s.schemaErr = text, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
		return s.schemaErr
	}
	s.schema, s.schemaText, s.schemaErr = schema, "", nil
	return nil
}

// FieldEditor returns a dialog editor over the current list whose commits
// flow back into the session.
func (s *Session) FieldEditor(opts ...Option) *FieldEditor {
	opts = append([]Option{WithLogger(s.log), WithOnChange(s.SetFields)}, opts...)
	return NewFieldEditor(s.fields, opts...)
}

// ApplyBlueprint replaces the form content with bp. When the current content
// differs from the blueprint and is not empty, confirm is asked first and a
// false answer leaves the session untouched. It reports whether the
// blueprint was applied.
func (s *Session) ApplyBlueprint(bp *blueprint.Blueprint, confirm func() bool) (bool, error) {
	if bp == nil {
		return false, ErrNoBlueprint
	}

	res := fields.NormalizeFields(bp.Fields, s.identity)
	nextFields, err := fields.Serialize(res.Fields)
	if err != nil {
		return false, err
	}
	nextSchema, err := indentJSON(bp.Schema)
	if err != nil {
		return false, err
	}

	same := strings.TrimSpace(s.FieldsText()) == nextFields &&
		strings.TrimSpace(s.SchemaText()) == nextSchema
	if !same && !s.empty() {
		if confirm == nil || !confirm() {
			s.log.Debug("blueprint not applied", zap.String("profession", bp.ProfessionKey))
			return false, nil
		}
	}

	s.meta.Name = bp.Name
	s.meta.Description = bp.Description
	s.meta.EmailSubject = bp.EmailSubject
	s.meta.EmailBody = bp.EmailBody
	s.schema = bp.Schema
	s.fields, s.identity = res.Fields, res.Map
	s.fieldsText, s.fieldsErr = "", nil
	s.schemaText, s.schemaErr = "", nil
	s.log.Info("blueprint applied",
		zap.String("profession", bp.ProfessionKey),
		zap.Int("fields", len(res.Fields)),
	)
	return true, nil
}

// ApplyDefaultBlueprint applies the catalog blueprint of the session's
// profession.
func (s *Session) ApplyDefaultBlueprint(confirm func() bool) (bool, error) {
	key := strings.TrimSpace(s.meta.ProfessionKey)
	if key == "" {
		return false, ErrProfessionRequired
	}
	bp := blueprint.Get(key)
	if bp == nil {
		return false, ErrNoBlueprint
	}
	return s.ApplyBlueprint(bp, confirm)
}

// Payload validates the session and builds the template to send to the
// forms API. The schema is regenerated from the fields so the two always
// match, and the session keeps the regenerated schema.
func (s *Session) Payload() (models.Template, error) {
	if strings.TrimSpace(s.meta.Name) == "" || strings.TrimSpace(s.meta.ProfessionKey) == "" {
		return models.Template{}, ErrNameRequired
	}
	if s.fieldsErr != nil {
		return models.Template{}, s.fieldsErr
	}
	if s.schemaErr != nil {
		return models.Template{}, s.schemaErr
	}

	defs := fields.Renumber(s.fields)
	if err := fields.ValidateForSave(defs); err != nil {
		return models.Template{}, err
	}

	s.schema = fields.BuildSchema(s.meta.Name, s.meta.Description, s.schema, defs)
	locale := s.meta.Locale
	if locale == "" {
		locale = models.DefaultLocale
	}
	return models.Template{
		ID:            s.meta.ID,
		ProfessionKey: s.meta.ProfessionKey,
		Name:          s.meta.Name,
		Description:   s.meta.Description,
		Status:        s.meta.Status,
		Locale:        locale,
		EmailSubject:  s.meta.EmailSubject,
		EmailBody:     s.meta.EmailBody,
		Schema:        s.schema,
		Fields:        defs,
	}, nil
}

func (s *Session) empty() bool {
	return len(s.fields) == 0 && len(s.schema.Fields) == 0 && len(s.schema.Sections) == 0 &&
		s.fieldsErr == nil && s.schemaErr == nil
}

func indentJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
