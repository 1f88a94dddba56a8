package render

import (
	"errors"
	"strings"

	"github.com/uc4u2/candidate-intake/internal/models"
)

var (
	ErrReadOnly     = errors.New("this intake has already been submitted")
	ErrUnknownField = errors.New("field is not part of this form")
)

// View is a submission rendered against its template.
type View struct {
	Sections []Section
	ReadOnly bool

	responses map[string]any
	files     map[string]models.Attachment
	index     map[string]Field
}

// NewView combines the template sections with the submission's current
// answers and files. A submitted submission yields a read-only view.
func NewView(tpl *models.Template, sub *models.Submission) *View {
	v := &View{
		Sections:  BuildSections(tpl),
		responses: map[string]any{},
		files:     map[string]models.Attachment{},
		index:     map[string]Field{},
	}
	for _, s := range v.Sections {
		for _, f := range s.Fields {
			v.index[f.Key] = f
		}
	}
	if sub == nil {
		return v
	}

	v.ReadOnly = sub.ReadOnly()
	for k, val := range sub.Responses {
		if f, ok := v.index[k]; ok {
			val = NormalizeResponse(f, val)
		}
		v.responses[k] = val
	}
	for _, att := range sub.Files {
		v.files[att.FieldKey] = att
	}
	return v
}

// Field looks up a rendered field by key.
func (v *View) Field(key string) (Field, bool) {
	f, ok := v.index[key]
	return f, ok
}

// Response returns the current answer for key.
func (v *View) Response(key string) (any, bool) {
	val, ok := v.responses[key]
	return val, ok
}

// Responses returns a copy of all answers, including keys the form does not
// render such as booking data.
func (v *View) Responses() map[string]any {
	out := make(map[string]any, len(v.responses))
	for k, val := range v.responses {
		out[k] = val
	}
	return out
}

// SetResponse records an answer for a rendered field.
func (v *View) SetResponse(key string, value any) error {
	if v.ReadOnly {
		return ErrReadOnly
	}
	f, ok := v.index[strings.TrimSpace(key)]
	if !ok {
		return ErrUnknownField
	}
	v.responses[f.Key] = NormalizeResponse(f, value)
	return nil
}

// Attachment returns the file bound to key.
func (v *View) Attachment(key string) (models.Attachment, bool) {
	att, ok := v.files[key]
	return att, ok
}

// CanUpload reports whether a file may still be attached to key.
func (v *View) CanUpload(key string) error {
	if v.ReadOnly {
		return ErrReadOnly
	}
	if _, ok := v.index[key]; !ok && !strings.HasPrefix(key, "questionnaire_") {
		return ErrUnknownField
	}
	return nil
}

// RequiredFileKeys lists the keys of rendered required file fields, in
// display order.
func (v *View) RequiredFileKeys() []string {
	var out []string
	for _, s := range v.Sections {
		for _, f := range s.Fields {
			if f.Required && f.Control == ControlFile {
				out = append(out, f.Key)
			}
		}
	}
	return out
}

// MissingRequired lists rendered required fields that have no answer, in
// display order. File fields count as answered when a file is attached.
func (v *View) MissingRequired() []string {
	var out []string
	for _, s := range v.Sections {
		for _, f := range s.Fields {
			if !f.Required || f.Control == ControlCheckbox {
				continue
			}
			if f.Control == ControlFile {
				if _, ok := v.files[f.Key]; !ok {
					out = append(out, f.Key)
				}
				continue
			}
			if empty(v.responses[f.Key]) {
				out = append(out, f.Key)
			}
		}
	}
	return out
}

func empty(value any) bool {
	switch t := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}
