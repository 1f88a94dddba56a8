package fields

import (
	"strings"

	"github.com/uc4u2/candidate-intake/internal/models"
)

const (
	defaultSectionKey   = "questionnaire"
	defaultSectionTitle = "Questionnaire"
)

// BuildSchema derives the schema view from the canonical field list. Keys of
// base that the schema does not own are carried over; fields and sections are
// always regenerated.
func BuildSchema(name, description string, base models.Schema, defs []models.FieldDefinition) models.Schema {
	ordered := Renumber(defs)
	entries := make([]models.SchemaField, len(ordered))
	for i, f := range ordered {
		entries[i] = models.SchemaFieldFrom(f)
	}

	title := strings.TrimSpace(name)
	if title == "" {
		title = defaultSectionTitle
	}

	out := models.Schema{
		Title:       base.Title,
		Description: base.Description,
		Fields:      entries,
		Sections: []models.SchemaSection{{
			Key:         NormalizeKeyOr(name, defaultSectionKey),
			Title:       title,
			Description: description,
			Fields:      entries,
		}},
	}
	if len(base.Extra) > 0 {
		out.Extra = make(map[string]any, len(base.Extra))
		for k, v := range base.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// ValidateForSave checks the rules a template must meet before it is sent:
// every field has a key, keys are unique, and there is at least one field.
func ValidateForSave(defs []models.FieldDefinition) error {
	seen := make(map[string]struct{}, len(defs))
	for _, f := range defs {
		key := strings.ToLower(strings.TrimSpace(f.Key))
		if key == "" {
			return ErrEmptyKey
		}
		if _, dup := seen[key]; dup {
			return &DuplicateKeyError{Key: f.Key}
		}
		seen[key] = struct{}{}
	}
	if len(defs) == 0 {
		return ErrNoFields
	}
	return nil
}

// DuplicateKeys lists keys used more than once, in first-repeat order.
func DuplicateKeys(defs []models.FieldDefinition) []string {
	seen := make(map[string]int, len(defs))
	var dups []string
	for _, f := range defs {
		key := strings.ToLower(f.Key)
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, f.Key)
		}
	}
	return dups
}
