package fields

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/uc4u2/candidate-intake/internal/models"
)

// IdentityMap remembers the last normalized field for each key so that
// server ids survive re-normalization.
type IdentityMap map[string]models.FieldDefinition

// Result is the outcome of normalizing a field list. Err is set only for
// input that is not a field list; an empty list is not an error.
type Result struct {
	Fields []models.FieldDefinition
	Map    IdentityMap
	Err    error
}

// Normalize turns loosely shaped field entries into canonical definitions.
// The array position is the order; any order_index on the input is ignored.
// The input is never modified.
func Normalize(raw []any, prior IdentityMap) Result {
	out := make([]models.FieldDefinition, 0, len(raw))
	next := make(IdentityMap, len(raw))
	for i, entry := range raw {
		field := canonical(Coerce(entry), i, prior)
		out = append(out, field)
		next[field.Key] = field
	}
	return Result{Fields: out, Map: next}
}

// NormalizeFields is Normalize for already typed definitions.
func NormalizeFields(defs []models.FieldDefinition, prior IdentityMap) Result {
	raw := make([]any, len(defs))
	for i, f := range defs {
		raw[i] = f
	}
	return Normalize(raw, prior)
}

// Parse normalizes JSON field text. Blank text is an empty field list.
// Anything that is not a JSON array yields a *SchemaParseError, no fields,
// and the prior identity map unchanged.
func Parse(text string, prior IdentityMap) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Fields: []models.FieldDefinition{}, Map: IdentityMap{}}
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return Result{Fields: []models.FieldDefinition{}, Map: prior, Err: &SchemaParseError{Err: err}}
	}
	list, ok := decoded.([]any)
	if !ok {
		return Result{Fields: []models.FieldDefinition{}, Map: prior, Err: &SchemaParseError{}}
	}
	return Normalize(list, prior)
}

// Serialize writes fields as indented JSON text in canonical shape, with
// order_index taken from position.
func Serialize(defs []models.FieldDefinition) (string, error) {
	return marshalIndent(Renumber(defs))
}

// Renumber returns a copy of defs with order_index equal to position and
// both type names filled.
func Renumber(defs []models.FieldDefinition) []models.FieldDefinition {
	out := make([]models.FieldDefinition, len(defs))
	for i, f := range defs {
		typ := f.ResolvedType()
		f.Type, f.FieldType = typ, typ
		if f.Config == nil {
			f.Config = models.FieldConfig{}
		}
		f.OrderIndex = i
		out[i] = f
	}
	return out
}

// Coerce reads one raw entry into a FieldDefinition. Entries that cannot be
// read as an object come back as an empty, required text field.
func Coerce(raw any) models.FieldDefinition {
	switch v := raw.(type) {
	case models.FieldDefinition:
		return v
	case *models.FieldDefinition:
		if v != nil {
			return *v
		}
	case json.RawMessage:
		return decodeField(v)
	case []byte:
		return decodeField(v)
	default:
		if data, err := json.Marshal(raw); err == nil {
			return decodeField(data)
		}
	}
	return models.FieldDefinition{Type: models.FieldText, FieldType: models.FieldText, IsRequired: true}
}

func decodeField(data []byte) models.FieldDefinition {
	fallback := models.FieldDefinition{Type: models.FieldText, FieldType: models.FieldText, IsRequired: true}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fallback
	}
	var f models.FieldDefinition
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return fallback
	}
	return f
}

func canonical(f models.FieldDefinition, i int, prior IdentityMap) models.FieldDefinition {
	key := NormalizeKeyOr(f.Key, FallbackKey(i))
	label := f.Label
	if strings.TrimSpace(label) == "" {
		label = key
	}
	typ := f.ResolvedType()

	out := models.FieldDefinition{
		ID:         copyID(f.ID),
		Section:    copyString(f.Section),
		Key:        key,
		Label:      label,
		Type:       typ,
		FieldType:  typ,
		IsRequired: f.IsRequired,
		OrderIndex: i,
		Config:     canonicalConfig(f.Config),
	}
	if existing, ok := prior[key]; ok {
		out.ID = copyID(existing.ID)
	}
	return out
}

// canonicalConfig deep-copies a config through JSON so that values have the
// same Go types whether they came from the editor or from parsed text.
func canonicalConfig(cfg models.FieldConfig) models.FieldConfig {
	if len(cfg) == 0 {
		return models.FieldConfig{}
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg.Clone()
	}
	out := models.FieldConfig{}
	if err := json.Unmarshal(data, &out); err != nil {
		return cfg.Clone()
	}
	return out
}

func copyID(id *models.RecordID) *models.RecordID {
	if id == nil || id.IsZero() {
		return nil
	}
	v := *id
	return &v
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
