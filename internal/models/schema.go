package models

import (
	"bytes"
	"encoding/json"
)

// SchemaField is the per-field entry of a template schema. It repeats the
// requiredness flag as "required" for consumers that read that name.
type SchemaField struct {
	Key        string      `json:"key"`
	Label      string      `json:"label"`
	FieldType  FieldType   `json:"field_type"`
	Type       FieldType   `json:"type"`
	IsRequired bool        `json:"is_required"`
	Required   bool        `json:"required"`
	OrderIndex int         `json:"order_index"`
	Config     FieldConfig `json:"config"`
}

// SchemaSection groups schema fields under a title.
type SchemaSection struct {
	Key         string        `json:"key,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Fields      []SchemaField `json:"fields"`
}

// Schema is the denormalized JSON view of a template's fields. Keys the
// engine does not model are kept in Extra and written back unchanged.
type Schema struct {
	Title       string
	Description string
	Fields      []SchemaField
	Sections    []SchemaSection
	Extra       map[string]any
}

var schemaKnownKeys = map[string]struct{}{
	"title": {}, "description": {}, "fields": {}, "sections": {},
}

func (s Schema) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+4)
	for k, v := range s.Extra {
		if _, known := schemaKnownKeys[k]; !known {
			out[k] = v
		}
	}
	if s.Title != "" {
		out["title"] = s.Title
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Fields != nil {
		out["fields"] = s.Fields
	}
	if s.Sections != nil {
		out["sections"] = s.Sections
	}
	return json.Marshal(out)
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Schema{}
		return nil
	}

	var known struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Fields      []SchemaField   `json:"fields"`
		Sections    []SchemaSection `json:"sections"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	out := Schema{
		Title:       known.Title,
		Description: known.Description,
		Fields:      known.Fields,
		Sections:    known.Sections,
	}
	for k, v := range all {
		if _, ok := schemaKnownKeys[k]; ok {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[k] = v
	}
	*s = out
	return nil
}

// SchemaFieldFrom converts a field definition into its schema entry.
func SchemaFieldFrom(f FieldDefinition) SchemaField {
	cfg := f.Config
	if cfg == nil {
		cfg = FieldConfig{}
	}
	typ := f.ResolvedType()
	fieldType := f.FieldType
	if fieldType == "" {
		fieldType = typ
	}
	return SchemaField{
		Key:        f.Key,
		Label:      f.Label,
		FieldType:  fieldType,
		Type:       typ,
		IsRequired: f.IsRequired,
		Required:   f.IsRequired,
		OrderIndex: f.OrderIndex,
		Config:     cfg,
	}
}

// UnmarshalJSON applies the same lenient field decoding as FieldDefinition.
func (s *SchemaField) UnmarshalJSON(data []byte) error {
	var f FieldDefinition
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = SchemaFieldFrom(f)
	return nil
}
