package fields

import (
	"errors"
	"reflect"
	"testing"

	"github.com/uc4u2/candidate-intake/internal/models"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Full Name", "full_name"},
		{"  Email Address  ", "email_address"},
		{"__already_ok__", "already_ok"},
		{"Résumé / CV link", "r_sum_cv_link"},
		{"Years of Experience (approx.)", "years_of_experience_approx"},
		{"a--b", "a_b"},
		{"!!!", ""},
		{"", ""},
		{"field_3", "field_3"},
	}
	for _, tt := range tests {
		got := NormalizeKey(tt.in)
		if got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := NormalizeKey(got); again != got {
			t.Errorf("NormalizeKey not idempotent for %q: %q then %q", tt.in, got, again)
		}
		if got != "" && !ValidKey(got) {
			t.Errorf("NormalizeKey(%q) = %q does not match the key pattern", tt.in, got)
		}
	}
}

func TestNormalizeKeyOrFallback(t *testing.T) {
	if got := NormalizeKeyOr("***", FallbackKey(2)); got != "field_3" {
		t.Fatalf("NormalizeKeyOr fallback = %q, want field_3", got)
	}
	if got := NormalizeKeyOr("", "Questionnaire"); got != "questionnaire" {
		t.Fatalf("fallback should be normalized too, got %q", got)
	}
}

func TestNormalizeDefaultsAndOrder(t *testing.T) {
	raw := []any{
		map[string]any{"key": "Full Name", "label": "Full name", "order_index": 7},
		map[string]any{"label": "", "field_type": "email", "is_required": false},
		"not an object",
	}
	res := Normalize(raw, nil)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(res.Fields))
	}

	first := res.Fields[0]
	if first.Key != "full_name" || first.OrderIndex != 0 || !first.IsRequired {
		t.Errorf("first field = %+v", first)
	}
	if first.Type != models.FieldText || first.FieldType != models.FieldText {
		t.Errorf("first field type = %q/%q, want text/text", first.Type, first.FieldType)
	}

	second := res.Fields[1]
	if second.Key != "field_2" || second.Label != "field_2" {
		t.Errorf("second field key/label = %q/%q", second.Key, second.Label)
	}
	if second.Type != models.FieldEmail || second.FieldType != models.FieldEmail {
		t.Errorf("second field type = %q/%q, want email/email", second.Type, second.FieldType)
	}
	if second.IsRequired {
		t.Errorf("explicit is_required=false was lost")
	}

	if res.Fields[2].Key != "field_3" || res.Fields[2].OrderIndex != 2 {
		t.Errorf("non-object entry = %+v", res.Fields[2])
	}
	for i, f := range res.Fields {
		if f.Config == nil {
			t.Errorf("field %d has nil config", i)
		}
		if _, ok := res.Map[f.Key]; !ok {
			t.Errorf("identity map missing %q", f.Key)
		}
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	entry := map[string]any{"key": "Some Key", "order_index": 9, "config": map[string]any{"placeholder": "x"}}
	raw := []any{entry}
	res := Normalize(raw, nil)

	if entry["key"] != "Some Key" || entry["order_index"] != 9 {
		t.Fatalf("input entry was modified: %v", entry)
	}
	res.Fields[0].Config["placeholder"] = "changed"
	if entry["config"].(map[string]any)["placeholder"] != "x" {
		t.Fatalf("output config aliases input config")
	}
}

func TestNormalizePreservesPriorID(t *testing.T) {
	first := Parse(`[{"id": 41, "key": "email", "label": "Email"}]`, nil)
	if first.Err != nil {
		t.Fatal(first.Err)
	}

	second := Parse(`[{"key": "phone", "label": "Phone"}, {"key": "email", "label": "Email address", "type": "email"}]`, first.Map)
	if second.Err != nil {
		t.Fatal(second.Err)
	}
	email := second.Fields[1]
	if email.ID == nil || email.ID.String() != "41" {
		t.Fatalf("email id = %v, want 41", email.ID)
	}
	if email.Label != "Email address" || email.Type != models.FieldEmail {
		t.Fatalf("new label/type not adopted: %+v", email)
	}
	if second.Fields[0].ID != nil {
		t.Fatalf("new field should have no id")
	}
}

func TestParseErrorIsDistinctFromEmpty(t *testing.T) {
	prior := IdentityMap{"email": {Key: "email"}}

	empty := Parse("   ", prior)
	if empty.Err != nil || len(empty.Fields) != 0 {
		t.Fatalf("blank text should be zero fields without error, got %+v", empty)
	}

	for _, text := range []string{`{"fields": []}`, `[{"key":`, `"text"`} {
		res := Parse(text, prior)
		if res.Err == nil {
			t.Fatalf("Parse(%q) returned no error", text)
		}
		if !errors.Is(res.Err, ErrSchemaParse) {
			t.Fatalf("Parse(%q) error %v is not ErrSchemaParse", text, res.Err)
		}
		var perr *SchemaParseError
		if !errors.As(res.Err, &perr) {
			t.Fatalf("Parse(%q) error is not a *SchemaParseError", text)
		}
		if len(res.Fields) != 0 {
			t.Fatalf("Parse(%q) returned fields on error", text)
		}
		if !reflect.DeepEqual(res.Map, prior) {
			t.Fatalf("Parse(%q) replaced the identity map on error", text)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	section := "Contact information"
	raw := []any{
		map[string]any{"id": 3, "section": section, "key": "full_name", "label": "Full Name", "type": "text"},
		map[string]any{"id": "abc-1", "key": "Favourite Colour", "type": "select", "is_required": false,
			"config": map[string]any{"options": []any{map[string]any{"value": "red", "label": "Red"}}, "custom": true}},
		models.FieldDefinition{Key: "notes", Label: "Notes", Type: models.FieldTextarea,
			Config: models.FieldConfig{"max_length": 500}},
		map[string]any{"group": "Other", "field_type": "file", "help_text": "PDF only"},
	}

	once := Normalize(raw, nil)
	text, err := Serialize(once.Fields)
	if err != nil {
		t.Fatal(err)
	}
	twice := Parse(text, nil)
	if twice.Err != nil {
		t.Fatalf("re-parse failed: %v", twice.Err)
	}
	if !reflect.DeepEqual(once.Fields, twice.Fields) {
		t.Fatalf("round trip changed fields\nfirst:  %+v\nsecond: %+v", once.Fields, twice.Fields)
	}

	again, err := Serialize(twice.Fields)
	if err != nil {
		t.Fatal(err)
	}
	if again != text {
		t.Fatalf("serialization is not stable:\n%s\n---\n%s", text, again)
	}
}

func TestSerializeFormat(t *testing.T) {
	text, err := Serialize([]models.FieldDefinition{{Key: "a", Label: "A <b>", Type: models.FieldText, IsRequired: true, OrderIndex: 5}})
	if err != nil {
		t.Fatal(err)
	}
	want := `[
  {
    "id": null,
    "section": null,
    "key": "a",
    "label": "A <b>",
    "type": "text",
    "field_type": "text",
    "is_required": true,
    "order_index": 0,
    "config": {}
  }
]`
	if text != want {
		t.Fatalf("Serialize() =\n%s\nwant\n%s", text, want)
	}

	empty, err := Serialize(nil)
	if err != nil || empty != "[]" {
		t.Fatalf("Serialize(nil) = %q, %v", empty, err)
	}
}

func TestParseOptions(t *testing.T) {
	got := ParseOptions("yes|Yes please\nno")
	want := []models.FieldOption{
		{Value: "yes", Label: "Yes please", OrderIndex: 0},
		{Value: "no", Label: "no", OrderIndex: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseOptions = %+v, want %+v", got, want)
	}

	got = ParseOptions("\r\n  a  \r\n\r\nb|\n c | C \n")
	want = []models.FieldOption{
		{Value: "a", Label: "a", OrderIndex: 0},
		{Value: "b", Label: "b", OrderIndex: 1},
		{Value: "c", Label: "C", OrderIndex: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseOptions with blanks = %+v, want %+v", got, want)
	}

	if got := ParseOptions(""); len(got) != 0 {
		t.Fatalf("empty text gave %d options", len(got))
	}
}

func TestFormatOptionsInvertsParse(t *testing.T) {
	text := "yes|Yes please\nno\nmaybe|Not sure"
	if got := FormatOptions(ParseOptions(text)); got != text {
		t.Fatalf("FormatOptions(ParseOptions(%q)) = %q", text, got)
	}
}

func TestBuildSchema(t *testing.T) {
	defs := Normalize([]any{
		map[string]any{"key": "email", "label": "Email", "type": "email"},
		map[string]any{"key": "notes", "is_required": false},
	}, nil).Fields
	base := models.Schema{Title: "Old", Extra: map[string]any{"version": 2.0}, Sections: []models.SchemaSection{{Title: "stale"}}}

	schema := BuildSchema("Nurse Intake!", "Tell us more", base, defs)

	if schema.Title != "Old" || schema.Extra["version"] != 2.0 {
		t.Fatalf("base keys not preserved: %+v", schema)
	}
	if len(schema.Sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(schema.Sections))
	}
	sec := schema.Sections[0]
	if sec.Key != "nurse_intake" || sec.Title != "Nurse Intake!" || sec.Description != "Tell us more" {
		t.Fatalf("section = %+v", sec)
	}
	if len(schema.Fields) != 2 || !reflect.DeepEqual(schema.Fields, sec.Fields) {
		t.Fatalf("schema fields and section fields differ")
	}
	if !schema.Fields[0].Required || schema.Fields[1].Required || schema.Fields[1].OrderIndex != 1 {
		t.Fatalf("schema field flags = %+v", schema.Fields)
	}

	unnamed := BuildSchema("", "", models.Schema{}, defs)
	if unnamed.Sections[0].Key != "questionnaire" || unnamed.Sections[0].Title != "Questionnaire" {
		t.Fatalf("unnamed section = %+v", unnamed.Sections[0])
	}
}

func TestValidateForSave(t *testing.T) {
	if err := ValidateForSave(nil); !errors.Is(err, ErrNoFields) {
		t.Fatalf("empty list error = %v", err)
	}
	if err := ValidateForSave([]models.FieldDefinition{{Key: ""}}); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("empty key error = %v", err)
	}
	err := ValidateForSave([]models.FieldDefinition{{Key: "email"}, {Key: "Email"}})
	var dup *DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("duplicate error = %v", err)
	}
	if err := ValidateForSave([]models.FieldDefinition{{Key: "a"}, {Key: "b"}}); err != nil {
		t.Fatalf("valid list rejected: %v", err)
	}
}

func TestDecodeLegacyFieldShape(t *testing.T) {
	res := Parse(`[{"key":"bio","group":"About","field_type":"textarea","required":false,"description":"Short bio","options":["x"]}]`, nil)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	f := res.Fields[0]
	if f.SectionName() != "About" || f.Type != models.FieldTextarea || f.IsRequired {
		t.Fatalf("legacy field = %+v", f)
	}
	if f.Config.HelperText() != "Short bio" {
		t.Fatalf("helper text = %q", f.Config.HelperText())
	}
	if opts := f.Config.Options(); len(opts) != 1 || opts[0].Value != "x" {
		t.Fatalf("options = %+v", opts)
	}
}
