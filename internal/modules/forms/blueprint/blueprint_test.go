package blueprint

import (
	"strings"
	"testing"

	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/fields"
)

func TestGetGenericProfession(t *testing.T) {
	bp := Get("teacher")
	if bp == nil {
		t.Fatal("teacher blueprint missing")
	}
	if bp.Name != "Teacher candidate intake" {
		t.Errorf("Name = %q", bp.Name)
	}
	if !strings.HasPrefix(bp.Description, "Teacher questionnaire. ") {
		t.Errorf("Description = %q", bp.Description)
	}
	if len(bp.Schema.Sections) != 3 || bp.Schema.Sections[2].Title != "Teacher details" {
		t.Fatalf("sections = %+v", bp.Schema.Sections)
	}
	if len(bp.Fields) != 10 {
		t.Fatalf("got %d fields, want 10", len(bp.Fields))
	}
	for i, f := range bp.Fields {
		if f.OrderIndex != i {
			t.Errorf("field %q order_index = %d, want %d", f.Key, f.OrderIndex, i)
		}
		if f.Type != f.FieldType {
			t.Errorf("field %q type mismatch %q/%q", f.Key, f.Type, f.FieldType)
		}
	}
	if bp.Fields[0].SectionName() != "Contact information" || bp.Fields[9].SectionName() != "Teacher details" {
		t.Errorf("section tags = %q, %q", bp.Fields[0].SectionName(), bp.Fields[9].SectionName())
	}
	if !bp.Fields[0].IsRequired || bp.Fields[2].IsRequired {
		t.Errorf("requiredness not carried from declarations")
	}
}

func TestGetRecruitingLayout(t *testing.T) {
	bp := Get("hr_recruiting")
	if bp == nil {
		t.Fatal("hr_recruiting blueprint missing")
	}
	if len(bp.Schema.Sections) != 7 {
		t.Fatalf("got %d sections, want 7", len(bp.Schema.Sections))
	}
	if len(bp.Fields) != 14 {
		t.Fatalf("got %d fields, want 14", len(bp.Fields))
	}

	var multi *models.FieldDefinition
	for i := range bp.Fields {
		if bp.Fields[i].Key == "employment_type_preference" {
			multi = &bp.Fields[i]
		}
	}
	if multi == nil || !multi.Type.IsMulti() {
		t.Fatalf("employment_type_preference should be multi-valued, got %+v", multi)
	}
	if opts := multi.Config.Options(); len(opts) != 6 || opts[0].Value != "Full-time" {
		t.Fatalf("options = %+v", opts)
	}
}

func TestCustomHasNoRoleSection(t *testing.T) {
	bp := Get("custom")
	if bp == nil {
		t.Fatal("custom blueprint missing")
	}
	if len(bp.Schema.Sections) != 2 || len(bp.Fields) != 7 {
		t.Fatalf("custom blueprint = %d sections, %d fields", len(bp.Schema.Sections), len(bp.Fields))
	}
}

func TestUnknownProfession(t *testing.T) {
	if bp := Get("astronaut"); bp != nil {
		t.Fatalf("unexpected blueprint %+v", bp)
	}
}

func TestEmailCopyKeepsTokens(t *testing.T) {
	bp := Get("lawyer")
	for _, token := range []string{"{name}", "{profession_label}", "{link}"} {
		if !strings.Contains(bp.EmailSubject+bp.EmailBody, token) {
			t.Errorf("email copy lost %s", token)
		}
	}
}

func TestEveryBlueprintIsSavable(t *testing.T) {
	for _, p := range Professions() {
		bp := Get(p.Key)
		if bp == nil {
			t.Fatalf("%s: listed but not buildable", p.Key)
		}
		res := fields.NormalizeFields(bp.Fields, nil)
		if err := fields.ValidateForSave(res.Fields); err != nil {
			t.Errorf("%s: %v", p.Key, err)
		}
		if label, ok := Label(p.Key); !ok || label != p.Label {
			t.Errorf("%s: Label() = %q, %v", p.Key, label, ok)
		}
	}
}

func TestGetReturnsFreshValues(t *testing.T) {
	first := Get("tutor")
	first.Fields[0].Label = "changed"
	first.Fields[0].Config["placeholder"] = "x"

	second := Get("tutor")
	if second.Fields[0].Label != "Full Name" || second.Fields[0].Config.Placeholder() != "" {
		t.Fatalf("catalog state leaked between calls: %+v", second.Fields[0])
	}
}
