package drafts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/uc4u2/candidate-intake/internal/database"
	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/blueprint"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm/logger"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "drafts.db"), logger.Silent)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return NewService(db, zaptest.NewLogger(t))
}

func keys(defs []models.FieldDefinition) []string {
	out := make([]string, len(defs))
	for i, f := range defs {
		out[i] = f.Key
	}
	return out
}

func TestCreateAndGet(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	bp := blueprint.Get("tutor")
	if bp == nil {
		t.Fatal("tutor blueprint missing")
	}

	d, err := svc.Create(ctx, bp.Template())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.ID == "" || d.Version != 1 || d.Status != models.TemplateDraft || d.TemplateID != nil {
		t.Fatalf("draft = %+v", d)
	}

	got, err := svc.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != bp.Name || len(got.Fields) != len(bp.Fields) {
		t.Fatalf("got %q with %d fields, want %q with %d", got.Name, len(got.Fields), bp.Name, len(bp.Fields))
	}
	for i, f := range got.Fields {
		if f.OrderIndex != i {
			t.Fatalf("field %d has order_index %d", i, f.OrderIndex)
		}
	}
	if len(got.Schema.Sections) == 0 {
		t.Fatal("schema sections lost in storage")
	}

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) err = %v", err)
	}
}

func TestSaveKeepsHistory(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, models.Template{
		ProfessionKey: "tutor",
		Name:          "Tutor intake",
		Fields: []models.FieldDefinition{
			{Key: "subjects", Label: "Subjects", Type: models.FieldText, IsRequired: true},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	tpl := ToTemplate(d)
	tpl.Name = "Tutor intake v2"
	tpl.Fields = append(tpl.Fields, models.FieldDefinition{Key: "grades", Label: "Grades", Type: models.FieldText})
	saved, err := svc.Save(ctx, d.ID, tpl)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Version != 2 || saved.Name != "Tutor intake v2" {
		t.Fatalf("saved = %+v", saved)
	}

	history, err := svc.History(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Version != 1 || history[0].Name != "Tutor intake" || len(history[0].Fields) != 1 {
		t.Fatalf("history = %+v", history)
	}

	restored, err := svc.Restore(ctx, d.ID, 1)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Version != 3 || restored.Name != "Tutor intake" || len(restored.Fields) != 1 {
		t.Fatalf("restored = %+v", restored)
	}
	if history, _ := svc.History(ctx, d.ID); len(history) != 2 || history[0].Version != 2 {
		t.Fatalf("history after restore = %+v", history)
	}
	if _, err := svc.Restore(ctx, d.ID, 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Restore(9) err = %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	for _, p := range []string{"tutor", "doctor", "tutor"} {
		if _, err := svc.Create(ctx, models.Template{ProfessionKey: p, Name: p}); err != nil {
			t.Fatal(err)
		}
	}
	all, err := svc.List(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("List = %d, %v", len(all), err)
	}
	tutors, err := svc.List(ctx, "tutor")
	if err != nil || len(tutors) != 2 {
		t.Fatalf("List(tutor) = %d, %v", len(tutors), err)
	}

	if err := svc.Delete(ctx, tutors[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, tutors[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted draft still readable: %v", err)
	}
	if err := svc.Delete(ctx, tutors[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete err = %v", err)
	}
}

func TestMarkPublishedLinksTemplate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, models.Template{ProfessionKey: "tutor", Name: "Tutor intake"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkPublished(ctx, d.ID, models.RecordID("17")); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	got, err := svc.Get(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TemplateID == nil || *got.TemplateID != "17" || got.PublishedAt == nil {
		t.Fatalf("draft = %+v", got)
	}
	if tpl := ToTemplate(got); tpl.ID != "17" {
		t.Fatalf("template id = %q", tpl.ID)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, blueprint.Get("doctor").Template())
	if err != nil {
		t.Fatal(err)
	}
	sess := svc.Session(d)
	fe := sess.FieldEditor()
	if err := fe.OpenCreate(); err != nil {
		t.Fatal(err)
	}
	fe.SetLabel("Board certification")
	next, err := fe.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	sess.SetFields(next)

	payload, err := sess.Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	saved, err := svc.Save(ctx, d.ID, payload)
	if err != nil {
		t.Fatal(err)
	}
	got := keys(saved.Fields)
	if got[len(got)-1] != "board_certification" {
		t.Fatalf("keys = %v", got)
	}
}
