package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/uc4u2/candidate-intake/internal/config"
	"github.com/uc4u2/candidate-intake/internal/intaketest"
	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/editor"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/fields"
	"github.com/uc4u2/candidate-intake/internal/modules/uploads/attachments"
	"go.uber.org/zap/zaptest"
)

type harness struct {
	app *App
	srv *intaketest.Server
	dir string
	out *bytes.Buffer
	err *bytes.Buffer
	in  *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := intaketest.New(t)
	dir := t.TempDir()
	yml := fmt.Sprintf(`api:
  base_url: %s
  token: %s
  company_id: %q
drafts:
  path: drafts/intake.db
metrics:
  textfile: metrics/intake.prom
`, srv.URL(), srv.RecruiterToken(t), intaketest.CompanyID)
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	h := &harness{srv: srv, dir: dir, out: &bytes.Buffer{}, err: &bytes.Buffer{}, in: &bytes.Buffer{}}
	h.app, err = New(zaptest.NewLogger(t), cfg, WithOutput(h.out, h.err), WithInput(h.in))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = h.app.Close() })
	return h
}

// run executes a command and returns its trimmed output.
func (h *harness) run(t *testing.T, args ...string) string {
	t.Helper()
	h.out.Reset()
	if err := h.app.Run(context.Background(), args); err != nil {
		t.Fatalf("%v: %v\nstderr: %s", args, err, h.err.String())
	}
	return strings.TrimSpace(h.out.String())
}

func TestBlueprintCommands(t *testing.T) {
	h := newHarness(t)

	list := h.run(t, "blueprints")
	if !strings.Contains(list, "tutor") || !strings.Contains(list, "Life Coach") {
		t.Fatalf("blueprints output:\n%s", list)
	}
	if out := h.run(t, "blueprint", "tutor"); !strings.Contains(out, `"professionKey": "tutor"`) {
		t.Fatalf("blueprint output:\n%s", out)
	}
	err := h.app.Run(context.Background(), []string{"blueprint", "astronaut"})
	if !errors.Is(err, editor.ErrNoBlueprint) {
		t.Fatalf("err = %v, want ErrNoBlueprint", err)
	}
}

func TestDraftLifecycle(t *testing.T) {
	h := newHarness(t)

	id := h.run(t, "draft", "new", "-name", "Tutor intake", "tutor")
	if id == "" {
		t.Fatal("draft new printed no id")
	}

	if out := h.run(t, "draft", "add-field", "-label", "Board certification", "-required=false", id); !strings.Contains(out, "version 2") {
		t.Fatalf("add-field output: %s", out)
	}
	svc, err := h.app.Drafts()
	if err != nil {
		t.Fatal(err)
	}
	d, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	last := d.Fields[len(d.Fields)-1]
	if last.Key != "board_certification" || last.IsRequired {
		t.Fatalf("added field = %+v", last)
	}

	out := h.run(t, "draft", "move", id, "board_certification", "up")
	lines := strings.Split(out, "\n")
	if len(lines) < 2 || !strings.HasSuffix(lines[len(lines)-2], "board_certification") {
		t.Fatalf("move output:\n%s", out)
	}

	if out := h.run(t, "draft", "delete-field", "-yes", id, "board_certification"); out != "deleted board_certification" {
		t.Fatalf("delete-field output: %s", out)
	}

	if out := h.run(t, "draft", "publish", id); !strings.HasPrefix(out, "published template ") {
		t.Fatalf("publish output: %s", out)
	}
	if h.srv.Calls("templates.create") != 1 {
		t.Fatalf("create calls = %d", h.srv.Calls("templates.create"))
	}
	d, err = svc.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if d.TemplateID == nil || d.PublishedAt == nil {
		t.Fatalf("draft not linked after publish: %+v", d)
	}
	remote, ok := h.srv.Template(models.RecordID(*d.TemplateID))
	if !ok || remote.Name != "Tutor intake" || len(remote.Fields) != len(d.Fields) {
		t.Fatalf("remote template = %+v", remote)
	}

	h.run(t, "draft", "edit-field", "-helper", "As listed on the certificate", id, "0")
	h.run(t, "draft", "publish", id)
	if h.srv.Calls("templates.create") != 1 || h.srv.Calls("templates.update") != 1 {
		t.Fatalf("create=%d update=%d", h.srv.Calls("templates.create"), h.srv.Calls("templates.update"))
	}

	if out := h.run(t, "draft", "list"); !strings.Contains(out, *d.TemplateID) {
		t.Fatalf("list output:\n%s", out)
	}
	if out := h.run(t, "draft", "history", id); !strings.HasPrefix(out, "v") {
		t.Fatalf("history output:\n%s", out)
	}
}

func TestDraftDeleteFieldNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	id := h.run(t, "draft", "new", "tutor")

	before := h.run(t, "draft", "fields", id)
	if out := h.run(t, "draft", "delete-field", id, "0"); !strings.HasPrefix(out, "kept ") {
		t.Fatalf("delete-field output: %s", out)
	}
	if after := h.run(t, "draft", "fields", id); after != before {
		t.Fatal("fields changed without confirmation")
	}
}

func TestDraftSetFieldsRejectsBadJSON(t *testing.T) {
	h := newHarness(t)
	id := h.run(t, "draft", "new", "tutor")
	before := h.run(t, "draft", "fields", id)

	h.in.WriteString(`[{"label": "Subjects",`)
	err := h.app.Run(context.Background(), []string{"draft", "set-fields", id, "-"})
	if !errors.Is(err, fields.ErrSchemaParse) {
		t.Fatalf("err = %v, want ErrSchemaParse", err)
	}
	if after := h.run(t, "draft", "fields", id); after != before {
		t.Fatal("bad field text replaced the stored fields")
	}

	h.in.Reset()
	h.in.WriteString(`[{"key": "subjects", "label": "Subjects you teach", "type": "textarea"}, {"key": "rate", "label": "Rate"}]`)
	if out := h.run(t, "draft", "set-fields", id, "-"); !strings.HasPrefix(out, "saved 2 field(s)") {
		t.Fatalf("set-fields output: %s", out)
	}
}

func TestUploadCheckAndSubmit(t *testing.T) {
	h := newHarness(t)
	tpl := h.srv.AddTemplate(models.Template{
		ProfessionKey: "tutor",
		Name:          "Tutor intake",
		Status:        models.TemplateActive,
		Fields: []models.FieldDefinition{
			{Key: "subjects", Label: "Subjects", Type: models.FieldTextarea, FieldType: models.FieldTextarea, IsRequired: true},
		},
	})
	token, _ := h.srv.AddIntake(tpl.ID, []models.QuestionnaireAssignment{{TemplateID: "77", Name: "Consent"}}, nil)

	err := h.app.Run(context.Background(), []string{"check", token})
	var missing *attachments.MissingAttachmentsError
	if !errors.As(err, &missing) || len(missing.Keys) != 1 || missing.Keys[0] != "questionnaire_77" {
		t.Fatalf("check err = %v", err)
	}

	file := filepath.Join(h.dir, "consent.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.7 signed"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := h.run(t, "upload", "-token", token, "-field", "questionnaire_77", file)
	if !strings.Contains(out, `"consent.pdf"`) {
		t.Fatalf("upload output:\n%s", out)
	}
	if !strings.Contains(h.err.String(), "100%") {
		t.Fatalf("no progress written: %q", h.err.String())
	}

	if out := h.run(t, "check", token); out != "files ok; unanswered required fields: subjects" {
		t.Fatalf("check output: %s", out)
	}

	h.in.WriteString(`{"subjects": "Physics"}`)
	if out := h.run(t, "submit", "-responses", "-", token); !strings.HasPrefix(out, "submitted (submitted)") {
		t.Fatalf("submit output: %s", out)
	}
	if h.srv.Submission(token).Status != models.SubmissionSubmitted {
		t.Fatalf("status = %q", h.srv.Submission(token).Status)
	}

	err = h.app.Run(context.Background(), []string{"upload", "-token", token, "-field", "questionnaire_77", file})
	if err == nil || !strings.Contains(err.Error(), "already been submitted") {
		t.Fatalf("upload after submit err = %v", err)
	}

	if err := h.app.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	prom, err := os.ReadFile(filepath.Join(h.dir, "metrics", "intake.prom"))
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), "upload_complete_total") {
		t.Fatalf("metrics textfile:\n%s", prom)
	}
}

func TestSubmitNeedsRequiredFileField(t *testing.T) {
	h := newHarness(t)
	tpl := h.srv.AddTemplate(models.Template{
		ProfessionKey: "tutor",
		Name:          "Tutor intake",
		Status:        models.TemplateActive,
		Fields: []models.FieldDefinition{
			{Key: "resume", Label: "Resume", Type: models.FieldFile, FieldType: models.FieldFile, IsRequired: true},
		},
	})
	token, _ := h.srv.AddIntake(tpl.ID, nil, nil)

	for _, args := range [][]string{{"check", token}, {"submit", "-responses", "-", token}} {
		h.in.Reset()
		h.in.WriteString(`{}`)
		err := h.app.Run(context.Background(), args)
		var missing *attachments.MissingAttachmentsError
		if !errors.As(err, &missing) || len(missing.Keys) != 1 || missing.Keys[0] != "resume" {
			t.Fatalf("%v: err = %v, want missing resume", args, err)
		}
	}
	if n := h.srv.Calls("intake.submit"); n != 0 {
		t.Fatalf("submit sent %d time(s) without the required file", n)
	}
	if got := h.srv.Submission(token).Status; got == models.SubmissionSubmitted {
		t.Fatalf("status = %q", got)
	}

	file := filepath.Join(h.dir, "resume.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.7 cv"), 0o644); err != nil {
		t.Fatal(err)
	}
	h.run(t, "upload", "-token", token, "-field", "resume", file)
	if out := h.run(t, "check", token); out != "ready to submit" {
		t.Fatalf("check output: %s", out)
	}
	h.in.Reset()
	h.in.WriteString(`{}`)
	if out := h.run(t, "submit", "-responses", "-", token); !strings.HasPrefix(out, "submitted (submitted)") {
		t.Fatalf("submit output: %s", out)
	}
}

func TestDownloadToStdout(t *testing.T) {
	h := newHarness(t)
	tpl := h.srv.AddTemplate(models.Template{ProfessionKey: "tutor", Name: "Tutor intake", Status: models.TemplateActive})
	token, _ := h.srv.AddIntake(tpl.ID, []models.QuestionnaireAssignment{{TemplateID: "9", Name: "Consent"}}, nil)

	file := filepath.Join(h.dir, "consent.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.7 body"), 0o644); err != nil {
		t.Fatal(err)
	}
	h.run(t, "upload", "-token", token, "-field", "questionnaire_9", file)
	files := h.srv.Submission(token).Files
	if len(files) != 1 {
		t.Fatalf("files = %+v", files)
	}

	if out := h.run(t, "download", "-token", token, "-o", "-", files[0].ID.String()); out != "%PDF-1.7 body" {
		t.Fatalf("download output: %q", out)
	}
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)
	tests := [][]string{
		nil,
		{"launch"},
		{"blueprint"},
		{"draft"},
		{"draft", "rename"},
		{"upload", "-token", "abc", "file.pdf"},
		{"download", "42"},
	}
	for _, args := range tests {
		if err := h.app.Run(context.Background(), args); !errors.Is(err, ErrUsage) {
			t.Errorf("%v: err = %v, want ErrUsage", args, err)
		}
	}
	h.out.Reset()
	if err := h.app.Run(context.Background(), []string{"help"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.out.String(), "usage: intakectl") {
		t.Fatalf("help output:\n%s", h.out.String())
	}
}

func TestCommandsNeedAPI(t *testing.T) {
	cfg, err := config.LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	cfg.API.BaseURL = ""
	a, err := New(zaptest.NewLogger(t), cfg, WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	for _, args := range [][]string{{"templates"}, {"render", "tok"}, {"check", "tok"}} {
		if err := a.Run(context.Background(), args); !errors.Is(err, ErrNoAPI) {
			t.Errorf("%v: err = %v, want ErrNoAPI", args, err)
		}
	}
}
