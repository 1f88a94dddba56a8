package client_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/uc4u2/candidate-intake/internal/client"
	"github.com/uc4u2/candidate-intake/internal/intaketest"
	"github.com/uc4u2/candidate-intake/internal/models"
)

func sampleTemplate(name string) models.Template {
	return models.Template{
		ProfessionKey: "tutor",
		Name:          name,
		Status:        models.TemplateActive,
		Fields: []models.FieldDefinition{
			{Key: "subjects", Label: "Subjects", Type: models.FieldTextarea, FieldType: models.FieldTextarea, IsRequired: true},
		},
	}
}

func TestTemplateLifecycle(t *testing.T) {
	srv := intaketest.New(t)
	c := srv.Client(t)
	ctx := context.Background()

	created, err := c.CreateTemplate(ctx, sampleTemplate("Tutor intake"))
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if created.ID.IsZero() {
		t.Fatal("created template has no id")
	}

	got, err := c.GetTemplate(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if got.Name != "Tutor intake" || len(got.Fields) != 1 {
		t.Fatalf("GetTemplate = %+v", got)
	}

	got.Name = "Tutor intake v2"
	updated, err := c.UpdateTemplate(ctx, created.ID, got)
	if err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	if updated.Name != "Tutor intake v2" {
		t.Fatalf("updated name = %q", updated.Name)
	}

	if err := c.ArchiveTemplate(ctx, created.ID); err != nil {
		t.Fatalf("ArchiveTemplate: %v", err)
	}
	list, err := c.ListTemplates(ctx, client.TemplateFilter{})
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("archived template listed without include_archived: %+v", list)
	}
	list, err = c.ListTemplates(ctx, client.TemplateFilter{IncludeArchived: true, Profession: "tutor"})
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(list) != 1 || list[0].Status != models.TemplateArchived {
		t.Fatalf("ListTemplates(include_archived) = %+v", list)
	}
}

func TestUpdateTemplateRetriesWithMethodOverride(t *testing.T) {
	srv := intaketest.New(t)
	tpl := srv.AddTemplate(sampleTemplate("Tutor intake"))
	srv.Configure(func(b *intaketest.Behavior) { b.DropPUT = true })

	tpl.Description = "Updated through override"
	out, err := srv.Client(t).UpdateTemplate(context.Background(), tpl.ID, tpl)
	if err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	if out.Description != "Updated through override" {
		t.Fatalf("description = %q", out.Description)
	}
	if srv.Calls("templates.dropped") == 0 || srv.Calls("templates.override") != 1 {
		t.Fatalf("dropped=%d override=%d", srv.Calls("templates.dropped"), srv.Calls("templates.override"))
	}
	stored, _ := srv.Template(tpl.ID)
	if stored.Description != "Updated through override" {
		t.Fatalf("stored description = %q", stored.Description)
	}
}

func TestRecruiterCallsNeedToken(t *testing.T) {
	srv := intaketest.New(t)
	c, err := client.New(srv.URL())
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.ListTemplates(context.Background(), client.TemplateFilter{})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 APIError", err)
	}
}

func TestCandidateCallsOmitCompanyHeader(t *testing.T) {
	srv := intaketest.New(t)
	tpl := srv.AddTemplate(sampleTemplate("Tutor intake"))
	token, _ := srv.AddIntake(tpl.ID, nil, map[string]any{
		"allowedMime": "application/pdf, IMAGE/PNG",
		"max_file_mb": "5",
		"maxFiles":    3,
	})
	c := srv.Client(t)
	ctx := context.Background()

	bundle, err := c.GetIntake(ctx, token)
	if err != nil {
		t.Fatalf("GetIntake: %v", err)
	}
	if bundle.Template.ID != tpl.ID || bundle.Submission.IntakeToken != token {
		t.Fatalf("bundle = %+v", bundle)
	}
	if bundle.Submission.Files == nil {
		t.Fatal("files should default to an empty list")
	}
	if bundle.Storage == nil {
		t.Fatal("storage limits missing")
	}
	if got := bundle.Storage.AllowedMIME; len(got) != 2 || got[1] != "image/png" {
		t.Fatalf("allowed mime = %v", got)
	}
	if bundle.Storage.MaxFileMB != 5 || bundle.Storage.MaxFiles != 3 {
		t.Fatalf("storage = %+v", bundle.Storage)
	}

	saved, err := c.SaveIntake(ctx, token, map[string]any{"subjects": "Math"})
	if err != nil {
		t.Fatalf("SaveIntake: %v", err)
	}
	if saved["subjects"] != "Math" {
		t.Fatalf("saved = %v", saved)
	}
	if n := srv.Calls("candidate.company_header"); n != 0 {
		t.Fatalf("company header sent on %d candidate calls", n)
	}
	if n := srv.Calls("api.no_request_id"); n != 0 {
		t.Fatalf("%d calls without a request id", n)
	}
	if srv.Submission(token).Status != models.SubmissionInProgress {
		t.Fatalf("status = %q", srv.Submission(token).Status)
	}
}

func TestSubmitRejectedFields(t *testing.T) {
	srv := intaketest.New(t)
	tpl := srv.AddTemplate(sampleTemplate("Tutor intake"))
	token, _ := srv.AddIntake(tpl.ID, nil, nil)
	srv.Configure(func(b *intaketest.Behavior) {
		b.SubmitFieldErrors = map[string]string{"subjects": "This field is required."}
	})

	_, err := srv.Client(t).SubmitIntake(context.Background(), token, map[string]any{})
	var fe *client.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FieldErrors", err)
	}
	if fe.Error() != "Please review the highlighted fields." {
		t.Fatalf("message = %q", fe.Error())
	}
	if fe.Fields["subjects"] != "This field is required." {
		t.Fatalf("fields = %v", fe.Fields)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("underlying error = %v", err)
	}
}

func TestSubmitListAndConvert(t *testing.T) {
	srv := intaketest.New(t)
	tpl := srv.AddTemplate(sampleTemplate("Tutor intake"))
	token, sub := srv.AddIntake(tpl.ID, []models.QuestionnaireAssignment{{TemplateID: "77", Name: "Consent"}}, nil)
	c := srv.Client(t)
	ctx := context.Background()

	res, err := c.SubmitIntake(ctx, token, map[string]any{"subjects": "Physics"})
	if err != nil {
		t.Fatalf("SubmitIntake: %v", err)
	}
	if res.Submission.Status != models.SubmissionSubmitted || res.Submission.SubmittedAt == nil {
		t.Fatalf("submission = %+v", res.Submission)
	}
	if len(res.Questionnaires) != 1 || !res.Questionnaires[0].IsRequired() {
		t.Fatalf("questionnaires = %+v", res.Questionnaires)
	}

	_, err = c.SubmitIntake(ctx, token, map[string]any{})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("second submit err = %v", err)
	}
	if apiErr.Message != "This intake has already been submitted" {
		t.Fatalf("message = %q", apiErr.Message)
	}

	list, err := c.ListSubmissions(ctx, client.SubmissionFilter{Status: models.SubmissionSubmitted, Profession: "tutor"})
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(list) != 1 || list[0].ID != sub.ID || list[0].Files == nil {
		t.Fatalf("list = %+v", list)
	}

	if _, err := c.ConvertSubmission(ctx, sub.ID); err != nil {
		t.Fatalf("ConvertSubmission: %v", err)
	}
	if srv.Submission(token).Status != models.SubmissionConverted {
		t.Fatalf("status = %q", srv.Submission(token).Status)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a url", "/relative"} {
		if _, err := client.New(raw); err == nil {
			t.Errorf("New(%q) should fail", raw)
		}
	}
}
