package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/uc4u2/candidate-intake/internal/client"
	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/render"
	"github.com/uc4u2/candidate-intake/internal/modules/uploads/attachments"
	"github.com/uc4u2/candidate-intake/internal/modules/uploads/pipeline"
)

func (a *App) intake(ctx context.Context, token string) (models.IntakeBundle, error) {
	c, err := a.Client()
	if err != nil {
		return models.IntakeBundle{}, err
	}
	return c.GetIntake(ctx, token)
}

func (a *App) cmdRender(ctx context.Context, args []string) error {
	rest, err := a.parse(a.flagSet("render"), args, 1)
	if err != nil {
		return err
	}
	bundle, err := a.intake(ctx, rest[0])
	if err != nil {
		return err
	}
	view := render.NewView(&bundle.Template, &bundle.Submission)

	a.printf("%s\n", bundle.Template.Name)
	if view.ReadOnly {
		a.printf("(submitted, read-only)\n")
	}
	for _, s := range view.Sections {
		a.printf("\n== %s ==\n", s.Title)
		for _, f := range s.Fields {
			mark := " "
			if f.Required {
				mark = "*"
			}
			a.printf("%s %s [%s, %s]", mark, f.Label, f.Key, f.Control)
			if v, ok := view.Response(f.Key); ok {
				a.printf(" = %v", v)
			}
			if att, ok := view.Attachment(f.Key); ok {
				a.printf(" = %s (%s%s)", att.OriginalFilename, render.FormatBytes(att.FileSize), scanNote(att))
			}
			a.printf("\n")
			if f.HelperText != "" {
				a.printf("    %s\n", f.HelperText)
			}
			for _, opt := range f.Options {
				a.printf("    - %s\n", opt.Label)
			}
		}
	}
	for _, q := range bundle.Questionnaires {
		key := attachments.QuestionnaireKey(q.TemplateID)
		state := "missing"
		if att, ok := view.Attachment(key); ok {
			state = att.OriginalFilename + scanNote(att)
		}
		a.printf("\nquestionnaire %s (%s): %s\n", q.Name, key, state)
	}
	return nil
}

func scanNote(att models.Attachment) string {
	if att.ScanStatus == models.ScanUnset {
		return ""
	}
	return ", scan " + string(att.ScanStatus)
}

// uploadTarget resolves the upload context from the -token and
// -submission flags. A token selects the candidate endpoints and brings the
// submission's limits and files along.
type uploadTarget struct {
	kind   models.UploadContext
	token  string
	subID  models.RecordID
	limits *pipeline.Limits
	agg    *attachments.Aggregate
	view   *render.View
}

func (a *App) resolveTarget(ctx context.Context, u *pipeline.Uploader, token, submission string) (uploadTarget, error) {
	token, submission = strings.TrimSpace(token), strings.TrimSpace(submission)
	switch {
	case token != "" && submission != "":
		return uploadTarget{}, fmt.Errorf("%w: use either -token or -submission", ErrUsage)
	case token != "":
		bundle, err := a.intake(ctx, token)
		if err != nil {
			return uploadTarget{}, err
		}
		limits := u.Limits().WithStorage(bundle.Storage)
		return uploadTarget{
			kind:   models.ContextCandidate,
			token:  token,
			subID:  bundle.Submission.ID,
			limits: &limits,
			agg:    attachments.New(bundle.Submission.Files),
			view:   render.NewView(&bundle.Template, &bundle.Submission),
		}, nil
	case submission != "":
		return uploadTarget{kind: models.ContextRecruiter, subID: models.RecordID(submission)}, nil
	}
	return uploadTarget{}, fmt.Errorf("%w: -token or -submission is required", ErrUsage)
}

func (a *App) cmdUpload(ctx context.Context, args []string) error {
	fs := a.flagSet("upload")
	token := fs.String("token", "", "candidate intake token")
	submission := fs.String("submission", "", "submission id (recruiter upload)")
	field := fs.String("field", "", "field key the file belongs to")
	rest, err := a.parse(fs, args, 1)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*field) == "" {
		fmt.Fprintln(a.errOut, "upload: -field is required")
		return ErrUsage
	}

	u, err := a.Uploader()
	if err != nil {
		return err
	}
	target, err := a.resolveTarget(ctx, u, *token, *submission)
	if err != nil {
		return err
	}
	if target.view != nil {
		if err := target.view.CanUpload(*field); err != nil {
			return err
		}
	}
	file, err := pipeline.OpenFile(rest[0])
	if err != nil {
		return err
	}

	last := pipeline.Stage("")
	att, err := u.Upload(ctx, pipeline.Request{
		Context:      target.kind,
		SubmissionID: target.subID,
		FieldKey:     *field,
		File:         file,
		IntakeToken:  target.token,
		Limits:       target.limits,
		Attachments:  target.agg,
		OnProgress: func(p pipeline.Progress) {
			if p.Stage != last && last != "" {
				fmt.Fprintln(a.errOut)
			}
			last = p.Stage
			fmt.Fprintf(a.errOut, "\r%-9s %3d%%", p.Stage, p.Percent)
		},
	})
	if last != "" {
		fmt.Fprintln(a.errOut)
	}
	if err != nil {
		return err
	}
	return a.writeJSON(att)
}

func (a *App) cmdDownload(ctx context.Context, args []string) error {
	fs := a.flagSet("download")
	token := fs.String("token", "", "candidate intake token")
	submission := fs.String("submission", "", "submission id (recruiter download)")
	out := fs.String("o", "", `output path ("-" for stdout; defaults to the stored filename)`)
	rest, err := a.parse(fs, args, 1)
	if err != nil {
		return err
	}
	kind := models.ContextRecruiter
	if strings.TrimSpace(*token) != "" {
		kind = models.ContextCandidate
	} else if strings.TrimSpace(*submission) == "" {
		fmt.Fprintln(a.errOut, "download: -token or -submission is required")
		return ErrUsage
	}

	u, err := a.Uploader()
	if err != nil {
		return err
	}
	dl, err := u.Download(ctx, kind, strings.TrimSpace(*token), models.RecordID(rest[0]))
	if err != nil {
		return err
	}

	path := strings.TrimSpace(*out)
	if path == "-" {
		_, err := a.out.Write(dl.Body)
		return err
	}
	if path == "" {
		path = filepath.Base(dl.Filename)
	}
	if err := os.WriteFile(path, dl.Body, 0o644); err != nil {
		return err
	}
	a.printf("saved %s (%s, %s)\n", path, dl.ContentType, render.FormatBytes(int64(len(dl.Body))))
	return nil
}

// gate runs the submit checks for a bundle: required files (questionnaires
// and required file fields) and scan status first, then unanswered required
// fields.
func gate(bundle models.IntakeBundle) (missingAnswers []string, err error) {
	view := render.NewView(&bundle.Template, &bundle.Submission)
	required := append(attachments.RequiredKeys(bundle.Questionnaires), view.RequiredFileKeys()...)
	agg := attachments.New(bundle.Submission.Files)
	if err := agg.CheckSubmit(required); err != nil {
		return nil, err
	}
	return view.MissingRequired(), nil
}

func (a *App) cmdCheck(ctx context.Context, args []string) error {
	rest, err := a.parse(a.flagSet("check"), args, 1)
	if err != nil {
		return err
	}
	bundle, err := a.intake(ctx, rest[0])
	if err != nil {
		return err
	}
	if bundle.Submission.ReadOnly() {
		a.printf("already submitted\n")
		return nil
	}
	missing, err := gate(bundle)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		a.printf("files ok; unanswered required fields: %s\n", strings.Join(missing, ", "))
		return nil
	}
	a.printf("ready to submit\n")
	return nil
}

func (a *App) cmdSubmit(ctx context.Context, args []string) error {
	fs := a.flagSet("submit")
	responsesPath := fs.String("responses", "", `JSON object of answers ("-" for stdin); defaults to the saved answers`)
	rest, err := a.parse(fs, args, 1)
	if err != nil {
		return err
	}
	token := rest[0]
	bundle, err := a.intake(ctx, token)
	if err != nil {
		return err
	}
	if bundle.Submission.ReadOnly() {
		return render.ErrReadOnly
	}
	if _, err := gate(bundle); err != nil {
		return err
	}

	responses := bundle.Submission.Responses
	if *responsesPath != "" {
		text, err := a.readArg(*responsesPath)
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(text), &responses); err != nil {
			return fmt.Errorf("read responses: %w", err)
		}
	}
	if responses == nil {
		responses = map[string]any{}
	}

	c, err := a.Client()
	if err != nil {
		return err
	}
	res, err := c.SubmitIntake(ctx, token, responses)
	var fe *client.FieldErrors
	if errors.As(err, &fe) {
		keys := make([]string, 0, len(fe.Fields))
		for k := range fe.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(a.errOut, "  %s: %s\n", k, fe.Fields[k])
		}
	}
	if err != nil {
		return err
	}
	a.printf("submitted (%s)\n", res.Submission.Status)
	for _, q := range res.Questionnaires {
		a.printf("questionnaire %s: %s\n", q.Name, attachments.QuestionnaireKey(q.TemplateID))
	}
	return nil
}
