package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/uc4u2/candidate-intake/internal/models"
)

func intakePath(token string) string {
	return "/api/candidate-forms/intake/" + url.PathEscape(token)
}

// GetIntake loads the template, submission, questionnaires and storage limits
// behind an intake link.
func (c *Client) GetIntake(ctx context.Context, token string) (models.IntakeBundle, error) {
	var bundle models.IntakeBundle
	if token == "" {
		return bundle, errors.New("intake token is required")
	}
	err := c.do(ctx, call{
		method:    http.MethodGet,
		path:      intakePath(token),
		candidate: true,
		fallback:  "Failed to load intake form",
	}, nil, &bundle)
	if bundle.Submission.Files == nil {
		bundle.Submission.Files = []models.Attachment{}
	}
	return bundle, err
}

// SaveIntake stores in-progress answers and returns what the server kept.
func (c *Client) SaveIntake(ctx context.Context, token string, responses map[string]any) (map[string]any, error) {
	var out struct {
		Responses map[string]any `json:"responses"`
	}
	err := c.do(ctx, call{
		method:    http.MethodPatch,
		path:      intakePath(token),
		candidate: true,
		fallback:  "Failed to save progress",
	}, map[string]any{"responses": responses}, &out)
	if err != nil {
		return nil, err
	}
	if out.Responses == nil {
		return responses, nil
	}
	return out.Responses, nil
}

// SubmitResult is the server answer to a submit.
type SubmitResult struct {
	Submission     models.Submission
	Questionnaires []models.QuestionnaireAssignment
}

// SubmitIntake finalizes the answers. A rejection that names fields comes
// back as *FieldErrors.
func (c *Client) SubmitIntake(ctx context.Context, token string, responses map[string]any) (SubmitResult, error) {
	var raw json.RawMessage
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      intakePath(token) + "/submit",
		candidate: true,
		fallback:  "Failed to submit form",
	}, map[string]any{"responses": responses}, &raw)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && len(apiErr.Fields) > 0 {
			return SubmitResult{}, &FieldErrors{APIError: apiErr}
		}
		return SubmitResult{}, err
	}

	var res SubmitResult
	if len(raw) == 0 {
		return res, nil
	}
	var wrapped struct {
		Submission     json.RawMessage                  `json:"submission"`
		Questionnaires []models.QuestionnaireAssignment `json:"questionnaires"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return res, err
	}
	body := raw
	if len(wrapped.Submission) > 0 && string(wrapped.Submission) != "null" {
		body = wrapped.Submission
	}
	if err := json.Unmarshal(body, &res.Submission); err != nil {
		return res, err
	}
	if res.Submission.Files == nil {
		res.Submission.Files = []models.Attachment{}
	}
	res.Questionnaires = wrapped.Questionnaires
	return res, nil
}

// SubmissionFilter narrows ListSubmissions.
type SubmissionFilter struct {
	Status     models.SubmissionStatus
	Profession string
}

func (c *Client) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]models.Submission, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Profession != "" {
		q.Set("profession", f.Profession)
	}
	var raw json.RawMessage
	err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/api/candidate-forms/submissions",
		query:    q,
		fallback: "Failed to load submissions",
	}, nil, &raw)
	if err != nil {
		return nil, err
	}
	var list []models.Submission
	if err := decodeList(raw, &list); err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Files == nil {
			list[i].Files = []models.Attachment{}
		}
	}
	return list, nil
}

// ConvertSubmission turns a submitted intake into a candidate record.
func (c *Client) ConvertSubmission(ctx context.Context, id models.RecordID) (map[string]any, error) {
	out := map[string]any{}
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/api/candidate-forms/submissions/" + url.PathEscape(id.String()) + "/convert",
		fallback: "Failed to convert submission",
	}, map[string]any{}, &out)
	return out, err
}
