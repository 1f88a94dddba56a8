package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/uc4u2/candidate-intake/internal/models"
)

// TemplateFilter narrows ListTemplates.
type TemplateFilter struct {
	Status          models.TemplateStatus
	Profession      string
	IncludeArchived bool
}

func (f TemplateFilter) query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Profession != "" {
		q.Set("profession", f.Profession)
	}
	if f.IncludeArchived {
		q.Set("include_archived", "true")
	}
	return q
}

func (c *Client) ListTemplates(ctx context.Context, f TemplateFilter) ([]models.Template, error) {
	var raw json.RawMessage
	err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/api/form-templates",
		query:    f.query(),
		fallback: "Failed to load templates",
	}, nil, &raw)
	if err != nil {
		return nil, err
	}
	var list []models.Template
	if err := decodeList(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GetTemplate(ctx context.Context, id models.RecordID) (models.Template, error) {
	var tpl models.Template
	err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/api/form-templates/" + url.PathEscape(id.String()),
		fallback: "Failed to load template",
	}, nil, &tpl)
	return tpl, err
}

// CreateTemplate stores a new template. When the server answers without a
// body the payload is returned as sent.
func (c *Client) CreateTemplate(ctx context.Context, tpl models.Template) (models.Template, error) {
	out := tpl
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/api/form-templates",
		fallback: "Failed to save template",
	}, tpl, &out)
	return out, err
}

// UpdateTemplate replaces template id. A PUT that never reaches the server
// is retried once as a POST carrying X-HTTP-Method-Override, for proxies
// that drop PUT.
func (c *Client) UpdateTemplate(ctx context.Context, id models.RecordID, tpl models.Template) (models.Template, error) {
	out := tpl
	k := call{
		method:   http.MethodPut,
		path:     "/api/form-templates/" + url.PathEscape(id.String()),
		fallback: "Failed to save template",
	}
	err := c.do(ctx, k, tpl, &out)
	if isTransportError(ctx, err) {
		c.log.Debug("retrying template update with method override")
		k.method = http.MethodPost
		k.headers = map[string]string{headerOverride: http.MethodPut}
		out = tpl
		err = c.do(ctx, k, tpl, &out)
	}
	return out, err
}

// ArchiveTemplate archives template id; the API archives on DELETE.
func (c *Client) ArchiveTemplate(ctx context.Context, id models.RecordID) error {
	return c.do(ctx, call{
		method:   http.MethodDelete,
		path:     "/api/form-templates/" + url.PathEscape(id.String()),
		fallback: "Failed to archive template",
	}, nil, nil)
}

// decodeList accepts a bare JSON array or an object with an "items" array.
func decodeList(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '[' {
		return json.Unmarshal(raw, out)
	}
	var wrapped struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return err
	}
	if len(wrapped.Items) == 0 || wrapped.Items[0] != '[' {
		return nil
	}
	return json.Unmarshal(wrapped.Items, out)
}
