package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerCompany   = "X-Company-Id"
	headerRequestID = "X-Request-ID"
	headerOverride  = "X-HTTP-Method-Override"
)

// APIError is a non-2xx answer from the intake API.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// FieldErrors is a rejected submit that names the offending fields.
type FieldErrors struct {
	*APIError
}

func (e *FieldErrors) Error() string { return "Please review the highlighted fields." }

func (e *FieldErrors) Unwrap() error { return e.APIError }

// Client talks to the recruiter and candidate intake endpoints.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	companyID string
	log       *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithToken sets the recruiter bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithCompanyID sets the company header sent on recruiter calls.
func WithCompanyID(id string) Option {
	return func(c *Client) { c.companyID = strings.TrimSpace(id) }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New returns a client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if raw == "" {
		return nil, errors.New("api base url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url: %s", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

type call struct {
	method    string
	path      string
	query     url.Values
	body      io.Reader
	size      int64
	ctype     string
	headers   map[string]string
	candidate bool
	fallback  string
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL.String() + path
}

func (c *Client) newRequest(ctx context.Context, k call) (*http.Request, error) {
	target := c.resolve(k.path)
	if len(k.query) > 0 {
		target += "?" + k.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, k.method, target, k.body)
	if err != nil {
		return nil, err
	}
	if k.size > 0 {
		req.ContentLength = k.size
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, uuid.NewString())
	if k.ctype != "" {
		req.Header.Set("Content-Type", k.ctype)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.companyID != "" && !k.candidate {
		req.Header.Set(headerCompany, c.companyID)
	}
	for key, v := range k.headers {
		req.Header.Set(key, v)
	}
	return req, nil
}

// send performs k and returns the response for a 2xx status. Any other
// status is turned into an *APIError.
func (c *Client) send(ctx context.Context, k call) (*http.Response, error) {
	req, err := c.newRequest(ctx, k)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("api request failed",
			zap.String("method", k.method),
			zap.String("path", k.path),
			zap.Error(err),
		)
		return nil, err
	}
	c.log.Debug("api request",
		zap.String("method", k.method),
		zap.String("path", k.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return nil, decodeError(resp.StatusCode, data, k.fallback)
}

// do sends a JSON request and decodes a JSON answer into out.
func (c *Client) do(ctx context.Context, k call, in, out any) error {
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		k.body = bytes.NewReader(data)
		k.size = int64(len(data))
		k.ctype = "application/json"
	}
	resp, err := c.send(ctx, k)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", k.method, k.path, err)
	}
	return nil
}

func decodeError(status int, data []byte, fallback string) *APIError {
	out := &APIError{Status: status}
	var payload struct {
		Error   any             `json:"error"`
		Message any             `json:"message"`
		Fields  json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		out.Message = firstText(payload.Error, payload.Message)
		out.Fields = decodeFields(payload.Fields)
	}
	if out.Message == "" {
		out.Message = fallback
	}
	return out
}

func firstText(values ...any) string {
	for _, v := range values {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// decodeFields accepts {"field": "message"} or {"field": ["message", ...]}.
func decodeFields(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil || len(generic) == 0 {
		return nil
	}
	out := make(map[string]string, len(generic))
	for k, v := range generic {
		switch t := v.(type) {
		case string:
			out[k] = t
		case []any:
			if len(t) > 0 {
				out[k] = fmt.Sprint(t[0])
			}
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}

// isTransportError reports whether err happened before any response arrived.
func isTransportError(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
