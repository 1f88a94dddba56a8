package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/uc4u2/candidate-intake/internal/models"
)

func uploadsBase(kind models.UploadContext, token string) (string, bool, error) {
	if kind == models.ContextCandidate {
		if token == "" {
			return "", false, errors.New("intake token is required for candidate uploads")
		}
		return "/api/candidate-form-submissions/" + url.PathEscape(token) + "/uploads", true, nil
	}
	return "/api/questionnaires/uploads", false, nil
}

type fileEnvelope struct {
	File *models.Attachment `json:"file"`
}

// Reserve asks the API for a file record and, when the bytes still have to
// be sent, an upload descriptor.
func (c *Client) Reserve(ctx context.Context, kind models.UploadContext, token string, payload map[string]any) (models.UploadReservation, error) {
	var res models.UploadReservation
	base, candidate, err := uploadsBase(kind, token)
	if err != nil {
		return res, err
	}
	err = c.do(ctx, call{
		method:    http.MethodPost,
		path:      base,
		candidate: candidate,
		fallback:  "Failed to reserve upload",
	}, payload, &res)
	return res, err
}

// Complete finalizes an object-storage upload. It returns nil when the
// answer carries no file record.
func (c *Client) Complete(ctx context.Context, kind models.UploadContext, token string, fileID models.RecordID) (*models.Attachment, error) {
	base, candidate, err := uploadsBase(kind, token)
	if err != nil {
		return nil, err
	}
	var out fileEnvelope
	err = c.do(ctx, call{
		method:    http.MethodPost,
		path:      base + "/" + url.PathEscape(fileID.String()) + "/complete",
		candidate: candidate,
		fallback:  "Failed to finalize upload",
	}, map[string]any{}, &out)
	if err != nil {
		return nil, err
	}
	return out.File, nil
}

// PostLocal sends a multipart upload to target, a path on the API or an
// absolute URL.
func (c *Client) PostLocal(ctx context.Context, kind models.UploadContext, target string, body io.Reader, size int64, contentType string, headers map[string]string) (*models.Attachment, error) {
	resp, err := c.send(ctx, call{
		method:    http.MethodPost,
		path:      target,
		body:      body,
		size:      size,
		ctype:     contentType,
		headers:   headers,
		candidate: kind == models.ContextCandidate,
		fallback:  "Upload failed",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var out fileEnvelope
	if err := json.Unmarshal(data, &out); err != nil {
		// A non-JSON answer still means the bytes were stored.
		c.log.Debug("local upload answered without a file record")
		return nil, nil
	}
	return out.File, nil
}

// DownloadFile fetches a stored file. The body may instead be a JSON link to
// storage; the caller follows it.
func (c *Client) DownloadFile(ctx context.Context, kind models.UploadContext, token string, fileID models.RecordID) (models.FileDownload, error) {
	base, candidate, err := uploadsBase(kind, token)
	if err != nil {
		return models.FileDownload{}, err
	}
	resp, err := c.send(ctx, call{
		method:    http.MethodGet,
		path:      base + "/" + url.PathEscape(fileID.String()) + "/download",
		candidate: candidate,
		headers:   map[string]string{"Accept": "*/*"},
		fallback:  "Failed to download file",
	})
	if err != nil {
		return models.FileDownload{}, err
	}
	return readDownload(resp)
}

// Fetch downloads url without API credentials; storage links are signed.
func (c *Client) Fetch(ctx context.Context, target string) (models.FileDownload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return models.FileDownload{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return models.FileDownload{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return models.FileDownload{}, decodeError(resp.StatusCode, data, "Failed to download file")
	}
	return readDownload(resp)
}

func readDownload(resp *http.Response) (models.FileDownload, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.FileDownload{}, err
	}
	return models.FileDownload{
		Filename:    dispositionFilename(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
