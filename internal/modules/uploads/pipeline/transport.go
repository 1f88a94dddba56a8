package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/uc4u2/candidate-intake/internal/models"
)

// DefaultLocalUploadPath receives local uploads when the descriptor has no URL.
const DefaultLocalUploadPath = "/api/questionnaires/uploads/local"

// API is the part of the intake API the pipeline talks to.
type API interface {
	Reserve(ctx context.Context, kind models.UploadContext, token string, payload map[string]any) (models.UploadReservation, error)
	Complete(ctx context.Context, kind models.UploadContext, token string, fileID models.RecordID) (*models.Attachment, error)
	// PostLocal sends a multipart body to target through the application
	// API, with the same authentication as the other calls of kind.
	PostLocal(ctx context.Context, kind models.UploadContext, target string, body io.Reader, size int64, contentType string, headers map[string]string) (*models.Attachment, error)
	DownloadFile(ctx context.Context, kind models.UploadContext, token string, fileID models.RecordID) (models.FileDownload, error)
	Fetch(ctx context.Context, url string) (models.FileDownload, error)
}

// Transfer is one byte transfer to the target a reservation named.
type Transfer struct {
	Kind       models.UploadContext
	Descriptor models.UploadDescriptor
	File       File
	FileID     models.RecordID
	Progress   func(loaded, total int64)
}

// Transport moves file bytes for one provider.
type Transport interface {
	Provider() models.UploadProvider
	// Send transfers the bytes and returns the file record from the response,
	// or nil when the target does not send one.
	Send(ctx context.Context, t Transfer) (*models.Attachment, error)
	// Commits reports whether the upload must be completed through the API
	// after Send.
	Commits() bool
}

// ObjectStorageTransport uploads straight to object storage with a
// presigned POST form or a presigned PUT.
type ObjectStorageTransport struct {
	Client *http.Client
}

func NewObjectStorageTransport(client *http.Client) *ObjectStorageTransport {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &ObjectStorageTransport{Client: client}
}

func (t *ObjectStorageTransport) Provider() models.UploadProvider { return models.ProviderS3 }

func (t *ObjectStorageTransport) Commits() bool { return true }

func (t *ObjectStorageTransport) Send(ctx context.Context, tr Transfer) (*models.Attachment, error) {
	desc := tr.Descriptor
	if strings.TrimSpace(desc.URL) == "" {
		return nil, &TransferError{Message: "Upload target is missing"}
	}
	method := strings.ToUpper(strings.TrimSpace(desc.Method))
	if method == "" {
		method = http.MethodPost
	}

	var (
		body        io.Reader
		size        int64
		contentType string
	)
	if method == http.MethodPut {
		rc, err := tr.File.Open()
		if err != nil {
			return nil, &TransferError{Err: err}
		}
		defer rc.Close()
		size = tr.File.Size()
		body = newCountingReader(rc, size, tr.Progress)
		contentType = NormalizeContentType(tr.File.Name(), tr.File.ContentType())
	} else {
		buf, ct, err := buildForm(desc.Fields, nil, tr.File)
		if err != nil {
			return nil, &TransferError{Err: err}
		}
		size = int64(buf.Len())
		body = newCountingReader(buf, size, tr.Progress)
		contentType = ct
	}

	req, err := http.NewRequestWithContext(ctx, method, desc.URL, body)
	if err != nil {
		return nil, &TransferError{Err: err}
	}
	req.ContentLength = size
	for k, v := range desc.Headers {
		req.Header.Set(k, v)
	}
	if method != http.MethodPut || req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, &TransferError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, &TransferError{Status: resp.StatusCode, Message: ServerMessage(data)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil, nil
}

// LocalTransport posts the file to the application, which stores it.
type LocalTransport struct {
	API        API
	DefaultURL string
}

func NewLocalTransport(api API) *LocalTransport {
	return &LocalTransport{API: api, DefaultURL: DefaultLocalUploadPath}
}

func (t *LocalTransport) Provider() models.UploadProvider { return models.ProviderLocal }

func (t *LocalTransport) Commits() bool { return false }

func (t *LocalTransport) Send(ctx context.Context, tr Transfer) (*models.Attachment, error) {
	extra := [][2]string{{"file_id", tr.FileID.String()}}
	buf, ct, err := buildForm(tr.Descriptor.Fields, extra, tr.File)
	if err != nil {
		return nil, &TransferError{Err: err}
	}
	target := strings.TrimSpace(tr.Descriptor.URL)
	if target == "" {
		target = t.DefaultURL
	}
	if target == "" {
		target = DefaultLocalUploadPath
	}
	size := int64(buf.Len())
	body := newCountingReader(buf, size, tr.Progress)
	file, err := t.API.PostLocal(ctx, tr.Kind, target, body, size, ct, tr.Descriptor.Headers)
	if err != nil {
		return nil, &TransferError{Err: err}
	}
	return file, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// buildForm writes descriptor fields in key order, then the file part, then
// any trailing parts.
func buildForm(fields map[string]string, trailing [][2]string, f File) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, "", err
		}
	}

	name := f.Name()
	if name == "" {
		name = "upload"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", NormalizeContentType(name, f.ContentType()))
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, "", err
	}
	_, err = io.Copy(part, rc)
	rc.Close()
	if err != nil {
		return nil, "", err
	}

	for _, kv := range trailing {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

// ServerMessage pulls a human message out of an error response: the JSON
// "error" field, then "message", then an S3 XML <Message>.
func ServerMessage(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if s, ok := payload.Error.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
		return strings.TrimSpace(payload.Message)
	}
	var s3Err struct {
		Message string `xml:"Message"`
	}
	if err := xml.Unmarshal(data, &s3Err); err == nil {
		return strings.TrimSpace(s3Err.Message)
	}
	return ""
}
