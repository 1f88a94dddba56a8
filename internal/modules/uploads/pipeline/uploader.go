package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/modules/uploads/attachments"
	"github.com/uc4u2/candidate-intake/internal/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Request is one file to attach to one field of a submission.
type Request struct {
	Context      models.UploadContext
	SubmissionID models.RecordID
	FieldKey     string
	File         File
	IntakeToken  string
	Extra        map[string]any

	// Limits replaces the uploader's limits for this request.
	Limits *Limits
	// Attachments, when set, is checked against the file count limit and
	// receives the stored file on success.
	Attachments *attachments.Aggregate

	OnProgress func(Progress)
	OnError    func(err error, stage Stage)
	OnComplete func(models.Attachment)
}

// Uploader runs the reserve, transfer and commit steps of an upload.
type Uploader struct {
	api        API
	limits     Limits
	tracker    *Tracker
	transports map[models.UploadProvider]Transport
	metrics    *metrics.Uploads
	log        *zap.Logger
}

type Option func(*Uploader)

func WithLimits(l Limits) Option {
	return func(u *Uploader) { u.limits = l }
}

func WithLogger(log *zap.Logger) Option {
	return func(u *Uploader) {
		if log != nil {
			u.log = log
		}
	}
}

func WithMetrics(m *metrics.Uploads) Option {
	return func(u *Uploader) { u.metrics = m }
}

// WithTracker shares a tracker between uploaders.
func WithTracker(t *Tracker) Option {
	return func(u *Uploader) {
		if t != nil {
			u.tracker = t
		}
	}
}

// WithTransport registers t for its provider, replacing the default.
func WithTransport(t Transport) Option {
	return func(u *Uploader) { u.transports[t.Provider()] = t }
}

// WithHTTPClient sets the client used for direct object-storage uploads.
func WithHTTPClient(c *http.Client) Option {
	return WithTransport(NewObjectStorageTransport(c))
}

// NewUploader builds an uploader over api with the default limits and both
// built-in transports.
func NewUploader(api API, opts ...Option) *Uploader {
	u := &Uploader{
		api:     api,
		limits:  DefaultLimits(),
		tracker: NewTracker(),
		transports: map[models.UploadProvider]Transport{
			models.ProviderLocal: NewLocalTransport(api),
			models.ProviderS3:    NewObjectStorageTransport(nil),
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Uploader) Tracker() *Tracker { return u.tracker }

func (u *Uploader) Limits() Limits { return u.limits }

// transport picks the transport for a descriptor. Providers other than s3
// go through the application.
func (u *Uploader) transport(desc *models.UploadDescriptor) Transport {
	if t, ok := u.transports[desc.NormalizedProvider()]; ok {
		return t
	}
	return u.transports[models.ProviderLocal]
}

// Upload validates, reserves, transfers and, for object storage, commits one
// file. Every failure is a *StageError. When the attempt is abandoned while
// running, its callbacks stop firing and the stored file is returned with an
// error wrapping ErrSuperseded.
func (u *Uploader) Upload(ctx context.Context, req Request) (models.Attachment, error) {
	kind := req.Context
	if kind == "" {
		kind = models.ContextRecruiter
	}
	limits := u.limits
	if req.Limits != nil {
		limits = *req.Limits
	}
	key := req.FieldKey
	log := u.log.With(zap.String("field_key", key), zap.String("context", string(kind)))
	u.metrics.Started(string(kind))

	var attempt *Attempt
	current := func() bool { return attempt == nil || attempt.Current() }
	fail := func(stage Stage, provider models.UploadProvider, err error) error {
		se := stageErr(stage, key, err)
		u.metrics.Failed(string(stage), string(provider))
		log.Warn("upload failed", zap.String("stage", string(stage)), zap.Error(err))
		if req.OnError != nil && current() {
			emit(log, "OnError", func() { req.OnError(se, stage) })
		}
		return se
	}
	progress := func(p Progress) {
		if req.OnProgress != nil && current() {
			emit(log, "OnProgress", func() { req.OnProgress(p) })
		}
	}

	if err := Validate(req.File, limits); err != nil {
		return models.Attachment{}, fail(StageValidation, "", err)
	}
	if strings.TrimSpace(key) == "" {
		return models.Attachment{}, fail(StageValidation, "", &ValidationError{Reason: "Field key is required"})
	}
	if req.Attachments != nil {
		if err := req.Attachments.CanAcceptNew(key, limits.MaxFiles); err != nil {
			return models.Attachment{}, fail(StageValidation, "", &ValidationError{Reason: err.Error(), Err: err})
		}
	}

	a, err := u.tracker.Begin(key)
	if err != nil {
		return models.Attachment{}, fail(StageValidation, "", err)
	}
	attempt = a
	defer attempt.End()
	log = log.With(zap.Uint64("attempt", attempt.Token))

	size := req.File.Size()
	started := time.Now()

	res, err := u.api.Reserve(ctx, kind, req.IntakeToken, reservePayload(req))
	if err != nil {
		return models.Attachment{}, fail(StageReserve, "", &ReservationError{Err: err})
	}
	file := res.File
	progress(Progress{Stage: StageReserve, Loaded: 0, Total: size, Percent: 0})

	if res.Upload == nil {
		return u.finish(req, attempt, log, file, "", size, started)
	}

	tr := u.transport(res.Upload)
	provider := tr.Provider()
	log.Debug("transferring", zap.String("provider", string(provider)), zap.Int64("size", size))

	sent, err := tr.Send(ctx, Transfer{
		Kind:       kind,
		Descriptor: *res.Upload,
		File:       req.File,
		FileID:     file.ID,
		Progress: func(loaded, total int64) {
			progress(uploadProgress(loaded, total, size))
		},
	})
	if err != nil {
		return models.Attachment{}, fail(StageUpload, provider, err)
	}

	final := file
	if tr.Commits() {
		committed, err := u.api.Complete(ctx, kind, req.IntakeToken, file.ID)
		if err != nil {
			return models.Attachment{}, fail(StageCommit, provider, &CommitError{Err: err})
		}
		if committed != nil && !committed.ID.IsZero() {
			final = *committed
		}
	} else if sent != nil && !sent.ID.IsZero() {
		final = *sent
	}
	return u.finish(req, attempt, log, final, provider, size, started)
}

func (u *Uploader) finish(req Request, attempt *Attempt, log *zap.Logger, file models.Attachment, provider models.UploadProvider, size int64, started time.Time) (models.Attachment, error) {
	if file.FieldKey == "" {
		file.FieldKey = req.FieldKey
	}
	if !attempt.Current() {
		log.Info("dropping result of superseded upload")
		return file, stageErr(StageComplete, req.FieldKey, ErrSuperseded)
	}
	if req.OnProgress != nil {
		p := Progress{Stage: StageComplete, Loaded: size, Total: size, Percent: 100}
		emit(log, "OnProgress", func() { req.OnProgress(p) })
	}
	if req.Attachments != nil {
		req.Attachments.Put(file)
	}
	u.metrics.Completed(string(provider), size, time.Since(started))
	log.Info("upload complete", zap.String("file_id", file.ID.String()), zap.String("provider", string(provider)))
	if req.OnComplete != nil {
		emit(log, "OnComplete", func() { req.OnComplete(file) })
	}
	return file, nil
}

func reservePayload(req Request) map[string]any {
	name := req.File.Name()
	if name == "" {
		name = "upload"
	}
	payload := map[string]any{
		"field_key":    req.FieldKey,
		"filename":     name,
		"content_type": NormalizeContentType(name, req.File.ContentType()),
		"size":         req.File.Size(),
	}
	if !req.SubmissionID.IsZero() {
		payload["submission_id"] = req.SubmissionID
	}
	for k, v := range req.Extra {
		payload[k] = v
	}
	return payload
}

// UploadAll runs reqs concurrently and returns the stored files in request
// order. Two requests for the same field key are rejected before anything
// is sent; otherwise the first failure cancels the rest.
func (u *Uploader) UploadAll(ctx context.Context, reqs []Request) ([]models.Attachment, error) {
	seen := make(map[string]struct{}, len(reqs))
	for _, r := range reqs {
		if _, dup := seen[r.FieldKey]; dup {
			return nil, stageErr(StageValidation, r.FieldKey, ErrDuplicateField)
		}
		seen[r.FieldKey] = struct{}{}
	}

	out := make([]models.Attachment, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range reqs {
		i := i
		g.Go(func() error {
			att, err := u.Upload(gctx, reqs[i])
			if err != nil {
				return err
			}
			out[i] = att
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

// Download fetches a stored file. When the API answers with a JSON pointer
// to storage ({"download": {"url": ...}}), the file is fetched from there.
// Downloads are allowed whatever the scan status.
func (u *Uploader) Download(ctx context.Context, kind models.UploadContext, token string, fileID models.RecordID) (models.FileDownload, error) {
	if kind == "" {
		kind = models.ContextRecruiter
	}
	d, err := u.api.DownloadFile(ctx, kind, token, fileID)
	if err != nil {
		return models.FileDownload{}, err
	}
	if strings.Contains(strings.ToLower(d.ContentType), "application/json") {
		target, err := downloadURL(d.Body)
		if err != nil {
			return models.FileDownload{}, err
		}
		if target != "" {
			u.log.Debug("following download link", zap.String("file_id", fileID.String()))
			fetched, err := u.api.Fetch(ctx, target)
			if err != nil {
				return models.FileDownload{}, err
			}
			fetched.URL = target
			if fetched.Filename == "" {
				fetched.Filename = d.Filename
			}
			d = fetched
		}
	}
	if d.Filename == "" {
		d.Filename = "questionnaire-" + fileID.String()
	}
	return d, nil
}

var errNoDownloadLink = errors.New("download response did not include a file or link")

func downloadURL(body []byte) (string, error) {
	var payload struct {
		Download *struct {
			URL string `json:"url"`
		} `json:"download"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if payload.Download == nil || strings.TrimSpace(payload.Download.URL) == "" {
		return "", errNoDownloadLink
	}
	return strings.TrimSpace(payload.Download.URL), nil
}
