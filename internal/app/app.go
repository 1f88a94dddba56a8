package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uc4u2/candidate-intake/internal/client"
	"github.com/uc4u2/candidate-intake/internal/config"
	"github.com/uc4u2/candidate-intake/internal/database"
	"github.com/uc4u2/candidate-intake/internal/modules/drafts"
	"github.com/uc4u2/candidate-intake/internal/modules/uploads/pipeline"
	"github.com/uc4u2/candidate-intake/internal/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoAPI is returned by commands that need the intake API when no base
// URL is configured.
var ErrNoAPI = errors.New("api.base_url is not configured (set it in config.yml or INTAKE_API_URL)")

// App holds the dependencies shared by the CLI commands. The API client and
// the drafts store are opened on first use.
type App struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	registry *prometheus.Registry
	uploads  *metrics.Uploads

	clientOnce sync.Once
	client     *client.Client
	clientErr  error

	db     *gorm.DB
	drafts *drafts.Service

	uploader *pipeline.Uploader

	// confirm answers destructive prompts; nil means no.
	confirm func(prompt string) bool
	// httpOpts is appended when building the API client.
	httpOpts []client.Option
}

// Option configures New.
type Option func(*App)

// WithOutput sets where command results and progress are written.
func WithOutput(out, errOut io.Writer) Option {
	return func(a *App) {
		if out != nil {
			a.out = out
		}
		if errOut != nil {
			a.errOut = errOut
		}
	}
}

// WithInput sets where "-" file arguments are read from.
func WithInput(in io.Reader) Option {
	return func(a *App) {
		if in != nil {
			a.in = in
		}
	}
}

// WithConfirm sets the answer source for destructive prompts.
func WithConfirm(fn func(prompt string) bool) Option {
	return func(a *App) { a.confirm = fn }
}

// WithClientOptions adds options to the API client.
func WithClientOptions(opts ...client.Option) Option {
	return func(a *App) { a.httpOpts = append(a.httpOpts, opts...) }
}

// New wires the application from cfg.
func New(logger *zap.Logger, cfg *config.AppConfig, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		in:       os.Stdin,
		out:      os.Stdout,
		errOut:   os.Stderr,
		registry: prometheus.NewRegistry(),
		uploads:  metrics.NewUploads(cfg.Metrics.Namespace),
	}
	a.uploads.MustRegister(a.registry)
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.AppConfig { return a.cfg }

// Registry is the registry the upload metrics are registered with.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Client returns the intake API client.
func (a *App) Client() (*client.Client, error) {
	a.clientOnce.Do(func() {
		if a.cfg.API.BaseURL == "" {
			a.clientErr = ErrNoAPI
			return
		}
		opts := []client.Option{
			client.WithToken(a.cfg.API.Token),
			client.WithCompanyID(a.cfg.API.CompanyID),
			client.WithLogger(a.logger),
			client.WithHTTPClient(&http.Client{Timeout: a.cfg.API.Timeout}),
		}
		opts = append(opts, a.httpOpts...)
		a.client, a.clientErr = client.New(a.cfg.API.BaseURL, opts...)
	})
	return a.client, a.clientErr
}

// Drafts returns the drafts service, opening the store on first use.
func (a *App) Drafts() (*drafts.Service, error) {
	if a.drafts != nil {
		return a.drafts, nil
	}
	db, err := database.Open(a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("drafts store: %w", err)
	}
	a.db = db
	a.drafts = drafts.NewService(db, a.logger)
	return a.drafts, nil
}

// Uploader returns an uploader over the API client with the configured
// limits.
func (a *App) Uploader() (*pipeline.Uploader, error) {
	if a.uploader != nil {
		return a.uploader, nil
	}
	c, err := a.Client()
	if err != nil {
		return nil, err
	}
	a.uploader = pipeline.NewUploader(c,
		pipeline.WithLimits(a.limits()),
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.uploads),
		pipeline.WithTransport(&pipeline.LocalTransport{API: c, DefaultURL: a.cfg.Uploads.LocalUploadPath}),
	)
	return a.uploader, nil
}

func (a *App) limits() pipeline.Limits {
	u := a.cfg.Uploads
	return pipeline.Limits{
		AllowedMIME:     append([]string(nil), u.AllowedMIME...),
		MaxFileMB:       u.MaxFileMB,
		MaxFiles:        u.MaxFiles,
		ScanningEnabled: u.ScanningEnabled,
	}
}

// Close writes the metrics textfile, when configured, and releases the
// drafts store.
func (a *App) Close() error {
	var errs []error
	if path := a.cfg.MetricsTextfile(); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			errs = append(errs, err)
		} else if err := metrics.WriteTextfile(a.registry, path); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := database.Close(a.db); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) ask(prompt string) bool {
	if a.confirm == nil {
		return false
	}
	return a.confirm(prompt)
}
