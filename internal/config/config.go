package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at configPath, applies it over the defaults and
// then overlays the environment.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg, err := parse(content, path)
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		cfg.baseDir = filepath.Dir(abs)
	}
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file at the default path
// yields the defaults plus the environment.
func LoadOrDefault(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}
	cfg, err := Load(path)
	if err == nil || path != DefaultConfigPath || !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}

	def := defaultAppConfig()
	if err := ApplyEnv(&def, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func parse(content []byte, path string) (*AppConfig, error) {
	cfg := defaultAppConfig()
	raw := rawAppConfig{}
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	if err := applyRawAppConfig(&cfg, raw); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		API: APIConfig{
			Timeout: defaultAPITimeoutSeconds * time.Second,
		},
		Uploads: UploadsConfig{
			AllowedMIME:     append([]string(nil), defaultAllowedMIME...),
			MaxFileMB:       defaultMaxFileMB,
			MaxFiles:        defaultMaxFiles,
			ScanningEnabled: true,
			LocalUploadPath: defaultLocalUploadPath,
		},
		Drafts: DraftsConfig{
			Driver: DriverSQLite,
			Path:   defaultDraftsPath,
			Database: normalizeDatabaseConfig(DatabaseRuntimeConfig{
				ParseTime: true,
			}),
		},
		LogLevel: defaultLogLevel,
		Metrics: MetricsConfig{
			Namespace: defaultMetricsNamespace,
		},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if err := applyRawAPIConfig(&cfg.API, raw); err != nil {
		return err
	}
	cfg.Uploads = applyRawUploadsConfig(cfg.Uploads, raw.Uploads)
	cfg.Drafts = applyRawDraftsConfig(cfg.Drafts, raw)

	if v := strings.TrimSpace(raw.Level); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogsDir); v != "" {
		cfg.Paths.Logs = v
	}

	if v := strings.TrimSpace(raw.Metrics.Namespace); v != "" {
		cfg.Metrics.Namespace = v
	}
	// A textfile turns metrics on unless enabled is set explicitly.
	if v := strings.TrimSpace(raw.Metrics.Textfile); v != "" {
		cfg.Metrics.Textfile = v
		cfg.Metrics.Enabled = true
	}
	if raw.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *raw.Metrics.Enabled
	}
	return nil
}

func applyRawAPIConfig(api *APIConfig, raw rawAppConfig) error {
	if v := strings.TrimSpace(raw.APIURL); v != "" {
		api.BaseURL = v
	}
	if v := strings.TrimSpace(raw.API.URL); v != "" {
		api.BaseURL = v
	}
	if v := strings.TrimSpace(raw.API.BaseURL); v != "" {
		api.BaseURL = v
	}
	if v := strings.TrimSpace(raw.APIToken); v != "" {
		api.Token = v
	}
	if v := strings.TrimSpace(raw.API.Token); v != "" {
		api.Token = v
	}
	if v := strings.TrimSpace(raw.CompanyID); v != "" {
		api.CompanyID = v
	}
	if v := strings.TrimSpace(raw.API.CompanyID); v != "" {
		api.CompanyID = v
	}
	if v := strings.TrimSpace(raw.API.Timeout); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("invalid api.timeout %q: %w", v, err)
		}
		api.Timeout = d
	}
	api.BaseURL = strings.TrimRight(api.BaseURL, "/")
	return nil
}

// parseTimeout accepts a Go duration or a bare number of seconds.
func parseTimeout(raw string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}

func applyRawUploadsConfig(current UploadsConfig, raw rawUploadsConfig) UploadsConfig {
	if len(raw.AllowedTypes) > 0 {
		current.AllowedMIME = raw.AllowedTypes
	}
	if len(raw.AllowedMIME) > 0 {
		current.AllowedMIME = raw.AllowedMIME
	}
	if raw.MaxFileMB != nil {
		current.MaxFileMB = *raw.MaxFileMB
	}
	if raw.MaxFilesPerSubmission != nil {
		current.MaxFiles = *raw.MaxFilesPerSubmission
	}
	if raw.MaxFiles != nil {
		current.MaxFiles = *raw.MaxFiles
	}
	if raw.AVScanEnabled != nil {
		current.ScanningEnabled = *raw.AVScanEnabled
	}
	if raw.ScanningEnabled != nil {
		current.ScanningEnabled = *raw.ScanningEnabled
	}
	if v := strings.TrimSpace(raw.LocalUploadPath); v != "" {
		current.LocalUploadPath = v
	}
	return current
}

func applyRawDraftsConfig(current DraftsConfig, raw rawAppConfig) DraftsConfig {
	d := raw.Drafts
	if v := strings.ToLower(strings.TrimSpace(d.Driver)); v != "" {
		current.Driver = v
	}
	if v := strings.TrimSpace(d.Path); v != "" {
		current.Path = v
	}

	db := current.Database
	if v := strings.TrimSpace(raw.DatabaseDSN); v != "" {
		db.DSN = v
	}
	if v := strings.TrimSpace(d.DSN); v != "" {
		db.DSN = v
	}
	if v := strings.TrimSpace(d.URL); v != "" {
		db.URL = v
	}
	if v := strings.TrimSpace(d.Host); v != "" {
		db.Host = v
	}
	if d.Port != 0 {
		db.Port = d.Port
	}
	if v := strings.TrimSpace(d.Username); v != "" {
		db.User = v
	}
	if v := strings.TrimSpace(d.User); v != "" {
		db.User = v
	}
	if d.Password != "" {
		db.Password = d.Password
	}
	if v := strings.TrimSpace(d.DBName); v != "" {
		db.Name = v
	}
	if v := strings.TrimSpace(d.Name); v != "" {
		db.Name = v
	}
	if v := strings.TrimSpace(d.Charset); v != "" {
		db.Charset = v
	}
	if d.ParseTime != nil {
		db.ParseTime = *d.ParseTime
	}
	if v := strings.TrimSpace(d.Loc); v != "" {
		db.Loc = v
	}
	if len(d.Params) > 0 {
		db.Params = copyStringMap(d.Params)
	}
	current.Database = normalizeDatabaseConfig(db)

	// A DSN on its own implies the shared store.
	if strings.TrimSpace(d.Driver) == "" && (db.DSN != "" || db.URL != "") {
		current.Driver = DriverMySQL
	}
	return current
}

// Validate checks ranges and enumerations.
func (c *AppConfig) Validate() error {
	if c.Uploads.MaxFileMB <= 0 {
		return fmt.Errorf("invalid uploads.max_file_mb %v, expected > 0", c.Uploads.MaxFileMB)
	}
	if c.Uploads.MaxFiles < 0 {
		return fmt.Errorf("invalid uploads.max_files %d, expected >= 0", c.Uploads.MaxFiles)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("invalid api.timeout %s, expected > 0", c.API.Timeout)
	}
	switch c.Drafts.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		return fmt.Errorf("invalid drafts.driver %q, expected %s or %s", c.Drafts.Driver, DriverSQLite, DriverMySQL)
	}
	if c.Drafts.Database.Port < 1 || c.Drafts.Database.Port > 65535 {
		return fmt.Errorf("invalid drafts.port %d, expected 1-65535", c.Drafts.Database.Port)
	}
	if _, err := normalizeLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// LogDir is the directory for log files, or "" when logging to stderr only.
func (c *AppConfig) LogDir() string {
	if c == nil || strings.TrimSpace(c.Paths.Logs) == "" {
		return ""
	}
	return c.resolve(c.Paths.Logs, "logs")
}

// DraftsPath is the sqlite file holding drafts.
func (c *AppConfig) DraftsPath() string {
	if c == nil {
		return ResolveRuntimePath("", defaultDraftsPath)
	}
	return c.resolve(c.Drafts.Path, defaultDraftsPath)
}

// MetricsTextfile is where metrics are written, or "".
func (c *AppConfig) MetricsTextfile() string {
	if c == nil || !c.Metrics.Enabled || strings.TrimSpace(c.Metrics.Textfile) == "" {
		return ""
	}
	return c.resolve(c.Metrics.Textfile, "")
}

func (c *AppConfig) resolve(raw, fallback string) string {
	if c.baseDir != "" {
		return resolveAgainst(c.baseDir, raw, fallback)
	}
	return ResolveRuntimePath(raw, fallback)
}
