package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// envPrefixes are tried in order after the plain name, so settings written
// for the web client build are picked up too.
var envPrefixes = []string{"", "REACT_APP_", "VITE_"}

const (
	EnvAllowedMIME     = "QUESTIONNAIRE_ALLOWED_MIME"
	EnvMaxFileMB       = "QUESTIONNAIRE_MAX_FILE_MB"
	EnvMaxFiles        = "QUESTIONNAIRE_MAX_FILES_PER_SUBMISSION"
	EnvScanEnabled     = "QUESTIONNAIRE_AV_SCAN_ENABLED"
	EnvAPIURL          = "INTAKE_API_URL"
	EnvAPIToken        = "INTAKE_API_TOKEN"
	EnvCompanyID       = "INTAKE_COMPANY_ID"
	EnvLogLevel        = "INTAKE_LOG_LEVEL"
	EnvDraftsDriver    = "INTAKE_DRAFTS_DRIVER"
	EnvDraftsDSN       = "INTAKE_DRAFTS_DSN"
	EnvMetricsTextfile = "INTAKE_METRICS_TEXTFILE"
)

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped and variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// lookupPrefixed returns the first non-empty value of name under the plain,
// REACT_APP_ and VITE_ spellings.
func lookupPrefixed(lookup LookupFunc, name string) (string, bool) {
	for _, prefix := range envPrefixes {
		if v, ok := lookup(prefix + name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// ApplyEnv overlays environment settings on cfg. Unparseable numbers and
// flags are ignored and the current value kept.
func ApplyEnv(cfg *AppConfig, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookupPrefixed(lookup, EnvAllowedMIME); ok {
		if list := splitList(v); len(list) > 0 {
			cfg.Uploads.AllowedMIME = list
		}
	}
	if v, ok := lookupPrefixed(lookup, EnvMaxFileMB); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Uploads.MaxFileMB = f
		}
	}
	if v, ok := lookupPrefixed(lookup, EnvMaxFiles); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Uploads.MaxFiles = n
		}
	}
	if v, ok := lookupPrefixed(lookup, EnvScanEnabled); ok {
		if b, ok := parseFlag(v); ok {
			cfg.Uploads.ScanningEnabled = b
		}
	}
	if v, ok := lookupPrefixed(lookup, EnvAPIURL); ok {
		cfg.API.BaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := lookupPrefixed(lookup, EnvAPIToken); ok {
		cfg.API.Token = v
	}
	if v, ok := lookupPrefixed(lookup, EnvCompanyID); ok {
		cfg.API.CompanyID = v
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvDraftsDSN); ok && strings.TrimSpace(v) != "" {
		cfg.Drafts.Database.DSN = strings.TrimSpace(v)
		cfg.Drafts.Driver = DriverMySQL
	}
	if v, ok := lookup(EnvDraftsDriver); ok && strings.TrimSpace(v) != "" {
		cfg.Drafts.Driver = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvMetricsTextfile); ok && strings.TrimSpace(v) != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Textfile = strings.TrimSpace(v)
	}
	return nil
}

func parseFlag(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
