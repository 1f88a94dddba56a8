package config

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime configuration loaded from YAML and the environment.
type AppConfig struct {
	API      APIConfig          `yaml:"api"`
	Uploads  UploadsConfig      `yaml:"uploads"`
	Drafts   DraftsConfig       `yaml:"drafts"`
	LogLevel string             `yaml:"log_level"`
	Paths    RuntimePathsConfig `yaml:"paths"`
	Metrics  MetricsConfig      `yaml:"metrics"`

	// baseDir is the directory of the loaded config file. Relative runtime
	// paths resolve against it.
	baseDir string
}

// APIConfig points the client at the intake API.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	CompanyID string        `yaml:"company_id"`
	Timeout   time.Duration `yaml:"timeout"`
}

// UploadsConfig bounds attachment uploads. Limits a server sends with a
// submission take precedence.
type UploadsConfig struct {
	AllowedMIME     []string `yaml:"allowed_mime"`
	MaxFileMB       float64  `yaml:"max_file_mb"`
	MaxFiles        int      `yaml:"max_files"`
	ScanningEnabled bool     `yaml:"scanning_enabled"`
	LocalUploadPath string   `yaml:"local_upload_path"`
}

// DraftsConfig selects where template drafts are kept between edits.
type DraftsConfig struct {
	Driver   string                `yaml:"driver"`
	Path     string                `yaml:"path"`
	Database DatabaseRuntimeConfig `yaml:"database"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	// Textfile, when set, receives the metrics in text exposition format
	// after each command.
	Textfile string `yaml:"textfile"`
}

type rawAppConfig struct {
	API         rawAPIConfig     `yaml:"api"`
	APIURL      string           `yaml:"api_url"`
	APIToken    string           `yaml:"api_token"`
	CompanyID   string           `yaml:"company_id"`
	Uploads     rawUploadsConfig `yaml:"uploads"`
	Drafts      rawDraftsConfig  `yaml:"drafts"`
	LogLevel    string           `yaml:"log_level"`
	Level       string           `yaml:"level"`
	Paths       rawPathsConfig   `yaml:"paths"`
	LogDir      string           `yaml:"log_dir"`
	LogsDir     string           `yaml:"logs_dir"`
	Metrics     rawMetricsConfig `yaml:"metrics"`
	DatabaseDSN string           `yaml:"database_dsn"`
}

type rawAPIConfig struct {
	BaseURL   string `yaml:"base_url"`
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	CompanyID string `yaml:"company_id"`
	Timeout   string `yaml:"timeout"`
}

type rawUploadsConfig struct {
	AllowedMIME           stringList `yaml:"allowed_mime"`
	AllowedTypes          stringList `yaml:"allowed_types"`
	MaxFileMB             *float64   `yaml:"max_file_mb"`
	MaxFiles              *int       `yaml:"max_files"`
	MaxFilesPerSubmission *int       `yaml:"max_files_per_submission"`
	ScanningEnabled       *bool      `yaml:"scanning_enabled"`
	AVScanEnabled         *bool      `yaml:"av_scan_enabled"`
	LocalUploadPath       string     `yaml:"local_upload_path"`
}

type rawDraftsConfig struct {
	Driver    string            `yaml:"driver"`
	Path      string            `yaml:"path"`
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type rawPathsConfig struct {
	Logs string `yaml:"logs"`
}

type rawMetricsConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Textfile  string `yaml:"textfile"`
}

// stringList decodes either a YAML sequence or a comma separated scalar.
type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = splitList(value.Value)
		return nil
	default:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = normalizeList(items)
		return nil
	}
}

func splitList(raw string) []string {
	return normalizeList(strings.Split(raw, ","))
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := strings.ToLower(strings.TrimSpace(item)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
