package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultAPITimeoutSeconds = 30
	defaultMaxFileMB         = 10
	defaultMaxFiles          = 10
	defaultLocalUploadPath   = "/api/questionnaires/uploads/local"
	defaultLogLevel          = "info"
	defaultMetricsNamespace  = "intake"

	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	defaultDraftsPath = "data/drafts.db"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBName     = "candidate_intake"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
)

// defaultAllowedMIME is the upload allow-list when none is configured.
var defaultAllowedMIME = []string{"application/pdf", "image/jpeg", "image/png", "image/heic"}
