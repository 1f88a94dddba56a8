package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/uc4u2/candidate-intake/internal/config"
	"github.com/uc4u2/candidate-intake/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the drafts store selected by cfg and migrates it.
func Open(cfg *config.AppConfig, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	level := resolveLogLevel(cfg)

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Drafts.Driver {
	case config.DriverMySQL:
		db, err = openMySQL(cfg.Drafts.Database.DSNValue(), level)
	default:
		db, err = OpenSQLite(cfg.DraftsPath(), level)
	}
	if err != nil {
		return nil, err
	}
	log.Debug("drafts store ready", zap.String("driver", db.Dialector.Name()))
	return db, nil
}

// OpenSQLite opens (creating if needed) the sqlite file at path and
// migrates it. Tests use it with a path under t.TempDir().
func OpenSQLite(path string, level logger.LogLevel) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create drafts directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

func openMySQL(dsn string, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               dsn,
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve sql db: %w", err)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func resolveLogLevel(cfg *config.AppConfig) logger.LogLevel {
	if cfg != nil && cfg.Level() == "debug" {
		return logger.Info
	}
	return logger.Silent
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.TemplateDraftModel{},
		&models.TemplateDraftHistoryModel{},
	); err != nil {
		return err
	}

	if db.Dialector.Name() == "mysql" {
		if err := db.Exec("ALTER TABLE `template_drafts` MODIFY COLUMN `schema` LONGTEXT NULL").Error; err != nil {
			return err
		}
		if err := db.Exec("ALTER TABLE `template_drafts` MODIFY COLUMN `fields` LONGTEXT NULL").Error; err != nil {
			return err
		}
		if err := db.Exec("ALTER TABLE `template_draft_histories` MODIFY COLUMN `fields` LONGTEXT NULL").Error; err != nil {
			return err
		}
	}
	return nil
}
