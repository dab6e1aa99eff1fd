package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/maintrack/backend/internal/config"
	applog "github.com/maintrack/backend/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotConfigured means no usable connection settings were supplied.
var ErrNotConfigured = errors.New("database not configured")

var DB *gorm.DB

// InitDB opens the configured database and stores it as the package handle.
// It returns ErrNotConfigured when settings are missing so callers can run degraded.
func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	db, err := Open(cfg.Driver, cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	DB = db
	return db, nil
}

// Open connects with the given driver and DSN.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(gormWriter{}, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil && driver != "sqlite" {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Equipment{},
		&Team{},
		&TeamMembership{},
		&MaintenanceRequest{},
		&SystemLog{},
	)
}

// GetDB returns the package handle, nil while running without a database.
func GetDB() *gorm.DB {
	return DB
}

// gormWriter routes GORM's own log lines through the application logger.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	applog.Warn().Str("component", "gorm").Msgf(format, args...)
}
