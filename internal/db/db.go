package db

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens a GORM database connection for the given URL. The scheme picks
// the driver: "postgres://..." or "sqlite://<path>".
func Init(databaseURL string, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(databaseURL, "postgres://"):
		dialector = postgres.Open(strings.TrimPrefix(databaseURL, "postgres://"))
		log.Info("Connecting to PostgreSQL database")
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dsn := strings.TrimPrefix(databaseURL, "sqlite://")
		dialector = sqlite.Open(dsn)
		log.Info("Connecting to SQLite database", "path", dsn)
	default:
		return nil, fmt.Errorf("invalid database URL %q: must start with postgres:// or sqlite://", databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Be quiet by default
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Info("Database connection established")
	return db, nil
}
