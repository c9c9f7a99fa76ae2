// Package database opens the console's own Postgres database, which holds the
// decision audit trail.
package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AurifyAE/Mac-and-Ro/internal/config"
	"github.com/AurifyAE/Mac-and-Ro/internal/database/migrations"
)

// InitDB initializes the database connection with configuration and runs
// the migrations. It returns nil, nil when no database is configured.
func InitDB(dbConfig config.DatabaseConfig, debug bool, log *zap.Logger) (*gorm.DB, error) {
	if dbConfig.URL == "" {
		log.Info("DATABASE_URL not set, decision audit trail disabled")
		return nil, nil
	}

	level := logger.Warn
	if debug {
		level = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(level),
	}

	db, err := gorm.Open(postgres.Open(dbConfig.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdle)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrations.RunMigrations(db, log); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the underlying connection pool
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
