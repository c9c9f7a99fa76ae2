package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// All returns every migration in order
func All() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		CreateDecisionLogsTable(),
		CreateSessionEventsTable(),
	}
}

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, All())

	if err := m.Migrate(); err != nil {
		log.Error("could not migrate", zap.Error(err))
		return err
	}
	log.Info("migrations ran successfully")
	return nil
}
