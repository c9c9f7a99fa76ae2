package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateSessionEventsTable creates the console login/logout history
func CreateSessionEventsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_session_events",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS console_session_events (
					id UUID PRIMARY KEY,
					session_id VARCHAR(64),
					event_type VARCHAR(32) NOT NULL,
					username VARCHAR(255),
					role VARCHAR(32),
					ip_address VARCHAR(64),
					user_agent TEXT,
					success BOOLEAN DEFAULT FALSE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_console_session_events_username ON console_session_events(username);
				CREATE INDEX IF NOT EXISTS idx_console_session_events_created_at ON console_session_events(created_at);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP TABLE IF EXISTS console_session_events`).Error
		},
	}
}
