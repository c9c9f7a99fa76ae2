package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateDecisionLogsTable creates the table operator decisions are recorded in
func CreateDecisionLogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_decision_logs",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS decision_logs (
					id UUID PRIMARY KEY,
					entity_kind VARCHAR(32) NOT NULL,
					entity_id VARCHAR(64) NOT NULL,
					subject_name VARCHAR(255),
					operation VARCHAR(32) NOT NULL,
					outcome VARCHAR(16) NOT NULL,
					reason TEXT,
					numeric_parameter VARCHAR(64),
					error TEXT,
					actor_id VARCHAR(64),
					actor_name VARCHAR(255),
					actor_role VARCHAR(32),
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_decision_logs_entity ON decision_logs(entity_kind, entity_id);
				CREATE INDEX IF NOT EXISTS idx_decision_logs_actor_id ON decision_logs(actor_id);
				CREATE INDEX IF NOT EXISTS idx_decision_logs_created_at ON decision_logs(created_at);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP TABLE IF EXISTS decision_logs`).Error
		},
	}
}
