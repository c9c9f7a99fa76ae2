package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionEventType is what happened to an operator session
type SessionEventType string

const (
	SessionLogin       SessionEventType = "login"
	SessionLoginFailed SessionEventType = "login_failed"
	SessionLogout      SessionEventType = "logout"
	SessionExpired     SessionEventType = "expired"
)

// SessionEvent is a login, logout or expiry of a console session
type SessionEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	SessionID string    `gorm:"index" json:"sessionId,omitempty"`
	EventType string    `gorm:"index" json:"eventType"`
	Username  string    `gorm:"index" json:"username"`
	Role      string    `json:"role,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// TableName pins the table created by the migrations
func (SessionEvent) TableName() string { return "console_session_events" }

// LogSession records a session event
func (l *Logger) LogSession(ctx context.Context, ev SessionEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	if err := l.db.WithContext(ctx).Create(&ev).Error; err != nil {
		return fmt.Errorf("failed to record session event: %w", err)
	}
	return nil
}

// SessionEvents gets the most recent session events for a username, or for
// everyone when username is empty.
func (l *Logger) SessionEvents(ctx context.Context, username string, limit int) ([]SessionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	tx := l.db.WithContext(ctx)
	if username != "" {
		tx = tx.Where("username = ?", username)
	}

	var events []SessionEvent
	if err := tx.Order("created_at DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list session events: %w", err)
	}
	return events, nil
}
