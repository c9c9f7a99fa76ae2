// Package audit keeps the console's local record of operator decisions and
// session activity.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AurifyAE/Mac-and-Ro/internal/review"
)

// Outcome of a recorded decision
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Actor is the operator a decision is attributed to
type Actor struct {
	UserID   string
	Username string
	Role     string
}

// DecisionLog is one operator decision as stored in the database
type DecisionLog struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	EntityKind       string    `gorm:"index" json:"entityKind"`
	EntityID         string    `gorm:"index" json:"entityId"`
	SubjectName      string    `json:"subjectName,omitempty"`
	Operation        string    `gorm:"index" json:"operation"`
	Outcome          string    `gorm:"index" json:"outcome"`
	Reason           string    `json:"reason,omitempty"`
	NumericParameter *string   `json:"numericParameter,omitempty"`
	Error            string    `json:"error,omitempty"`
	ActorID          string    `gorm:"index" json:"actorId"`
	ActorName        string    `json:"actorName"`
	ActorRole        string    `json:"actorRole"`
	CreatedAt        time.Time `gorm:"index" json:"createdAt"`
}

// TableName pins the table created by the migrations
func (DecisionLog) TableName() string { return "decision_logs" }

// Query filters decision logs
type Query struct {
	EntityKind string `form:"kind"`
	EntityID   string `form:"entityId"`
	ActorID    string `form:"actor"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// Logger is the audit logger
type Logger struct {
	db *gorm.DB
}

// NewLogger creates a new audit logger
func NewLogger(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

// NewDecisionLog maps a decision onto its stored form
func NewDecisionLog(d review.Decision, actor Actor) DecisionLog {
	entry := DecisionLog{
		ID:          uuid.New(),
		EntityKind:  string(d.Kind),
		EntityID:    d.EntityID,
		SubjectName: d.SubjectName,
		Operation:   string(d.Operation),
		Outcome:     OutcomeSucceeded,
		Reason:      d.Reason,
		ActorID:     actor.UserID,
		ActorName:   actor.Username,
		ActorRole:   actor.Role,
		CreatedAt:   d.At,
	}
	if d.NumericParameter.Valid {
		v := d.NumericParameter.Decimal.String()
		entry.NumericParameter = &v
	}
	if d.Err != nil {
		entry.Outcome = OutcomeFailed
		entry.Error = d.Err.Error()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return entry
}

// RecordDecision stores one decision
func (l *Logger) RecordDecision(ctx context.Context, d review.Decision, actor Actor) error {
	entry := NewDecisionLog(d, actor)
	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// Recorder binds the logger to one actor so a review controller can use it
func (l *Logger) Recorder(actor Actor) review.Recorder {
	return actorRecorder{logger: l, actor: actor}
}

type actorRecorder struct {
	logger *Logger
	actor  Actor
}

func (r actorRecorder) Record(ctx context.Context, d review.Decision) error {
	return r.logger.RecordDecision(ctx, d, r.actor)
}

// Decisions lists recorded decisions, newest first
func (l *Logger) Decisions(ctx context.Context, q Query) ([]DecisionLog, error) {
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	tx := l.db.WithContext(ctx).Model(&DecisionLog{})
	if q.EntityKind != "" {
		tx = tx.Where("entity_kind = ?", q.EntityKind)
	}
	if q.EntityID != "" {
		tx = tx.Where("entity_id = ?", q.EntityID)
	}
	if q.ActorID != "" {
		tx = tx.Where("actor_id = ?", q.ActorID)
	}

	var logs []DecisionLog
	err := tx.Order("created_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	return logs, nil
}
