package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/middleware"
	"github.com/AurifyAE/Mac-and-Ro/internal/security/audit"
)

// AuditTrail lists recorded decisions and session events
type AuditTrail interface {
	Decisions(ctx context.Context, q audit.Query) ([]audit.DecisionLog, error)
	SessionEvents(ctx context.Context, username string, limit int) ([]audit.SessionEvent, error)
}

// AuditHandler serves the local audit trail
type AuditHandler struct {
	trail  AuditTrail
	logger *zap.Logger
}

// NewAuditHandler creates a new audit handler. trail is nil when no database
// is configured.
func NewAuditHandler(trail AuditTrail, logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{trail: trail, logger: logger}
}

func (h *AuditHandler) enabled(c *gin.Context) bool {
	if h.trail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audit trail is not enabled"})
		return false
	}
	return true
}

// Decisions lists operator decisions. Branch admins only see their own.
func (h *AuditHandler) Decisions(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	var q audit.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query"})
		return
	}
	if s, ok := middleware.CurrentSession(c); ok && !s.IsSuperAdmin() {
		q.ActorID = s.UserID
	}

	logs, err := h.trail.Decisions(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// Sessions lists login and logout events, super admins only
func (h *AuditHandler) Sessions(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := h.trail.SessionEvents(c.Request.Context(), c.Query("username"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
