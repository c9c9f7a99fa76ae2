package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotificationHandler streams toasts to the browser
type NotificationHandler struct {
	keepAlive time.Duration
	logger    *zap.Logger
}

// NewNotificationHandler creates a handler that pings idle streams every keepAlive
func NewNotificationHandler(keepAlive time.Duration, logger *zap.Logger) *NotificationHandler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{keepAlive: keepAlive, logger: logger}
}

// Active lists the toasts that have not expired yet
func (h *NotificationHandler) Active(c *gin.Context) {
	w, ok := workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, w.Hub.Active())
}

// Dismiss closes a toast early
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	w, ok := workspace(c)
	if !ok {
		return
	}
	if !w.Hub.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream sends active toasts, then every new one, as server-sent events
func (h *NotificationHandler) Stream(c *gin.Context) {
	w, ok := workspace(c)
	if !ok {
		return
	}

	ch, cancel := w.Hub.Subscribe(32)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	for _, n := range w.Hub.Active() {
		c.SSEvent("notification", n)
	}
	c.SSEvent("status", gin.H{"live": w.Connected()})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case n, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", n)
			return true
		case <-ticker.C:
			c.SSEvent("status", gin.H{"live": w.Connected()})
			return true
		}
	})
	h.logger.Debug("notification stream closed", zap.String("session", w.Session.ID))
}
