package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/console"
	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

// Context keys set by the middleware in this file
const (
	ContextSession   = "session"
	ContextWorkspace = "workspace"
)

// SessionResolver turns a session id into the operator's session
type SessionResolver interface {
	Current(ctx context.Context, id string) (session.Session, error)
}

// WorkspaceOpener returns the review workspace of a session
type WorkspaceOpener interface {
	Open(ctx context.Context, s session.Session) (*console.Workspace, error)
}

// AuthMiddleware resolves the console session from the session cookie or a
// bearer header and rejects the request when there is none.
func AuthMiddleware(sessions SessionResolver, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := SessionID(c, cookieName)
		if id == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		s, err := sessions.Current(c.Request.Context(), id)
		if err != nil {
			if !errors.Is(err, session.ErrNotAuthenticated) {
				logger.Error("failed to resolve session", zap.Error(err))
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired, please log in again"})
			c.Abort()
			return
		}

		c.Set(ContextSession, s)
		c.Next()
	}
}

// WorkspaceMiddleware attaches the operator's workspace. It must run after
// AuthMiddleware.
func WorkspaceMiddleware(workspaces WorkspaceOpener, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := CurrentSession(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		w, err := workspaces.Open(c.Request.Context(), s)
		if err != nil {
			logger.Error("failed to open workspace", zap.String("session", s.ID), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Console is unavailable, please retry"})
			c.Abort()
			return
		}

		c.Set(ContextWorkspace, w)
		c.Next()
	}
}

// SuperAdminMiddleware limits a route group to super admins
func SuperAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := CurrentSession(c)
		if !ok || !s.IsSuperAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Super admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentSession returns the session set by AuthMiddleware
func CurrentSession(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(ContextSession)
	if !ok {
		return session.Session{}, false
	}
	s, ok := v.(session.Session)
	return s, ok
}

// CurrentWorkspace returns the workspace set by WorkspaceMiddleware
func CurrentWorkspace(c *gin.Context) (*console.Workspace, bool) {
	v, ok := c.Get(ContextWorkspace)
	if !ok {
		return nil, false
	}
	w, ok := v.(*console.Workspace)
	return w, ok
}

// SessionID reads the session id from the cookie, then from the
// Authorization header
func SessionID(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if id, err := c.Cookie(cookieName); err == nil && id != "" {
			return id
		}
	}
	return extractToken(c)
}

// extractToken gets the token from the Authorization header
func extractToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
