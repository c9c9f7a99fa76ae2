package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/middleware"
	"github.com/AurifyAE/Mac-and-Ro/internal/security/audit"
	"github.com/AurifyAE/Mac-and-Ro/internal/services/upstream"
	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

// SessionManager is the part of session.Manager the auth handler uses
type SessionManager interface {
	MFARequired() bool
	Login(ctx context.Context, creds session.Credentials) (session.Session, error)
	Logout(ctx context.Context, id string) error
}

// WorkspaceCloser releases the workspace of a session
type WorkspaceCloser interface {
	Close(sessionID string)
}

// SessionLog records session activity
type SessionLog interface {
	LogSession(ctx context.Context, ev audit.SessionEvent) error
}

// LoginGuard refuses logins after repeated failures
type LoginGuard interface {
	Blocked(username, ip string) (bool, time.Time)
	RecordFailure(username, ip string)
	Reset(username string)
}

// CookieSettings controls the session cookie
type CookieSettings struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// AuthHandler handles console login and logout
type AuthHandler struct {
	sessions   SessionManager
	workspaces WorkspaceCloser
	events     SessionLog
	cookie     CookieSettings
	guard      LoginGuard
	logger     *zap.Logger
}

// NewAuthHandler creates a new auth handler. events may be nil.
func NewAuthHandler(sessions SessionManager, workspaces WorkspaceCloser, events SessionLog, cookie CookieSettings, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		sessions:   sessions,
		workspaces: workspaces,
		events:     events,
		cookie:     cookie,
		logger:     logger,
	}
}

// WithLoginGuard enables lockout after repeated failed logins
func (h *AuthHandler) WithLoginGuard(g LoginGuard) *AuthHandler {
	h.guard = g
	return h
}

// SessionResponse describes the logged-in operator
type SessionResponse struct {
	SessionID string    `json:"sessionId,omitempty"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	UserID    string    `json:"userId"`
	UserType  string    `json:"userType"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

func sessionResponse(s session.Session) SessionResponse {
	return SessionResponse{
		Username:  s.Username,
		Role:      s.Role,
		UserID:    s.UserID,
		UserType:  s.UserType,
		ExpiresAt: s.ExpiresAt,
	}
}

// Options tells the login page whether a one-time code is needed
func (h *AuthHandler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mfaRequired": h.sessions.MFARequired()})
}

// Login exchanges operator credentials for a console session
func (h *AuthHandler) Login(c *gin.Context) {
	var creds session.Credentials
	if err := c.ShouldBindBodyWith(&creds, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	ip := c.ClientIP()
	if h.guard != nil {
		if blocked, until := h.guard.Blocked(creds.Username, ip); blocked {
			retry := int(time.Until(until).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many failed logins, try again later", "retryAfter": retry})
			return
		}
	}

	s, err := h.sessions.Login(c.Request.Context(), creds)
	if err != nil {
		h.record(c, audit.SessionEvent{EventType: string(audit.SessionLoginFailed), Username: creds.Username})
		var re *upstream.RemoteError
		switch {
		case errors.Is(err, session.ErrInvalidOTP):
			h.recordFailure(creds.Username, ip)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid one-time code"})
		case errors.Is(err, session.ErrNotAuthenticated),
			errors.As(err, &re) && re.StatusCode >= 400 && re.StatusCode < 500:
			h.recordFailure(creds.Username, ip)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		default:
			respondError(c, h.logger, err)
		}
		return
	}
	if h.guard != nil {
		h.guard.Reset(creds.Username)
	}

	h.record(c, audit.SessionEvent{
		SessionID: s.ID,
		EventType: string(audit.SessionLogin),
		Username:  s.Username,
		Role:      s.Role,
		Success:   true,
	})

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, s.ID, int(h.cookieMaxAge(s).Seconds()), "/", "", h.cookie.Secure, true)

	resp := sessionResponse(s)
	resp.SessionID = s.ID
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) recordFailure(username, ip string) {
	if h.guard != nil {
		h.guard.RecordFailure(username, ip)
	}
}

func (h *AuthHandler) cookieMaxAge(s session.Session) time.Duration {
	maxAge := h.cookie.MaxAge
	if !s.ExpiresAt.IsZero() {
		if left := time.Until(s.ExpiresAt); maxAge <= 0 || left < maxAge {
			maxAge = left
		}
	}
	return maxAge
}

// Logout ends the current session and its workspace
func (h *AuthHandler) Logout(c *gin.Context) {
	s, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if h.workspaces != nil {
		h.workspaces.Close(s.ID)
	}
	if err := h.sessions.Logout(c.Request.Context(), s.ID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.record(c, audit.SessionEvent{
		SessionID: s.ID,
		EventType: string(audit.SessionLogout),
		Username:  s.Username,
		Role:      s.Role,
		Success:   true,
	})

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the current operator
func (h *AuthHandler) Me(c *gin.Context) {
	s, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, sessionResponse(s))
}

func (h *AuthHandler) record(c *gin.Context, ev audit.SessionEvent) {
	if h.events == nil {
		return
	}
	ev.IPAddress = c.ClientIP()
	ev.UserAgent = c.Request.UserAgent()
	if err := h.events.LogSession(c.Request.Context(), ev); err != nil {
		h.logger.Warn("failed to record session event", zap.String("event", ev.EventType), zap.Error(err))
	}
}
