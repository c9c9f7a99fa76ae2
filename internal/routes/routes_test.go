package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/config"
	"github.com/AurifyAE/Mac-and-Ro/internal/console"
	"github.com/AurifyAE/Mac-and-Ro/internal/handlers"
	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

type staticSessions map[string]session.Session

func (s staticSessions) Current(_ context.Context, id string) (session.Session, error) {
	if v, ok := s[id]; ok {
		return v, nil
	}
	return session.Session{}, session.ErrNotAuthenticated
}

type emptyWorkspaces struct{}

func (emptyWorkspaces) Open(_ context.Context, s session.Session) (*console.Workspace, error) {
	return &console.Workspace{Session: s}, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		FrontendURL: "http://localhost:3000",
		Security:    config.DefaultSecurityConfig(),
		Session:     config.SessionConfig{CookieName: "console_session"},
	}
	logger := zap.NewNop()
	auth := handlers.NewAuthHandler(nil, nil, nil, handlers.CookieSettings{Name: "console_session"}, logger)

	router := gin.New()
	RegisterRoutes(router, Dependencies{
		Sessions:   staticSessions{"admin": {ID: "admin", Role: session.RoleAdmin}},
		Workspaces: emptyWorkspaces{},
		Config:     cfg,
		Logger:     logger,
	}, NewHandlers(auth, nil, time.Second, logger))
	return router
}

func TestRoutes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{name: "health", method: http.MethodGet, path: "/health", status: http.StatusOK},
		{name: "review needs a session", method: http.MethodGet, path: "/api/kyc", status: http.StatusUnauthorized},
		{name: "me needs a session", method: http.MethodGet, path: "/api/auth/me", status: http.StatusUnauthorized},
		{name: "me", method: http.MethodGet, path: "/api/auth/me", token: "admin", status: http.StatusOK},
		{name: "branches are super admin only", method: http.MethodGet, path: "/api/branches", token: "admin", status: http.StatusForbidden},
		{name: "branch admins are super admin only", method: http.MethodDelete, path: "/api/branch-admins/a1", token: "admin", status: http.StatusForbidden},
		{name: "session audit is super admin only", method: http.MethodGet, path: "/api/console/audit/sessions", token: "admin", status: http.StatusForbidden},
		{name: "audit disabled", method: http.MethodGet, path: "/api/console/audit", token: "admin", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
