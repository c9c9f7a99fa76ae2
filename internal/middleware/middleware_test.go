package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSessions map[string]session.Session

func (f fakeSessions) Current(_ context.Context, id string) (session.Session, error) {
	s, ok := f[id]
	if !ok {
		return session.Session{}, session.ErrNotAuthenticated
	}
	return s, nil
}

func newAuthRouter(sessions SessionResolver) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(sessions, "console_session", zap.NewNop()))
	r.GET("/me", func(c *gin.Context) {
		s, _ := CurrentSession(c)
		c.JSON(http.StatusOK, gin.H{"username": s.Username})
	})
	r.GET("/branches", SuperAdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	sessions := fakeSessions{
		"s-admin": {ID: "s-admin", Username: "deira", Role: session.RoleAdmin},
		"s-super": {ID: "s-super", Username: "root", Role: session.RoleSuperAdmin},
	}
	r := newAuthRouter(sessions)

	tests := []struct {
		name   string
		path   string
		cookie string
		header string
		status int
	}{
		{name: "no credentials", path: "/me", status: http.StatusUnauthorized},
		{name: "unknown session", path: "/me", cookie: "nope", status: http.StatusUnauthorized},
		{name: "cookie", path: "/me", cookie: "s-admin", status: http.StatusOK},
		{name: "bearer header", path: "/me", header: "Bearer s-admin", status: http.StatusOK},
		{name: "admin on super admin route", path: "/branches", cookie: "s-admin", status: http.StatusForbidden},
		{name: "super admin route", path: "/branches", cookie: "s-super", status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "console_session", Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestWorkspaceMiddlewareRequiresSession(t *testing.T) {
	r := gin.New()
	r.GET("/kyc", WorkspaceMiddleware(nil, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/kyc", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSecureHeaders(t *testing.T) {
	cfg := SecureHeadersConfig{
		UseHSTS:               true,
		HSTSMaxAge:            365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
		UseCSP:                true,
		CSPDirectives:         map[string]string{"object-src": "'none'", "default-src": "'self'"},
		XFrameOptions:         "DENY",
		NoStorePrefixes:       []string{"/api/auth/"},
	}
	r := gin.New()
	r.Use(SecureHeadersMiddleware(cfg))
	r.GET("/*path", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "default-src 'self'; object-src 'none'", w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/branches", nil))
	assert.Empty(t, w.Header().Get("Cache-Control"))
}

func TestIPRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 60, 2, 10)
	defer rl.Stop()

	r := gin.New()
	r.Use(rl.IPRateLimiterMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestAuthRateLimiterKeepsBody(t *testing.T) {
	rl := NewRateLimiter(100, 0.001, 100, 1)
	defer rl.Stop()

	r := gin.New()
	r.POST("/login", rl.AuthRateLimiterMiddleware(), func(c *gin.Context) {
		var creds session.Credentials
		require.NoError(t, c.ShouldBindBodyWith(&creds, binding.JSON))
		c.JSON(http.StatusOK, gin.H{"username": creds.Username})
	})

	post := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"deira","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	first := post()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "deira")
	assert.Equal(t, http.StatusTooManyRequests, post().Code)
}
