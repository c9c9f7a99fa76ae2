package middleware

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AurifyAE/Mac-and-Ro/internal/config"
)

// SecureHeadersConfig contains configuration for secure headers
type SecureHeadersConfig struct {
	UseHSTS               bool
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	UseCSP        bool
	CSPDirectives map[string]string

	XFrameOptions     string
	ReferrerPolicy    string
	PermissionsPolicy string

	// NoStorePrefixes are paths whose responses must never be cached
	NoStorePrefixes []string
}

// DefaultSecureHeadersConfig returns the default secure headers configuration
func DefaultSecureHeadersConfig(sec config.SecurityConfig, production bool) SecureHeadersConfig {
	return SecureHeadersConfig{
		UseHSTS:               production,
		HSTSMaxAge:            sec.HSTSMaxAge,
		HSTSIncludeSubdomains: sec.HSTSIncludeSubdomains,

		UseCSP:        true,
		CSPDirectives: sec.CSPDirectives,

		XFrameOptions:     "DENY",
		ReferrerPolicy:    "strict-origin-when-cross-origin",
		PermissionsPolicy: "camera=(), microphone=(), geolocation=()",
		NoStorePrefixes:   []string{"/api/auth/", "/api/console/"},
	}
}

// SecureHeadersMiddleware adds security headers to responses
func SecureHeadersMiddleware(cfg SecureHeadersConfig) gin.HandlerFunc {
	hsts := "max-age=" + strconv.FormatInt(int64(cfg.HSTSMaxAge.Seconds()), 10)
	if cfg.HSTSIncludeSubdomains {
		hsts += "; includeSubDomains"
	}
	if cfg.HSTSPreload {
		hsts += "; preload"
	}
	csp := cspValue(cfg.CSPDirectives)

	return func(c *gin.Context) {
		if cfg.UseHSTS {
			c.Header("Strict-Transport-Security", hsts)
		}
		if cfg.UseCSP && csp != "" {
			c.Header("Content-Security-Policy", csp)
		}
		if cfg.XFrameOptions != "" {
			c.Header("X-Frame-Options", cfg.XFrameOptions)
		}
		c.Header("X-Content-Type-Options", "nosniff")
		if cfg.ReferrerPolicy != "" {
			c.Header("Referrer-Policy", cfg.ReferrerPolicy)
		}
		if cfg.PermissionsPolicy != "" {
			c.Header("Permissions-Policy", cfg.PermissionsPolicy)
		}

		for _, prefix := range cfg.NoStorePrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
				c.Header("Pragma", "no-cache")
				break
			}
		}

		c.Next()
	}
}

// cspValue renders directives in a stable order
func cspValue(directives map[string]string) string {
	names := make([]string, 0, len(directives))
	for name := range directives {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+directives[name])
	}
	return strings.Join(parts, "; ")
}
