package config

import (
	"time"
)

// SecurityConfig holds all security-related configuration
type SecurityConfig struct {
	// Rate limiting
	IPRateLimit   float64
	IPRateBurst   int
	AuthRateLimit float64 // per minute
	AuthRateBurst int

	// Secure headers
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
	CSPDirectives         map[string]string

	// Console login lockout
	LoginMaxAttempts      int
	LoginMaxAttemptsPerIP int
	LoginWindow           time.Duration
	LoginLockout          time.Duration

	// MFA settings
	MFAIssuer string
	MFAPeriod uint
	MFASkew   uint
}

// DefaultSecurityConfig returns the default security configuration
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		// 20 requests per second per IP, 5 login attempts per minute
		IPRateLimit:   getEnvFloat("IP_RATE_LIMIT", 20),
		IPRateBurst:   getEnvInt("IP_RATE_BURST", 40),
		AuthRateLimit: getEnvFloat("AUTH_RATE_LIMIT", 5),
		AuthRateBurst: getEnvInt("AUTH_RATE_BURST", 3),

		HSTSMaxAge:            365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
		CSPDirectives: map[string]string{
			"default-src": "'self'",
			"connect-src": "'self'",
			"img-src":     "'self' data: https:",
			"object-src":  "'none'",
			"frame-src":   "'none'",
		},

		LoginMaxAttempts:      getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginMaxAttemptsPerIP: getEnvInt("LOGIN_MAX_ATTEMPTS_PER_IP", 20),
		LoginWindow:           getEnvDuration("LOGIN_WINDOW", 15*time.Minute),
		LoginLockout:          getEnvDuration("LOGIN_LOCKOUT", 15*time.Minute),

		MFAIssuer: getEnv("MFA_ISSUER", "Mac-and-Ro Console"),
		MFAPeriod: 30,
		MFASkew:   1,
	}
}
