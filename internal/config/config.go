package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AurifyAE/Mac-and-Ro/internal/secrets"
)

// Config holds all configuration for the console
type Config struct {
	Upstream    UpstreamConfig
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Session     SessionConfig
	Review      ReviewConfig
	Events      EventsConfig
	Security    SecurityConfig
	FrontendURL string
	Environment string
}

// UpstreamConfig describes the exchange backend the console talks to
type UpstreamConfig struct {
	BaseURL        string
	EventsURL      string
	RequestTimeout time.Duration
	RequestsPerSec float64
	Burst          int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig holds the decision audit database configuration. An empty
// URL disables the audit trail.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MaxIdle  int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// SessionConfig controls where operator sessions live
type SessionConfig struct {
	Store      string // memory or redis
	TTL        time.Duration
	IdleTTL    time.Duration
	SealKey    string
	TOTPSecret string
	CookieName string
	Secure     bool
}

// ReviewConfig tunes the review workflow
type ReviewConfig struct {
	ReversalWindow   time.Duration
	NotificationTTL  time.Duration
	ResyncInterval   time.Duration
	IdleSweepMinutes int
}

// EventsConfig tunes the push channel client
type EventsConfig struct {
	ReconnectDelay time.Duration
	Backoff        string // fixed or exponential
	MaxDelay       time.Duration
	QueueSize      int
}

// LoadConfig creates a new Config instance with values from environment variables.
// It loads .env first, then resolves secrets through Doppler when available.
func LoadConfig() *Config {
	_ = godotenv.Load()
	return load(secrets.NewDopplerClient(getEnv("DOPPLER_PROJECT", "mac-and-ro"), getEnv("DOPPLER_CONFIG", "dev")))
}

func load(src secrets.Source) *Config {
	baseURL := strings.TrimRight(getEnv("API_BASE_URL", getEnv("VITE_API_URL", "http://localhost:5000/api")), "/")

	cfg := &Config{
		Upstream: UpstreamConfig{
			BaseURL:        baseURL,
			EventsURL:      getEnv("EVENTS_URL", EventsURLFor(baseURL)),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
			RequestsPerSec: getEnvFloat("UPSTREAM_RPS", 20),
			Burst:          getEnvInt("UPSTREAM_BURST", 10),
		},
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 0),
		},
		Database: DatabaseConfig{
			URL:      secret(src, "DATABASE_URL", ""),
			MaxConns: getEnvInt("DATABASE_MAX_CONNS", 10),
			MaxIdle:  getEnvInt("DATABASE_MAX_IDLE", 2),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: secret(src, "REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Store:      getEnv("SESSION_STORE", "memory"),
			TTL:        getEnvDuration("SESSION_TTL", 12*time.Hour),
			IdleTTL:    getEnvDuration("SESSION_IDLE_TTL", time.Hour),
			SealKey:    secret(src, "SESSION_SEAL_KEY", ""),
			TOTPSecret: secret(src, "CONSOLE_TOTP_SECRET", ""),
			CookieName: getEnv("SESSION_COOKIE", "console_session"),
		},
		Review: ReviewConfig{
			ReversalWindow:   getEnvDuration("REVERSAL_WINDOW", 5*time.Minute),
			NotificationTTL:  getEnvDuration("NOTIFICATION_TTL", 3*time.Second),
			ResyncInterval:   getEnvDuration("RESYNC_INTERVAL", time.Minute),
			IdleSweepMinutes: getEnvInt("IDLE_SWEEP_MINUTES", 5),
		},
		Events: EventsConfig{
			ReconnectDelay: getEnvDuration("RECONNECT_DELAY", 5*time.Second),
			Backoff:        getEnv("RECONNECT_BACKOFF", "fixed"),
			MaxDelay:       getEnvDuration("RECONNECT_MAX_DELAY", 2*time.Minute),
			QueueSize:      getEnvInt("EVENT_QUEUE_SIZE", 64),
		},
		Security:    DefaultSecurityConfig(),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}
	cfg.Session.Secure = cfg.IsProduction()

	return cfg
}

// IsProduction reports whether the console runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// EventsURLFor derives the push channel endpoint from the API base URL the
// same way the browser console did: /api/admin/events under the origin.
func EventsURLFor(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasSuffix(base, "/api/admin"):
		return base + "/events"
	case strings.HasSuffix(base, "/api"):
		return base + "/admin/events"
	default:
		return base + "/api/admin/events"
	}
}

func secret(src secrets.Source, key, defaultValue string) string {
	if src == nil {
		return getEnv(key, defaultValue)
	}
	value, err := src.Lookup(key)
	if err != nil || value == "" {
		return defaultValue
	}
	return value
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return f
}

// getEnvDuration accepts Go durations ("30s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultValue
}
