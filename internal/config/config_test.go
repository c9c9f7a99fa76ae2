package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubSource map[string]string

func (s stubSource) Lookup(key string) (string, error) {
	if v, ok := s[key]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestEventsURLFor(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:5000/api/admin", "http://localhost:5000/api/admin/events"},
		{"http://localhost:5000/api", "http://localhost:5000/api/admin/events"},
		{"http://localhost:5000/api/", "http://localhost:5000/api/admin/events"},
		{"https://exchange.example.com", "https://exchange.example.com/api/admin/events"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EventsURLFor(tt.base), tt.base)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("VITE_API_URL", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("RECONNECT_DELAY", "")

	cfg := load(stubSource{})

	assert.Equal(t, "http://localhost:5000/api", cfg.Upstream.BaseURL)
	assert.Equal(t, "http://localhost:5000/api/admin/events", cfg.Upstream.EventsURL)
	assert.Equal(t, 30*time.Second, cfg.Upstream.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.Events.ReconnectDelay)
	assert.Equal(t, "fixed", cfg.Events.Backoff)
	assert.Equal(t, 3*time.Second, cfg.Review.NotificationTTL)
	assert.Equal(t, 5*time.Minute, cfg.Review.ReversalWindow)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://exchange.example.com/api/")
	t.Setenv("REQUEST_TIMEOUT", "12")
	t.Setenv("RECONNECT_DELAY", "750ms")
	t.Setenv("ENVIRONMENT", "production")

	cfg := load(stubSource{"SESSION_SEAL_KEY": "k3y", "DATABASE_URL": "postgres://audit"})

	assert.Equal(t, "https://exchange.example.com/api", cfg.Upstream.BaseURL)
	assert.Equal(t, 12*time.Second, cfg.Upstream.RequestTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.Events.ReconnectDelay)
	assert.Equal(t, "k3y", cfg.Session.SealKey)
	assert.Equal(t, "postgres://audit", cfg.Database.URL)
	assert.True(t, cfg.Session.Secure)
}
