// Package security holds the console's own login protections. Tokens and
// passwords are owned by the exchange backend.
package security

import (
	"strings"
	"sync"
	"time"
)

// LoginGuardConfig holds the lockout thresholds for console logins
type LoginGuardConfig struct {
	// Maximum failed logins per username within Window
	MaxPerUsername int
	// Maximum failed logins per client IP within Window
	MaxPerIP int
	Window   time.Duration
	// Lockout counts from the last failed attempt
	Lockout time.Duration
}

// DefaultLoginGuardConfig returns the default thresholds
func DefaultLoginGuardConfig() LoginGuardConfig {
	return LoginGuardConfig{
		MaxPerUsername: 5,
		MaxPerIP:       20,
		Window:         15 * time.Minute,
		Lockout:        15 * time.Minute,
	}
}

// LoginGuard locks out usernames and client IPs after repeated failed logins
type LoginGuard struct {
	mu         sync.Mutex
	byUsername map[string][]time.Time
	byIP       map[string][]time.Time
	cfg        LoginGuardConfig
	now        func() time.Time
}

// NewLoginGuard creates a login guard
func NewLoginGuard(cfg LoginGuardConfig) *LoginGuard {
	def := DefaultLoginGuardConfig()
	if cfg.MaxPerUsername <= 0 {
		cfg.MaxPerUsername = def.MaxPerUsername
	}
	if cfg.MaxPerIP <= 0 {
		cfg.MaxPerIP = def.MaxPerIP
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = def.Lockout
	}
	return &LoginGuard{
		byUsername: make(map[string][]time.Time),
		byIP:       make(map[string][]time.Time),
		cfg:        cfg,
		now:        time.Now,
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// RecordFailure counts one failed login
func (g *LoginGuard) RecordFailure(username, ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if u := normalizeUsername(username); u != "" {
		g.byUsername[u] = append(g.prune(g.byUsername[u], now), now)
	}
	if ip != "" {
		g.byIP[ip] = append(g.prune(g.byIP[ip], now), now)
	}
}

// Reset forgets the failures of a username after a successful login. IP
// failures are kept so one good account cannot unlock a scanning client.
func (g *LoginGuard) Reset(username string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.byUsername, normalizeUsername(username))
}

// Blocked reports whether a login for username from ip must be refused, and
// until when.
func (g *LoginGuard) Blocked(username, ip string) (bool, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	var until time.Time
	if u := normalizeUsername(username); u != "" {
		if end, ok := g.lockedUntil(g.byUsername[u], g.cfg.MaxPerUsername, now); ok {
			until = end
		}
	}
	if ip != "" {
		if end, ok := g.lockedUntil(g.byIP[ip], g.cfg.MaxPerIP, now); ok && end.After(until) {
			until = end
		}
	}
	return !until.IsZero(), until
}

func (g *LoginGuard) lockedUntil(attempts []time.Time, max int, now time.Time) (time.Time, bool) {
	windowStart := now.Add(-g.cfg.Window)
	count := 0
	for _, at := range attempts {
		if at.After(windowStart) {
			count++
		}
	}
	if count < max || len(attempts) == 0 {
		return time.Time{}, false
	}
	end := attempts[len(attempts)-1].Add(g.cfg.Lockout)
	if !now.Before(end) {
		return time.Time{}, false
	}
	return end, true
}

// prune drops attempts that fell out of the window
func (g *LoginGuard) prune(attempts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-g.cfg.Window)
	kept := attempts[:0]
	for _, at := range attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}

// Sweep removes keys without recent failures
func (g *LoginGuard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	removed := 0
	for _, m := range []map[string][]time.Time{g.byUsername, g.byIP} {
		for k, attempts := range m {
			if kept := g.prune(attempts, now); len(kept) == 0 {
				delete(m, k)
				removed++
			} else {
				m[k] = kept
			}
		}
	}
	return removed
}
