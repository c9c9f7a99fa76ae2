package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestGuard(cfg LoginGuardConfig) (*LoginGuard, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := NewLoginGuard(cfg)
	g.now = func() time.Time { return now }
	return g, &now
}

func TestLoginGuardLocksUsername(t *testing.T) {
	g, now := newTestGuard(LoginGuardConfig{MaxPerUsername: 3, MaxPerIP: 100, Window: 10 * time.Minute, Lockout: 5 * time.Minute})

	for i := 0; i < 2; i++ {
		g.RecordFailure("Ops", "10.0.0.1")
		blocked, _ := g.Blocked("ops", "10.0.0.2")
		assert.False(t, blocked, "should not be blocked after %d failures", i+1)
	}

	g.RecordFailure(" OPS ", "10.0.0.1")
	blocked, until := g.Blocked("ops", "10.0.0.2")
	assert.True(t, blocked, "username should be blocked after 3 failures")
	assert.Equal(t, now.Add(5*time.Minute), until)

	blocked, _ = g.Blocked("someone-else", "10.0.0.2")
	assert.False(t, blocked)

	*now = now.Add(5 * time.Minute)
	blocked, _ = g.Blocked("ops", "")
	assert.False(t, blocked, "lockout should expire")
}

func TestLoginGuardLocksIP(t *testing.T) {
	g, _ := newTestGuard(LoginGuardConfig{MaxPerUsername: 100, MaxPerIP: 4, Window: time.Minute, Lockout: time.Minute})

	for _, user := range []string{"a", "b", "c"} {
		g.RecordFailure(user, "192.168.1.1")
	}
	blocked, _ := g.Blocked("d", "192.168.1.1")
	assert.False(t, blocked, "IP should not be blocked after 3 failures")

	g.RecordFailure("d", "192.168.1.1")
	blocked, _ = g.Blocked("new-user", "192.168.1.1")
	assert.True(t, blocked, "IP should be blocked after 4 failures")
}

func TestLoginGuardResetKeepsIPFailures(t *testing.T) {
	g, _ := newTestGuard(LoginGuardConfig{MaxPerUsername: 2, MaxPerIP: 2, Window: time.Minute, Lockout: time.Minute})

	g.RecordFailure("ops", "10.0.0.1")
	g.RecordFailure("ops", "10.0.0.1")
	g.Reset("ops")

	blocked, _ := g.Blocked("ops", "10.0.0.9")
	assert.False(t, blocked)
	blocked, _ = g.Blocked("ops", "10.0.0.1")
	assert.True(t, blocked)
}

func TestLoginGuardSweep(t *testing.T) {
	g, now := newTestGuard(LoginGuardConfig{Window: time.Minute})

	g.RecordFailure("ops", "10.0.0.1")
	assert.Equal(t, 0, g.Sweep())

	*now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, g.Sweep())
	assert.Empty(t, g.byUsername)
	assert.Empty(t, g.byIP)
}

func TestNewLoginGuardDefaults(t *testing.T) {
	g := NewLoginGuard(LoginGuardConfig{})
	assert.Equal(t, DefaultLoginGuardConfig(), g.cfg)
}
