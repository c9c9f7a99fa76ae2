// Package session keeps the console operator's authentication state behind a
// pluggable store.
package session

import (
	"errors"
	"time"
)

// Storage keys. These match the keys the browser console persisted.
const (
	KeyToken    = "token"
	KeyRole     = "role"
	KeyUserID   = "userId"
	KeyUserType = "userType"
	KeyUsername = "username"

	keyExpiresAt = "expiresAt"
	keyCreatedAt = "createdAt"
)

// Roles issued by the exchange backend
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
)

var (
	// ErrNotAuthenticated is returned when no usable session exists
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound is returned by stores for unknown session ids
	ErrNotFound = errors.New("session not found")
	// ErrInvalidOTP is returned when the second factor does not match
	ErrInvalidOTP = errors.New("invalid one-time code")
)

// Session is the authentication state of one operator
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	Role      string    `json:"role"`
	UserID    string    `json:"userId"`
	UserType  string    `json:"userType"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Authenticated reports whether the session carries an unexpired token
func (s Session) Authenticated(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// IsSuperAdmin reports whether the operator may manage branches
func (s Session) IsSuperAdmin() bool {
	return s.Role == RoleSuperAdmin || s.UserType == RoleSuperAdmin
}

// Actor is the name recorded against decisions
func (s Session) Actor() string {
	if s.Username != "" {
		return s.Username
	}
	return s.UserID
}

func (s Session) values() map[string]string {
	v := map[string]string{
		KeyToken:     s.Token,
		KeyRole:      s.Role,
		KeyUserID:    s.UserID,
		KeyUserType:  s.UserType,
		KeyUsername:  s.Username,
		keyCreatedAt: s.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if !s.ExpiresAt.IsZero() {
		v[keyExpiresAt] = s.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return v
}

func fromValues(id string, v map[string]string) Session {
	s := Session{
		ID:       id,
		Token:    v[KeyToken],
		Role:     v[KeyRole],
		UserID:   v[KeyUserID],
		UserType: v[KeyUserType],
		Username: v[KeyUsername],
	}
	if t, err := time.Parse(time.RFC3339Nano, v[keyExpiresAt]); err == nil {
		s.ExpiresAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, v[keyCreatedAt]); err == nil {
		s.CreatedAt = t
	}
	return s
}
