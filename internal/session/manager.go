package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Credentials are what an operator submits to log in
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	OTP      string `json:"otp,omitempty"`
}

// Identity is what the exchange backend returns for valid credentials
type Identity struct {
	Token    string
	Role     string
	UserID   string
	UserType string
}

// Authenticator exchanges credentials for an upstream token
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Identity, error)
}

// ManagerConfig configures a Manager
type ManagerConfig struct {
	TTL        time.Duration
	IdleTTL    time.Duration
	TOTPSecret string
	TOTPPeriod uint
	TOTPSkew   uint
}

// Manager logs operators in and out and resolves their sessions
type Manager struct {
	store  Store
	sealer Sealer
	auth   Authenticator
	cfg    ManagerConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a session manager
func NewManager(store Store, sealer Sealer, auth Authenticator, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if sealer == nil {
		sealer = NopSealer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TOTPPeriod == 0 {
		cfg.TOTPPeriod = 30
	}
	return &Manager{store: store, sealer: sealer, auth: auth, cfg: cfg, logger: logger, now: time.Now}
}

// MFARequired reports whether logins need a one-time code
func (m *Manager) MFARequired() bool {
	return m.cfg.TOTPSecret != ""
}

// Login checks the optional second factor, authenticates against the exchange
// backend and stores a new session.
func (m *Manager) Login(ctx context.Context, creds Credentials) (Session, error) {
	if m.MFARequired() {
		ok, err := totp.ValidateCustom(creds.OTP, m.cfg.TOTPSecret, m.now(), totp.ValidateOpts{
			Period:    m.cfg.TOTPPeriod,
			Skew:      m.cfg.TOTPSkew,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil || !ok {
			m.logger.Warn("console login rejected: bad one-time code", zap.String("username", creds.Username))
			return Session{}, ErrInvalidOTP
		}
	}

	id, err := m.auth.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		return Session{}, err
	}
	if id.Token == "" {
		return Session{}, fmt.Errorf("failed to log in: backend returned no token")
	}

	now := m.now()
	s := Session{
		ID:        uuid.New().String(),
		Token:     id.Token,
		Role:      id.Role,
		UserID:    id.UserID,
		UserType:  id.UserType,
		Username:  creds.Username,
		CreatedAt: now,
	}
	if claims, err := ParseClaims(id.Token); err == nil {
		s.ExpiresAt = claims.ExpiresAt
		if s.UserID == "" {
			s.UserID = claims.Subject
		}
		if s.Role == "" {
			s.Role = claims.Role
		}
	} else {
		m.logger.Debug("upstream token is not a JWT, expiry unknown", zap.Error(err))
	}
	if s.UserType == "" {
		s.UserType = s.Role
	}
	if !s.Authenticated(now) {
		return Session{}, ErrNotAuthenticated
	}

	if err := m.save(ctx, s); err != nil {
		return Session{}, err
	}
	m.logger.Info("operator logged in",
		zap.String("session", s.ID),
		zap.String("username", s.Username),
		zap.String("role", s.Role))
	return s, nil
}

func (m *Manager) save(ctx context.Context, s Session) error {
	values := s.values()
	sealed, err := m.sealer.Seal(s.Token)
	if err != nil {
		return fmt.Errorf("failed to seal token: %w", err)
	}
	values[KeyToken] = sealed
	if err := m.store.Save(ctx, s.ID, values, m.ttlFor(s)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (m *Manager) ttlFor(s Session) time.Duration {
	ttl := m.cfg.TTL
	if m.cfg.IdleTTL > 0 && (ttl <= 0 || m.cfg.IdleTTL < ttl) {
		ttl = m.cfg.IdleTTL
	}
	if !s.ExpiresAt.IsZero() {
		if left := s.ExpiresAt.Sub(m.now()); ttl <= 0 || left < ttl {
			ttl = left
		}
	}
	return ttl
}

// Current resolves a session id. Missing, expired and undecryptable sessions
// all yield ErrNotAuthenticated. A valid session has its idle timer reset.
func (m *Manager) Current(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNotAuthenticated
	}
	values, err := m.store.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrNotAuthenticated
	}
	if err != nil {
		return Session{}, err
	}

	s := fromValues(id, values)
	token, err := m.sealer.Open(s.Token)
	if err != nil {
		m.logger.Warn("dropping session with unreadable token", zap.String("session", id), zap.Error(err))
		_ = m.store.Delete(ctx, id)
		return Session{}, ErrNotAuthenticated
	}
	s.Token = token

	if !s.Authenticated(m.now()) {
		_ = m.store.Delete(ctx, id)
		return Session{}, ErrNotAuthenticated
	}
	if err := m.store.Touch(ctx, id, m.ttlFor(s)); err != nil && !errors.Is(err, ErrNotFound) {
		m.logger.Warn("failed to refresh session", zap.String("session", id), zap.Error(err))
	}
	return s, nil
}

// IsAuthenticated reports whether id resolves to a usable session
func (m *Manager) IsAuthenticated(ctx context.Context, id string) bool {
	_, err := m.Current(ctx, id)
	return err == nil
}

// Logout removes the session
func (m *Manager) Logout(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	m.logger.Info("operator logged out", zap.String("session", id))
	return nil
}

// TokenSource hands the session's bearer token to outbound HTTP clients
func TokenSource(s Session) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: s.Token,
		TokenType:   "Bearer",
		Expiry:      s.ExpiresAt,
	})
}
