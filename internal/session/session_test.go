package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	identity Identity
	err      error
	calls    int
}

func (s *stubAuthenticator) Authenticate(_ context.Context, username, password string) (Identity, error) {
	s.calls++
	if s.err != nil {
		return Identity{}, s.err
	}
	return s.identity, nil
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("upstream-secret"))
	require.NoError(t, err)
	return token
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, jwt.MapClaims{"id": "adm-1", "role": "superadmin", "exp": exp.Unix()})

	c, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "adm-1", c.Subject)
	assert.Equal(t, "superadmin", c.Role)
	assert.True(t, exp.Equal(c.ExpiresAt))

	_, err = ParseClaims("not-a-jwt")
	assert.Error(t, err)
}

func TestSecretBoxSealer(t *testing.T) {
	s := NewSecretBoxSealer("seal-key")

	sealed, err := s.Seal("abc.def.ghi")
	require.NoError(t, err)
	assert.NotEqual(t, "abc.def.ghi", sealed)

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", plain)

	_, err = NewSecretBoxSealer("other-key").Open(sealed)
	assert.Error(t, err)

	_, err = s.Open("%%%")
	assert.Error(t, err)

	assert.IsType(t, NopSealer{}, NewSealer(""))
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", map[string]string{KeyToken: "t"}, time.Minute))
	v, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "t", v[KeyToken])

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Touch(ctx, "s1", time.Minute), ErrNotFound)
}

func newTestManager(t *testing.T, auth Authenticator, cfg ManagerConfig) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	m := NewManager(store, NewSecretBoxSealer("seal-key"), auth, cfg, nil)
	return m, store
}

func TestLoginStoresSealedSession(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"id": "adm-1", "exp": time.Now().Add(time.Hour).Unix()})
	auth := &stubAuthenticator{identity: Identity{Token: token, Role: RoleSuperAdmin}}
	m, store := newTestManager(t, auth, ManagerConfig{TTL: time.Hour})
	ctx := context.Background()

	s, err := m.Login(ctx, Credentials{Username: "root", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "adm-1", s.UserID)
	assert.Equal(t, RoleSuperAdmin, s.UserType)
	assert.True(t, s.IsSuperAdmin())
	assert.Equal(t, "root", s.Actor())

	raw, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.NotEqual(t, token, raw[KeyToken])
	for _, key := range []string{KeyToken, KeyRole, KeyUserID, KeyUserType, KeyUsername} {
		assert.Contains(t, raw, key)
	}

	current, err := m.Current(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, token, current.Token)
	assert.True(t, m.IsAuthenticated(ctx, s.ID))

	require.NoError(t, m.Logout(ctx, s.ID))
	_, err = m.Current(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestMissingTokenIsNotAuthenticated(t *testing.T) {
	m, store := newTestManager(t, &stubAuthenticator{}, ManagerConfig{})
	ctx := context.Background()

	_, err := m.Current(ctx, "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, store.Save(ctx, "blank", map[string]string{KeyRole: RoleAdmin}, 0))
	assert.False(t, m.IsAuthenticated(ctx, "blank"))
}

func TestExpiredTokenIsNotAuthenticated(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"id": "adm-1", "exp": time.Now().Add(-time.Minute).Unix()})
	m, _ := newTestManager(t, &stubAuthenticator{identity: Identity{Token: token}}, ManagerConfig{})

	_, err := m.Login(context.Background(), Credentials{Username: "root", Password: "pw"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSessionExpiresWithToken(t *testing.T) {
	now := time.Now()
	token := signedToken(t, jwt.MapClaims{"exp": now.Add(10 * time.Minute).Unix()})
	m, _ := newTestManager(t, &stubAuthenticator{identity: Identity{Token: token, Role: RoleAdmin}}, ManagerConfig{})
	ctx := context.Background()

	s, err := m.Login(ctx, Credentials{Username: "branch-1", Password: "pw"})
	require.NoError(t, err)

	m.now = func() time.Time { return now.Add(11 * time.Minute) }
	_, err = m.Current(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLoginPropagatesBackendError(t *testing.T) {
	boom := errors.New("invalid credentials")
	m, _ := newTestManager(t, &stubAuthenticator{err: boom}, ManagerConfig{})

	_, err := m.Login(context.Background(), Credentials{Username: "root", Password: "bad"})
	assert.ErrorIs(t, err, boom)
}

func TestLoginWithTOTP(t *testing.T) {
	const secret = "JBSWY3DPEHPK3PXP"
	token := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	auth := &stubAuthenticator{identity: Identity{Token: token, Role: RoleAdmin}}
	m, _ := newTestManager(t, auth, ManagerConfig{TOTPSecret: secret, TOTPSkew: 1})
	ctx := context.Background()
	require.True(t, m.MFARequired())

	_, err := m.Login(ctx, Credentials{Username: "root", Password: "pw", OTP: "000000"})
	assert.ErrorIs(t, err, ErrInvalidOTP)
	assert.Equal(t, 0, auth.calls)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	_, err = m.Login(ctx, Credentials{Username: "root", Password: "pw", OTP: code})
	require.NoError(t, err)
	assert.Equal(t, 1, auth.calls)
}

func TestTokenSource(t *testing.T) {
	tok, err := TokenSource(Session{Token: "abc"}).Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())
}
