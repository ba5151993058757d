package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/packing-audit/internal/auth"
	"github.com/packing-audit/internal/config"
	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/storage"
	"github.com/packing-audit/internal/types"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*models.Session{}}
}

func (f *fakeSessions) ReplaceForUser(_ context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == session.UserID {
			delete(f.sessions, id)
		}
	}
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeSessions) GetByID(_ context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) Rotate(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.SessionToken = tokenHash
	s.ExpiresAt = expiresAt
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessions) DeleteByUserID(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeRoles map[string]types.RoleName

func (f fakeRoles) RoleName(_ context.Context, roleID string) (types.RoleName, error) {
	name, ok := f[roleID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return name, nil
}

type authFixture struct {
	service  *AuthService
	sessions *fakeSessions
	user     *models.User
	tokens   *auth.TokenIssuer
}

const testPassword = "s3cret-pass"

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	hasher := auth.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash(testPassword)
	require.NoError(t, err)

	roleID := uuid.NewString()
	user := &models.User{ID: uuid.NewString(), Name: "op", Email: "op@example.com", Password: hash, RoleID: roleID}
	sessions := newFakeSessions()
	tokens := auth.NewTokenIssuer("test-secret", 15*time.Minute)
	cfg := &config.AuthConfig{RefreshTokenTTL: 7 * 24 * time.Hour, RotationWindow: 24 * time.Hour}

	svc := NewAuthService(fakeUsers{user.ID: user}, sessions, fakeRoles{roleID: types.RoleOperator}, hasher, tokens, cfg)
	return &authFixture{service: svc, sessions: sessions, user: user, tokens: tokens}
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.service.Login(ctx, "op@example.com", testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Len(t, result.RefreshToken, 2*auth.RefreshTokenBytes)
	assert.Equal(t, f.user.ID, result.User.ID)

	claims, err := f.tokens.ParseAccess(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.UserID)
	assert.NotEmpty(t, claims.SessionID)
	assert.Equal(t, 1, f.sessions.count())
}

func TestAuthService_LoginFailuresLookAlike(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, unknownErr := f.service.Login(ctx, "ghost@example.com", testPassword)
	_, wrongErr := f.service.Login(ctx, "op@example.com", "wrong")

	for _, err := range []error{unknownErr, wrongErr} {
		require.Error(t, err)
		assert.Equal(t, 401, apperrors.GetHTTPStatusCode(err))
		assert.Equal(t, MsgLoginFailed, apperrors.Categorize(err).Message)
	}
	assert.Zero(t, f.sessions.count())
}

func TestAuthService_LoginReplacesPreviousSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	first, err := f.service.Login(ctx, "op@example.com", testPassword)
	require.NoError(t, err)
	_, err = f.service.Login(ctx, "op@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, 1, f.sessions.count())

	_, err = f.service.Authenticate(ctx, first.AccessToken)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSessionExpired))
}

func TestAuthService_RefreshWithoutRotation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	login, err := f.service.Login(ctx, "op@example.com", testPassword)
	require.NoError(t, err)

	result, err := f.service.Refresh(ctx, login.AccessToken, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Nil(t, result.NewRefreshToken)
	assert.Equal(t, 900, result.ExpiresIn)
}

func TestAuthService_RefreshRotatesNearExpiry(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	login, err := f.service.Login(ctx, "op@example.com", testPassword)
	require.NoError(t, err)

	// the access token has expired by now, which refresh tolerates
	f.service.now = func() time.Time { return time.Now().Add(6*24*time.Hour + 12*time.Hour) }

	result, err := f.service.Refresh(ctx, login.AccessToken, login.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, result.NewRefreshToken)
	require.NotNil(t, result.RefreshExpiresAt)

	// the old refresh token no longer matches and revokes the session
	_, err = f.service.Refresh(ctx, result.AccessToken, login.RefreshToken)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidToken))
	assert.Zero(t, f.sessions.count())
}

func TestAuthService_RefreshMismatchRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	login, err := f.service.Login(ctx, "op@example.com", testPassword)
	require.NoError(t, err)

	_, err = f.service.Refresh(ctx, login.AccessToken, "not-the-token")
	require.Error(t, err)
	assert.Equal(t, MsgInvalidRefreshToken, apperrors.Categorize(err).Message)

	_, err = f.service.Refresh(ctx, login.AccessToken, login.RefreshToken)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSessionExpired))
}

func TestAuthService_RefreshExpiredSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	login, err := f.service.Login(ctx, "op@example.com", testPassword)
	require.NoError(t, err)

	f.service.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = f.service.Refresh(ctx, login.AccessToken, login.RefreshToken)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSessionExpired))
	assert.Zero(t, f.sessions.count())
}

func TestAuthService_RefreshRejectsBadInput(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.service.Refresh(ctx, "", "x")
	assert.Equal(t, MsgNoAccessToken, apperrors.Categorize(err).Message)

	_, err = f.service.Refresh(ctx, "garbage", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidToken))

	login, err := f.service.Login(ctx, "op@example.com", testPassword)
	require.NoError(t, err)
	_, err = f.service.Refresh(ctx, login.AccessToken, "")
	assert.Equal(t, MsgNoRefreshToken, apperrors.Categorize(err).Message)
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	login, err := f.service.Login(ctx, "op@example.com", testPassword)
	require.NoError(t, err)

	principal, err := f.service.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, principal.UserID)
	assert.Equal(t, types.RoleOperator, principal.Role)

	_, err = f.service.Authenticate(ctx, "")
	assert.Equal(t, 401, apperrors.GetHTTPStatusCode(err))

	foreign, err := auth.NewTokenIssuer("other-secret", time.Minute).IssueAccess(f.user.ID, f.user.RoleID, principal.SessionID)
	require.NoError(t, err)
	_, err = f.service.Authenticate(ctx, foreign)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidToken))

	require.NoError(t, f.service.Logout(ctx, "op@example.com"))
	_, err = f.service.Authenticate(ctx, login.AccessToken)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSessionExpired))
}

func TestAuthService_AuthenticateUnknownRole(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.service.roles = fakeRoles{}

	login, err := f.service.Login(ctx, "op@example.com", testPassword)
	require.NoError(t, err)

	_, err = f.service.Authenticate(ctx, login.AccessToken)
	assert.Equal(t, 403, apperrors.GetHTTPStatusCode(err))
}

func TestAuthService_LogoutUnknownUser(t *testing.T) {
	f := newAuthFixture(t)
	assert.NoError(t, f.service.Logout(context.Background(), "ghost@example.com"))
}
