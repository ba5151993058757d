package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packing-audit/internal/types"
)

func newTestIssuer(now time.Time) *TokenIssuer {
	issuer := NewTokenIssuer("test-secret", 15*time.Minute)
	issuer.now = func() time.Time { return now }
	return issuer
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := newTestIssuer(time.Now())

	token, err := issuer.IssueAccess("user-1", "role-1", "session-1")
	require.NoError(t, err)

	claims, err := issuer.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "role-1", claims.RoleID)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, types.TokenTypeAccess, claims.Type)
}

func TestTokenIssuer_ExpiredToken(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	token, err := newTestIssuer(issued).IssueAccess("user-1", "role-1", "session-1")
	require.NoError(t, err)

	issuer := newTestIssuer(time.Now())
	_, err = issuer.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := issuer.ParseAccessIgnoringExpiry(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.SessionID)
}

func TestTokenIssuer_RejectsForeignSignature(t *testing.T) {
	token, err := NewTokenIssuer("other-secret", time.Minute).IssueAccess("u", "r", "s")
	require.NoError(t, err)

	issuer := newTestIssuer(time.Now())
	_, err = issuer.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.ParseAccessIgnoringExpiry(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsWrongType(t *testing.T) {
	claims := Claims{
		UserID:    "u",
		SessionID: "s",
		Type:      types.TokenType("refresh"),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newTestIssuer(time.Now()).ParseAccess(token)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestTokenIssuer_RejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Type: types.TokenTypeAccess}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestIssuer(time.Now()).ParseAccessIgnoringExpiry(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
