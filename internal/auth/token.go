package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/packing-audit/internal/types"
)

var (
	// ErrInvalidToken covers bad signatures, malformed tokens and expiry
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrWrongTokenType is returned when a token of another type is presented
	ErrWrongTokenType = errors.New("invalid token type")
)

// Claims is the access token payload
type Claims struct {
	UserID    string          `json:"id"`
	RoleID    string          `json:"role_id"`
	SessionID string          `json:"session_id"`
	Type      types.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer for tokens valid for ttl
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the access token lifetime
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// IssueAccess signs an access token bound to a session
func (i *TokenIssuer) IssueAccess(userID, roleID, sessionID string) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:    userID,
		RoleID:    roleID,
		SessionID: sessionID,
		Type:      types.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccess verifies signature, expiry and token type
func (i *TokenIssuer) ParseAccess(token string) (*Claims, error) {
	return i.parse(token, jwt.WithTimeFunc(i.now))
}

// ParseAccessIgnoringExpiry verifies signature and token type but accepts an
// expired token. Refresh uses it to recover the session id.
func (i *TokenIssuer) ParseAccessIgnoringExpiry(token string) (*Claims, error) {
	return i.parse(token, jwt.WithoutClaimsValidation())
}

func (i *TokenIssuer) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != types.TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
