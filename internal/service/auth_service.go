package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/packing-audit/internal/auth"
	"github.com/packing-audit/internal/config"
	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/logging"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/storage"
	"github.com/packing-audit/internal/types"
)

// UserLookup finds accounts for authentication
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// SessionStore persists refresh sessions
type SessionStore interface {
	ReplaceForUser(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Rotate(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// RoleResolver maps a role id to its name
type RoleResolver interface {
	RoleName(ctx context.Context, roleID string) (types.RoleName, error)
}

// Principal is the authenticated caller of a request
type Principal struct {
	UserID    string
	RoleID    string
	SessionID string
	Role      types.RoleName
}

// LoginResult carries the credentials issued by Login
type LoginResult struct {
	AccessToken      string       `json:"accessToken"`
	RefreshToken     string       `json:"refreshToken"`
	RefreshExpiresAt time.Time    `json:"-"`
	User             *models.User `json:"user"`
}

// RefreshResult carries the credentials issued by Refresh. NewRefreshToken
// is nil unless the refresh token rotated.
type RefreshResult struct {
	AccessToken      string     `json:"accessToken"`
	NewRefreshToken  *string    `json:"newRefreshToken"`
	ExpiresIn        int        `json:"expiresIn"`
	RefreshExpiresAt *time.Time `json:"-"`
}

// AuthService implements single-session login, refresh and logout
type AuthService struct {
	users          UserLookup
	sessions       SessionStore
	roles          RoleResolver
	hasher         *auth.Hasher
	tokens         *auth.TokenIssuer
	refreshTTL     time.Duration
	rotationWindow time.Duration
	now            func() time.Time
}

// NewAuthService creates an auth service
func NewAuthService(
	users UserLookup,
	sessions SessionStore,
	roles RoleResolver,
	hasher *auth.Hasher,
	tokens *auth.TokenIssuer,
	cfg *config.AuthConfig,
) *AuthService {
	return &AuthService{
		users:          users,
		sessions:       sessions,
		roles:          roles,
		hasher:         hasher,
		tokens:         tokens,
		refreshTTL:     cfg.RefreshTokenTTL,
		rotationWindow: cfg.RotationWindow,
		now:            time.Now,
	}
}

// Login verifies credentials, replaces every session of the user with a new
// one and issues an access token bound to it. Unknown email and wrong
// password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	log := logging.FromContext(ctx)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.WithField("email", email).Warn("Login for unknown user")
			return nil, apperrors.NewUnauthorizedError(MsgLoginFailed)
		}
		return nil, apperrors.NewDatabaseError("login", err)
	}

	ok, err := s.hasher.Compare(user.Password, password)
	if err != nil {
		return nil, apperrors.NewInternalError(MsgInternalServerError, err)
	}
	if !ok {
		log.WithField("email", email).Warn("Login with invalid password")
		return nil, apperrors.NewUnauthorizedError(MsgLoginFailed)
	}

	refreshToken, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, apperrors.NewInternalError(MsgInternalServerError, err)
	}
	tokenHash, err := s.hasher.Hash(refreshToken)
	if err != nil {
		return nil, apperrors.NewInternalError(MsgInternalServerError, err)
	}

	now := s.now()
	session := &models.Session{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		SessionToken: tokenHash,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.refreshTTL),
	}
	if err := s.sessions.ReplaceForUser(ctx, session); err != nil {
		return nil, apperrors.NewDatabaseError("create session", err)
	}

	accessToken, err := s.tokens.IssueAccess(user.ID, user.RoleID, session.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(MsgInternalServerError, err)
	}

	log.WithFields(map[string]interface{}{
		"userId":    user.ID,
		"sessionId": session.ID,
	}).Info("User logged in")

	return &LoginResult{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: session.ExpiresAt,
		User:             user,
	}, nil
}

// Refresh issues a new access token for the session named by a possibly
// expired access token. The refresh token rotates only when the session is
// within the rotation window of its expiry.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*RefreshResult, error) {
	if accessToken == "" {
		return nil, apperrors.NewUnauthorizedError(MsgNoAccessToken)
	}
	claims, err := s.tokens.ParseAccessIgnoringExpiry(accessToken)
	if err != nil {
		if errors.Is(err, auth.ErrWrongTokenType) {
			return nil, apperrors.NewInvalidTokenError(MsgInvalidTokenType)
		}
		return nil, apperrors.NewInvalidTokenError(MsgInvalidToken)
	}
	if claims.SessionID == "" {
		return nil, apperrors.NewSessionExpiredError(MsgSessionExpired)
	}
	if refreshToken == "" {
		return nil, apperrors.NewUnauthorizedError(MsgNoRefreshToken)
	}

	return s.refreshSession(ctx, claims.SessionID, refreshToken)
}

func (s *AuthService) refreshSession(ctx context.Context, sessionID, refreshToken string) (*RefreshResult, error) {
	log := logging.FromContext(ctx).WithField("sessionId", sessionID)

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewSessionExpiredError(MsgSessionExpired)
		}
		return nil, apperrors.NewDatabaseError("load session", err)
	}

	now := s.now()
	if session.IsExpired(now) {
		if err := s.sessions.Delete(ctx, session.ID); err != nil {
			log.WithError(err).Warn("Failed to delete expired session")
		}
		return nil, apperrors.NewSessionExpiredError(MsgSessionExpired)
	}

	ok, err := s.hasher.Compare(session.SessionToken, refreshToken)
	if err != nil || !ok {
		log.Warn("Invalid refresh token presented, revoking session")
		if err := s.sessions.Delete(ctx, session.ID); err != nil {
			return nil, apperrors.NewDatabaseError("revoke session", err)
		}
		return nil, apperrors.NewInvalidTokenError(MsgInvalidRefreshToken)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewUnauthorizedError(MsgUserNotFound)
		}
		return nil, apperrors.NewDatabaseError("load user", err)
	}

	accessToken, err := s.tokens.IssueAccess(user.ID, user.RoleID, session.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(MsgInternalServerError, err)
	}

	result := &RefreshResult{
		AccessToken: accessToken,
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	}

	if session.ExpiresAt.Sub(now) <= s.rotationWindow {
		rotated, err := auth.GenerateRefreshToken()
		if err != nil {
			return nil, apperrors.NewInternalError(MsgInternalServerError, err)
		}
		hash, err := s.hasher.Hash(rotated)
		if err != nil {
			return nil, apperrors.NewInternalError(MsgInternalServerError, err)
		}
		expiresAt := now.Add(s.refreshTTL)
		if err := s.sessions.Rotate(ctx, session.ID, hash, expiresAt); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, apperrors.NewSessionExpiredError(MsgSessionExpired)
			}
			return nil, apperrors.NewDatabaseError("rotate session", err)
		}
		log.Info("Rotated refresh token")
		result.NewRefreshToken = &rotated
		result.RefreshExpiresAt = &expiresAt
	}

	return result, nil
}

// Logout deletes every session of the user. Unknown users succeed too.
func (s *AuthService) Logout(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logging.FromContext(ctx).WithField("email", email).Warn("Logout for unknown user")
			return nil
		}
		return apperrors.NewDatabaseError("logout", err)
	}

	if err := s.sessions.DeleteByUserID(ctx, user.ID); err != nil {
		return apperrors.NewDatabaseError("logout", err)
	}
	logging.FromContext(ctx).WithField("userId", user.ID).Info("User logged out")
	return nil
}

// Authenticate validates an access token against its live session and
// resolves the caller's role.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	if accessToken == "" {
		return nil, apperrors.NewUnauthorizedError(MsgNoAccessToken)
	}

	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		if errors.Is(err, auth.ErrWrongTokenType) {
			return nil, apperrors.NewInvalidTokenError(MsgInvalidTokenType)
		}
		return nil, apperrors.NewInvalidTokenError(MsgInvalidToken)
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewSessionExpiredError(MsgSessionExpired)
		}
		return nil, apperrors.NewDatabaseError("load session", err)
	}
	if session.IsExpired(s.now()) || session.UserID != claims.UserID {
		return nil, apperrors.NewSessionExpiredError(MsgSessionExpired)
	}

	role, err := s.roles.RoleName(ctx, claims.RoleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewForbiddenError(MsgForbidden)
		}
		return nil, apperrors.NewDatabaseError("resolve role", err)
	}

	return &Principal{
		UserID:    claims.UserID,
		RoleID:    claims.RoleID,
		SessionID: claims.SessionID,
		Role:      role,
	}, nil
}
