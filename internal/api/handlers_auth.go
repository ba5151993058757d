package api

import (
	"net/http"
	"strings"
	"time"

	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// setAuthCookies stores the access token for browser clients and, when
// given, the refresh token as an HttpOnly cookie.
func (s *Server) setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string, refreshExpires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		Secure:   s.config.Production,
		SameSite: http.SameSiteLaxMode,
	})
	if refreshToken == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		Expires:  refreshExpires,
		MaxAge:   int(time.Until(refreshExpires).Seconds()),
		HttpOnly: true,
		Secure:   s.config.Production,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == refreshTokenCookie,
			Secure:   s.config.Production,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// handleLogin handles POST /api/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	details := map[string]interface{}{}
	if strings.TrimSpace(req.Email) == "" {
		details["email"] = "is required"
	}
	if req.Password == "" {
		details["password"] = "is required"
	}
	if len(details) > 0 {
		s.respondError(w, r, apperrors.NewValidationError(service.MsgInvalidInput, details))
		return
	}

	result, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.setAuthCookies(w, result.AccessToken, result.RefreshToken, result.RefreshExpiresAt)
	respondSuccess(w, http.StatusOK, service.MsgLoginSuccess, result)
}

// handleRefresh handles POST /api/auth/refresh. The access token may be
// expired; the refresh token comes from its cookie or the body.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	accessToken := ""
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		accessToken = cookie.Value
	}
	if accessToken == "" {
		accessToken = bearerToken(r)
	}

	refreshToken := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		refreshToken = cookie.Value
	}
	if refreshToken == "" && r.ContentLength != 0 {
		var req refreshRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		refreshToken = req.RefreshToken
	}

	result, err := s.auth.Refresh(r.Context(), accessToken, refreshToken)
	if err != nil {
		if apperrors.GetHTTPStatusCode(err) == http.StatusUnauthorized {
			s.clearAuthCookies(w)
		}
		s.respondError(w, r, err)
		return
	}

	rotated, expires := "", time.Time{}
	if result.NewRefreshToken != nil && result.RefreshExpiresAt != nil {
		rotated, expires = *result.NewRefreshToken, *result.RefreshExpiresAt
	}
	s.setAuthCookies(w, result.AccessToken, rotated, expires)
	respondSuccess(w, http.StatusOK, service.MsgTokenRefreshSuccess, result)
}

// handleLogout handles POST /api/auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	user, err := s.users.GetByID(r.Context(), principal.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.auth.Logout(r.Context(), user.Email); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.clearAuthCookies(w)
	respondSuccess(w, http.StatusOK, service.MsgLogoutSuccess, nil)
}
