package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/logging"
	"github.com/packing-audit/internal/service"
	"github.com/packing-audit/internal/types"
)

// Cookie names carrying the credentials issued at login.
const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

const principalKey contextKey = "principal"

// principalFrom returns the authenticated caller stored by RequireAuth
func principalFrom(ctx context.Context) *service.Principal {
	p, _ := ctx.Value(principalKey).(*service.Principal)
	return p
}

// bearerToken extracts the access token from the Authorization header,
// falling back to the access token cookie.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth rejects requests without a valid access token bound to a
// live session and stores the principal on the context.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).WithField("userId", principal.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles admits only principals holding one of the roles. It must run
// after RequireAuth.
func (s *Server) RequireRoles(roles ...types.RoleName) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := principalFrom(r.Context())
			if principal == nil {
				s.respondError(w, r, apperrors.NewUnauthorizedError(service.MsgUnauthorized))
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			logging.FromContext(r.Context()).WithField("role", principal.Role).Warn("Role not permitted")
			s.respondError(w, r, apperrors.NewForbiddenError(service.MsgForbidden))
		})
	}
}

// RequireSuperadmin admits superadmins only
func (s *Server) RequireSuperadmin(next http.Handler) http.Handler {
	return s.RequireRoles(types.RoleSuperadmin)(next)
}

// RequireOperator admits operators and superadmins
func (s *Server) RequireOperator(next http.Handler) http.Handler {
	return s.RequireRoles(types.RoleOperator, types.RoleSuperadmin)(next)
}

// RequireWorker admits the clip worker by its shared X-Worker-Token. With no
// token configured every internal request is rejected.
func (s *Server) RequireWorker(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := s.config.WorkerToken
		given := r.Header.Get("X-Worker-Token")
		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(given)) != 1 {
			logging.FromContext(r.Context()).Warn("Rejected internal request without a valid worker token")
			s.respondError(w, r, apperrors.NewUnauthorizedError(service.MsgUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}
