package middleware

import (
	"context"
	"errors"
	"net/http"

	"codegrade/internal/common"
	"codegrade/internal/common/security"
	"codegrade/internal/domain/model"
	"codegrade/internal/domain/repository"
	"codegrade/internal/platform/logger"

	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDCtxKey   contextKey = "userID"
	UserRoleCtxKey contextKey = "userRole"
	TokenCtxKey    contextKey = "token"
)

// Verifier finds a token in the Authorization header or the token cookie.
func Verifier(tokens *security.TokenManager) func(http.Handler) http.Handler {
	return jwtauth.Verify(tokens.Auth(), jwtauth.TokenFromHeader, security.TokenFromCookie)
}

// Authenticator rejects requests without a valid, non revoked token and
// stores the caller's id and role in the request context.
func Authenticator(blocklist repository.TokenBlocklist, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				if errors.Is(err, jwtauth.ErrNoTokenFound) || token == nil {
					common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
				} else {
					common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
				}
				return
			}

			raw := security.TokenFromRequest(r)
			revoked, err := blocklist.IsRevoked(r.Context(), raw)
			if err != nil {
				logger.FromContext(r.Context(), log).Error("token blocklist lookup failed", zap.Error(err))
				common.RespondWithErr(w, err)
				return
			}
			if revoked {
				common.RespondWithError(w, http.StatusUnauthorized, "Token has been revoked")
				return
			}

			userID, err := security.GetUserIDFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
				return
			}
			userRole, err := security.GetUserRoleFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
			ctx = context.WithValue(ctx, UserRoleCtxKey, userRole)
			ctx = context.WithValue(ctx, TokenCtxKey, raw)
			ctx = logger.WithUserID(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(UserRoleCtxKey).(string)
		if !ok || role != model.RoleAdmin {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Helper to get user ID from context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok
}

// Helper to get user role from context
func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	userRole, ok := ctx.Value(UserRoleCtxKey).(string)
	return userRole, ok
}

func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenCtxKey).(string)
	return token, ok
}
