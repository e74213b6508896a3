package middleware

import (
	"context"
	"net/http"

	"codegrade/internal/common"
	"codegrade/internal/platform/logger"

	"go.uber.org/zap"
)

type Limiter interface {
	Allow(ctx context.Context, userID string) error
}

// Cooldown throttles authenticated callers. It must run after Authenticator.
func Cooldown(l Limiter, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				common.RespondWithError(w, http.StatusUnauthorized, "User not authenticated")
				return
			}
			if err := l.Allow(r.Context(), userID); err != nil {
				if common.HTTPStatusFromError(err) >= http.StatusInternalServerError {
					logger.FromContext(r.Context(), log).Error("rate limiter unavailable", zap.Error(err))
				}
				common.RespondWithErr(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
