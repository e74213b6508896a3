package middleware

import (
	"net/http"
	"time"

	"codegrade/internal/platform/logger"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// AccessLog writes one line per request. Server errors are logged at error level.
func AccessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
			}
			l := logger.FromContext(r.Context(), log)
			switch {
			case status >= http.StatusInternalServerError:
				l.Error("request", fields...)
			case status >= http.StatusBadRequest:
				l.Warn("request", fields...)
			default:
				l.Info("request", fields...)
			}
		})
	}
}
