package handler

import (
	"encoding/json"
	"net/http"

	"codegrade/internal/common"
	"codegrade/internal/platform/logger"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Guards are the route middlewares handlers attach to their groups.
type Guards struct {
	Authenticate func(http.Handler) http.Handler
	Cooldown     func(http.Handler) http.Handler
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// respondErr logs server side failures and writes the public error body.
func respondErr(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	if common.HTTPStatusFromError(err) >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), log).Error("request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
	}
	common.RespondWithErr(w, err)
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
