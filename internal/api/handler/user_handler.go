package handler

import (
	"context"
	"net/http"

	"codegrade/internal/api/middleware"
	"codegrade/internal/common"
	"codegrade/internal/domain/model"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type userService interface {
	Profile(ctx context.Context, userID string) (*model.User, error)
	SolvedProblems(ctx context.Context, userID string) ([]model.ProblemSummary, error)
	DeleteProfile(ctx context.Context, userID string) error
}

type UserHandler struct {
	userService userService
	guards      Guards
	log         *zap.Logger
}

func NewUserHandler(us userService, guards Guards, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: us, guards: guards, log: orNop(log)}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Use(h.guards.Authenticate) // All user routes require auth
	r.Get("/me", h.profile)
	r.Delete("/me", h.deleteProfile)
	r.Get("/me/solved", h.solvedProblems)
}

func (h *UserHandler) profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	user, err := h.userService.Profile(r.Context(), userID)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) solvedProblems(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	problems, err := h.userService.SolvedProblems(r.Context(), userID)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *UserHandler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.userService.DeleteProfile(r.Context(), userID); err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	clearTokenCookie(w)
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Profile deleted"})
}
