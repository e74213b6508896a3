package handler

import (
	"context"
	"net/http"
	"strconv"

	"codegrade/internal/app/executor"
	"codegrade/internal/common"
	"codegrade/internal/domain/model"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type leaderboardService interface {
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

// CatalogHandler serves the public, read only endpoints.
type CatalogHandler struct {
	leaderboard leaderboardService
	log         *zap.Logger
}

func NewCatalogHandler(lb leaderboardService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{leaderboard: lb, log: orNop(log)}
}

func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/languages", h.languages)
	r.Get("/leaderboard", h.leaderboardTop)
}

func (h *CatalogHandler) languages(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, executor.Languages())
}

func (h *CatalogHandler) leaderboardTop(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.leaderboard.Leaderboard(r.Context(), limit)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}
