package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"codegrade/internal/api/middleware"
	"codegrade/internal/app/service"
	"codegrade/internal/common"
	"codegrade/internal/domain/model"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type problemService interface {
	Create(ctx context.Context, adminID string, req service.ProblemRequest) (*model.Problem, error)
	Update(ctx context.Context, problemID string, req service.ProblemRequest) (*model.Problem, error)
	Delete(ctx context.Context, problemID string) error
	Get(ctx context.Context, problemID, role string) (*model.Problem, error)
	List(ctx context.Context, f service.ListFilter) (*service.ProblemPage, error)
}

type submissionHistory interface {
	ListForProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error)
}

type ProblemHandler struct {
	problemService problemService
	history        submissionHistory
	guards         Guards
	log            *zap.Logger
}

func NewProblemHandler(ps problemService, history submissionHistory, guards Guards, log *zap.Logger) *ProblemHandler {
	return &ProblemHandler{problemService: ps, history: history, guards: guards, log: orNop(log)}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProblems) // GET /api/v1/problems

	r.Group(func(authed chi.Router) {
		authed.Use(h.guards.Authenticate)
		authed.Get("/{problemID}", h.getProblem)
		authed.Get("/{problemID}/submissions", h.listSubmissions)

		authed.Group(func(admin chi.Router) {
			admin.Use(middleware.AdminOnly)
			admin.Delete("/{problemID}", h.deleteProblem)
			admin.With(h.guards.Cooldown).Post("/", h.createProblem)
			admin.With(h.guards.Cooldown).Put("/{problemID}", h.updateProblem)
		})
	})
}

func (h *ProblemHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.ProblemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	problem, err := h.problemService.Create(r.Context(), userID, req)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *ProblemHandler) updateProblem(w http.ResponseWriter, r *http.Request) {
	var req service.ProblemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	problem, err := h.problemService.Update(r.Context(), chi.URLParam(r, "problemID"), req)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	if err := h.problemService.Delete(r.Context(), chi.URLParam(r, "problemID")); err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Problem deleted"})
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	var tags []string
	if tagsStr := q.Get("tags"); tagsStr != "" { // comma-separated
		for _, t := range strings.Split(tagsStr, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	result, err := h.problemService.List(r.Context(), service.ListFilter{
		Page:       page,
		Limit:      limit,
		Difficulty: model.ProblemDifficulty(q.Get("difficulty")),
		Tags:       tags,
	})
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	userRole, _ := middleware.GetUserRoleFromContext(r.Context())

	problem, err := h.problemService.Get(r.Context(), chi.URLParam(r, "problemID"), userRole)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	subs, err := h.history.ListForProblem(r.Context(), userID, chi.URLParam(r, "problemID"))
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}
