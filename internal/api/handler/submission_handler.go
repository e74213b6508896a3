package handler

import (
	"context"
	"net/http"

	"codegrade/internal/api/middleware"
	"codegrade/internal/app/service"
	"codegrade/internal/common"
	"codegrade/internal/domain/model"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type submissionService interface {
	Submit(ctx context.Context, userID, problemID string, req service.SubmitRequest) (*model.Submission, error)
	Run(ctx context.Context, userID, problemID string, req service.SubmitRequest) ([]model.RunCaseResult, error)
	GetSubmission(ctx context.Context, userID, role, submissionID string) (*model.Submission, error)
}

type SubmissionHandler struct {
	submissionService submissionService
	guards            Guards
	log               *zap.Logger
}

func NewSubmissionHandler(ss submissionService, guards Guards, log *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss, guards: guards, log: orNop(log)}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(h.guards.Authenticate) // All submission routes require auth
	// {id} is a submission id on GET and a problem id on the POST actions
	r.Get("/{id}", h.getSubmission)
	r.With(h.guards.Cooldown).Post("/{id}/submit", h.submit)
	r.With(h.guards.Cooldown).Post("/{id}/run", h.run)
}

func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req service.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	submission, err := h.submissionService.Submit(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, submission)
}

func (h *SubmissionHandler) run(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req service.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	results, err := h.submissionService.Run(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())

	sub, err := h.submissionService.GetSubmission(r.Context(), userID, role, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}
