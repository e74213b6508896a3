package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codegrade/internal/app/executor"
	"codegrade/internal/common"
	"codegrade/internal/domain/model"
	"codegrade/internal/domain/repository"
	"codegrade/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	abortMessage = "grading could not be completed"
	abortTimeout = 5 * time.Second
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	userRepo       repository.UserRepository
	exec           executor.Client
	log            *zap.Logger
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	userRepo repository.UserRepository,
	exec executor.Client,
	log *zap.Logger,
) *SubmissionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SubmissionService{
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		userRepo:       userRepo,
		exec:           exec,
		log:            log,
	}
}

type SubmitRequest struct {
	Code     string `json:"code" validate:"required"`
	Language string `json:"language" validate:"required"`
}

// prepare checks the request and resolves the language before anything is stored.
func (s *SubmissionService) prepare(ctx context.Context, userID, problemID string, req SubmitRequest) (*model.Problem, int, error) {
	if userID == "" {
		return nil, 0, fmt.Errorf("user id is required: %w", common.ErrValidation)
	}
	if problemID == "" {
		return nil, 0, fmt.Errorf("problem id is required: %w", common.ErrValidation)
	}
	if err := validateStruct(req); err != nil {
		return nil, 0, err
	}
	langID, err := executor.LanguageID(req.Language)
	if err != nil {
		return nil, 0, err
	}
	problem, err := s.problemRepo.FindByID(ctx, problemID)
	if err != nil {
		return nil, 0, err
	}
	return problem, langID, nil
}

// Submit grades code against the hidden test cases and stores the outcome.
func (s *SubmissionService) Submit(ctx context.Context, userID, problemID string, req SubmitRequest) (*model.Submission, error) {
	problem, langID, err := s.prepare(ctx, userID, problemID, req)
	if err != nil {
		return nil, err
	}

	sub := &model.Submission{
		ID:             uuid.NewString(),
		UserID:         userID,
		ProblemID:      problem.ID,
		Code:           req.Code,
		Language:       req.Language,
		Status:         model.StatusPending,
		TestCasesTotal: len(problem.HiddenTestCases),
	}
	if err := s.submissionRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	log := logger.FromContext(ctx, s.log).With(
		zap.String("submission_id", sub.ID),
		zap.String("problem_id", problem.ID),
		zap.String("language", req.Language),
	)

	items := make([]model.BatchItem, len(problem.HiddenTestCases))
	for i, tc := range problem.HiddenTestCases {
		items[i] = model.BatchItem{
			SourceCode:     req.Code,
			LanguageID:     langID,
			Stdin:          tc.Input,
			ExpectedOutput: tc.Output,
		}
	}

	results, err := executor.Execute(ctx, s.exec, items)
	if err != nil {
		s.abort(ctx, sub, err, log)
		return nil, fmt.Errorf("failed to grade submission: %w", err)
	}

	verdict := AggregateVerdict(results, len(problem.HiddenTestCases))
	final, err := s.submissionRepo.Finalize(ctx, sub.ID, verdict)
	if errors.Is(err, common.ErrConflict) {
		// someone else (the pending sweeper) finalized it first; theirs stands
		return s.finalizedElsewhere(ctx, sub.ID, verdict, log)
	}
	if err != nil {
		log.Error("failed to finalize submission", zap.Error(err))
		return nil, fmt.Errorf("failed to finalize submission: %w", err)
	}

	if verdict.Status == model.StatusAccepted {
		if err := s.userRepo.AddSolvedProblem(ctx, userID, problem.ID); err != nil {
			log.Error("failed to record solved problem", zap.Error(err))
			return nil, fmt.Errorf("failed to record solved problem: %w", err)
		}
	}

	log.Info("submission graded",
		zap.String("status", string(final.Status)),
		zap.Int("passed", final.TestCasesPassed),
		zap.Int("total", final.TestCasesTotal))
	return final, nil
}

func (s *SubmissionService) finalizedElsewhere(ctx context.Context, id string, lost model.Verdict, log *zap.Logger) (*model.Submission, error) {
	stored, err := s.submissionRepo.FindByID(ctx, id)
	if err != nil {
		log.Error("failed to reload submission after finalize conflict", zap.Error(err))
		return nil, fmt.Errorf("failed to reload submission %s: %w", id, err)
	}
	if stored.Status == model.StatusPending {
		log.Error("submission still pending after finalize conflict")
		return nil, fmt.Errorf("submission %s left pending after finalize conflict", id)
	}
	log.Warn("submission finalized by another writer",
		zap.String("stored_status", string(stored.Status)),
		zap.String("discarded_status", string(lost.Status)))
	return stored, nil
}

// abort finalizes a submission whose grading failed midway.
// A judge timeout or an expired request deadline becomes judge_timeout; every
// other fault becomes internal_error.
func (s *SubmissionService) abort(ctx context.Context, sub *model.Submission, cause error, log *zap.Logger) {
	status := model.StatusInternalError
	if errors.Is(cause, common.ErrJudgeTimeout) || errors.Is(cause, context.DeadlineExceeded) {
		status = model.StatusJudgeTimeout
	}
	msg := abortMessage
	verdict := model.Verdict{Status: status, Total: sub.TestCasesTotal, ErrorMessage: &msg}

	// the request context may already be cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()

	if _, err := s.submissionRepo.Finalize(ctx, sub.ID, verdict); err != nil {
		log.Error("failed to mark submission after grading fault",
			zap.NamedError("cause", cause), zap.Error(err))
		return
	}
	log.Warn("grading aborted", zap.String("status", string(status)), zap.Error(cause))
}

// Run executes code against the visible test cases without storing anything.
func (s *SubmissionService) Run(ctx context.Context, userID, problemID string, req SubmitRequest) ([]model.RunCaseResult, error) {
	problem, langID, err := s.prepare(ctx, userID, problemID, req)
	if err != nil {
		return nil, err
	}

	items := make([]model.BatchItem, len(problem.VisibleTestCases))
	for i, tc := range problem.VisibleTestCases {
		items[i] = model.BatchItem{
			SourceCode:     req.Code,
			LanguageID:     langID,
			Stdin:          tc.Input,
			ExpectedOutput: tc.Output,
		}
	}

	results, err := executor.Execute(ctx, s.exec, items)
	if err != nil {
		return nil, fmt.Errorf("failed to run code: %w", err)
	}

	out := make([]model.RunCaseResult, len(results))
	for i, r := range results {
		out[i] = model.RunCaseResult{
			Status:         r.Status,
			StatusID:       r.StatusID,
			Stdin:          items[i].Stdin,
			ExpectedOutput: items[i].ExpectedOutput,
			Stdout:         r.Stdout,
			Stderr:         r.Stderr,
			CompileOutput:  r.CompileOutput,
			Time:           r.Time,
			Memory:         r.Memory,
		}
	}
	return out, nil
}

// GetSubmission returns a submission to its owner or to an admin.
func (s *SubmissionService) GetSubmission(ctx context.Context, userID, role, submissionID string) (*model.Submission, error) {
	sub, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID && role != model.RoleAdmin {
		return nil, common.ErrNotFound
	}
	return sub, nil
}

// ListForProblem is the caller's history on one problem, newest first.
func (s *SubmissionService) ListForProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error) {
	subs, err := s.submissionRepo.ListByUserAndProblem(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("no submissions found: %w", common.ErrNotFound)
	}
	return subs, nil
}
