package service

import (
	"context"
	"fmt"

	"codegrade/internal/app/executor"
	"codegrade/internal/common"
	"codegrade/internal/domain/model"
	"codegrade/internal/domain/repository"
	"codegrade/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	exec        executor.Client
	log         *zap.Logger
}

func NewProblemService(problemRepo repository.ProblemRepository, exec executor.Client, log *zap.Logger) *ProblemService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProblemService{problemRepo: problemRepo, exec: exec, log: log}
}

// ProblemRequest is the full problem document accepted on create and update.
type ProblemRequest struct {
	Title              string                    `json:"title" validate:"required,min=3,max=120"`
	Description        string                    `json:"description" validate:"required"`
	Difficulty         model.ProblemDifficulty   `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Tags               []string                  `json:"tags" validate:"required,min=1,dive,problemtag"`
	VisibleTestCases   []model.VisibleTestCase   `json:"visible_test_cases" validate:"required,min=1,dive"`
	HiddenTestCases    []model.TestCase          `json:"hidden_test_cases" validate:"required,min=1,dive"`
	StartCode          []model.StartCode         `json:"start_code" validate:"dive"`
	ReferenceSolutions []model.ReferenceSolution `json:"reference_solutions" validate:"required,min=1,dive"`
}

type ListFilter struct {
	Page       int
	Limit      int
	Difficulty model.ProblemDifficulty
	Tags       []string
}

type ProblemPage struct {
	Problems []model.ProblemSummary `json:"problems"`
	Total    int                    `json:"total"`
	Page     int                    `json:"page"`
	Limit    int                    `json:"limit"`
}

func (s *ProblemService) Create(ctx context.Context, adminID string, req ProblemRequest) (*model.Problem, error) {
	if err := s.checkRequest(ctx, req); err != nil {
		return nil, err
	}

	problem := req.toProblem()
	problem.ID = uuid.NewString()
	problem.CreatedByID = adminID
	if err := s.problemRepo.Create(ctx, problem); err != nil {
		return nil, fmt.Errorf("failed to create problem: %w", err)
	}

	logger.FromContext(ctx, s.log).Info("problem created",
		zap.String("problem_id", problem.ID), zap.String("slug", problem.Slug))
	return problem, nil
}

// Update replaces every field of an existing problem.
func (s *ProblemService) Update(ctx context.Context, problemID string, req ProblemRequest) (*model.Problem, error) {
	if _, err := s.problemRepo.FindByID(ctx, problemID); err != nil {
		return nil, err
	}
	if err := s.checkRequest(ctx, req); err != nil {
		return nil, err
	}

	problem := req.toProblem()
	problem.ID = problemID
	if err := s.problemRepo.Update(ctx, problem); err != nil {
		return nil, fmt.Errorf("failed to update problem: %w", err)
	}

	logger.FromContext(ctx, s.log).Info("problem updated", zap.String("problem_id", problem.ID))
	return problem, nil
}

func (s *ProblemService) Delete(ctx context.Context, problemID string) error {
	if err := s.problemRepo.Delete(ctx, problemID); err != nil {
		return err
	}
	logger.FromContext(ctx, s.log).Info("problem deleted", zap.String("problem_id", problemID))
	return nil
}

// Get hides hidden test cases and reference solutions from non-admins.
func (s *ProblemService) Get(ctx context.Context, problemID, role string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if role != model.RoleAdmin {
		view := problem.PublicView()
		return &view, nil
	}
	return problem, nil
}

func (s *ProblemService) List(ctx context.Context, f ListFilter) (*ProblemPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	switch f.Difficulty {
	case "", model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		return nil, fmt.Errorf("unknown difficulty %q: %w", f.Difficulty, common.ErrValidation)
	}

	problems, total, err := s.problemRepo.List(ctx, repository.ProblemFilter{
		Limit:      f.Limit,
		Offset:     (f.Page - 1) * f.Limit,
		Difficulty: f.Difficulty,
		Tags:       f.Tags,
	})
	if err != nil {
		return nil, err
	}
	return &ProblemPage{Problems: problems, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (req ProblemRequest) toProblem() *model.Problem {
	return &model.Problem{
		Title:              req.Title,
		Slug:               slug.Make(req.Title),
		Description:        req.Description,
		Difficulty:         req.Difficulty,
		Tags:               req.Tags,
		VisibleTestCases:   req.VisibleTestCases,
		HiddenTestCases:    req.HiddenTestCases,
		StartCode:          req.StartCode,
		ReferenceSolutions: req.ReferenceSolutions,
	}
}

func (s *ProblemService) checkRequest(ctx context.Context, req ProblemRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	for _, sc := range req.StartCode {
		if _, err := executor.LanguageID(sc.Language); err != nil {
			return err
		}
	}
	return s.checkReferenceSolutions(ctx, req)
}

// checkReferenceSolutions runs every reference solution on the visible test
// cases. All of them must match before the problem can be stored.
func (s *ProblemService) checkReferenceSolutions(ctx context.Context, req ProblemRequest) error {
	for _, ref := range req.ReferenceSolutions {
		langID, err := executor.LanguageID(ref.Language)
		if err != nil {
			return err
		}

		items := make([]model.BatchItem, len(req.VisibleTestCases))
		for i, tc := range req.VisibleTestCases {
			items[i] = model.BatchItem{
				SourceCode:     ref.CompleteCode,
				LanguageID:     langID,
				Stdin:          tc.Input,
				ExpectedOutput: tc.Output,
			}
		}

		results, err := executor.Execute(ctx, s.exec, items)
		if err != nil {
			return fmt.Errorf("failed to check %s reference solution: %w", ref.Language, err)
		}
		for i, r := range results {
			if r.Status != model.ExecMatched {
				return fmt.Errorf("%w: %s solution got %s on visible test case %d: %w",
					common.ErrReferenceRejected, ref.Language, r.Status, i+1, common.ErrValidation)
			}
		}
	}
	return nil
}
