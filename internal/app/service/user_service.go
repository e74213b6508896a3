package service

import (
	"context"
	"fmt"

	"codegrade/internal/domain/model"
	"codegrade/internal/domain/repository"
	"codegrade/internal/platform/logger"

	"go.uber.org/zap"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

type UserService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{userRepo: userRepo, log: log}
}

// Profile returns the user together with the ids of solved problems.
func (s *UserService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	solved, err := s.userRepo.SolvedProblemIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load solved problems: %w", err)
	}
	user.ProblemsSolved = solved
	return user, nil
}

func (s *UserService) SolvedProblems(ctx context.Context, userID string) ([]model.ProblemSummary, error) {
	return s.userRepo.SolvedProblems(ctx, userID)
}

// DeleteProfile removes the user along with their submissions.
func (s *UserService) DeleteProfile(ctx context.Context, userID string) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	logger.FromContext(ctx, s.log).Info("user deleted")
	return nil
}

func (s *UserService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit < 1 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}
	return s.userRepo.Leaderboard(ctx, limit)
}
