package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codegrade/internal/common"
	"codegrade/internal/common/security"
	"codegrade/internal/domain/model"
	"codegrade/internal/domain/repository"
	"codegrade/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService struct {
	userRepo  repository.UserRepository
	tokens    *security.TokenManager
	blocklist repository.TokenBlocklist
	log       *zap.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	tokens *security.TokenManager,
	blocklist repository.TokenBlocklist,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{userRepo: userRepo, tokens: tokens, blocklist: blocklist, log: log}
}

type SignupRequest struct {
	FirstName string `json:"first_name" validate:"required,min=3,max=20"`
	LastName  string `json:"last_name" validate:"omitempty,min=3,max=20"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,strongpassword"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	return s.register(ctx, req, model.RoleUser)
}

// RegisterAdmin creates another admin account. Callers must already be admins.
func (s *AuthService) RegisterAdmin(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	return s.register(ctx, req, model.RoleAdmin)
}

func (s *AuthService) register(ctx context.Context, req SignupRequest, role string) (*AuthResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Username:       strings.SplitN(email, "@", 2)[0],
		Email:          email,
		HashedPassword: hashedPassword,
		Role:           role,
		ProblemsSolved: []string{},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	logger.FromContext(ctx, s.log).Info("user registered", zap.String("new_user_id", user.ID), zap.String("role", role))
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized // Generic message for security
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrUnauthorized
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{User: user, Token: token}, nil
}

// Logout blocks token until it expires.
func (s *AuthService) Logout(ctx context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return common.ErrUnauthorized
	}
	if err := s.blocklist.Revoke(ctx, token, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
