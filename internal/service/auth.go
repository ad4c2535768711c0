package service

import (
	"context"
	"errors"
	"fmt"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/logger"
	"bluecollar-backend/internal/repository"
	"bluecollar-backend/internal/security"

	"golang.org/x/crypto/bcrypt"
)

type authService struct {
	userRepo repository.UserRepository
	tokens   security.TokenManager
}

func NewAuthService(userRepo repository.UserRepository, tokens security.TokenManager) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.ErrorContext(ctx, "Login lookup failed", "error", err)
			return "", nil, err
		}
		return "", nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("generate access token: %w", err)
	}
	logger.InfoContext(ctx, "User logged in", "user_id", user.ID, "role", user.Role)
	return token, user, nil
}

// ResolvePrincipal validates the bearer token and loads the caller. The role
// comes from the stored user so that role changes apply to live tokens.
func (s *authService) ResolvePrincipal(ctx context.Context, token string) (*security.Principal, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", security.ErrInvalidToken)
	}
	if err != nil {
		return nil, err
	}

	return &security.Principal{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}
