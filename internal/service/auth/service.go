package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medcore/clinic-api/internal/model"
	"github.com/medcore/clinic-api/internal/repository"
	"github.com/medcore/clinic-api/pkg/auth"
	"github.com/medcore/clinic-api/pkg/security"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	users  repository.UserRepository
	jwtSvc auth.JWTService
	hasher security.PasswordHasher
	expiry time.Duration
}

func NewService(users repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher, expiry time.Duration) *Service {
	return &Service{
		users:  users,
		jwtSvc: jwtSvc,
		hasher: hasher,
		expiry: expiry,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtSvc.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.TokenResponse{
		AccessToken: token,
		ExpiresAt:   time.Now().Add(s.expiry),
		User:        user,
	}, nil
}

func (s *Service) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	return s.jwtSvc.ValidateToken(token)
}
