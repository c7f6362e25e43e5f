package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nitipat21/linkly/pkg/core/domain"
	"github.com/nitipat21/linkly/pkg/ports"
)

type UserService struct {
	repo  ports.UserRepository
	clock domain.Clock
}

func NewUserService(repo ports.UserRepository) *UserService {
	return &UserService{repo: repo, clock: domain.RealClock{}}
}

// Register creates an account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, domain.NewValidationError("name, email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the credentials. Unknown email and wrong password are the
// same ErrInvalidCredentials so accounts cannot be enumerated.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.NewValidationError("email and password are required")
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Profile returns the account for an id.
func (s *UserService) Profile(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindUserByID(ctx, id)
}

// FindOrCreateByEmail returns the account for a provider-verified email,
// creating a password-less one on first sign-in.
func (s *UserService) FindOrCreateByEmail(ctx context.Context, name, email string) (*domain.User, error) {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	user = &domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		// Lost a race against a concurrent first sign-in.
		if errors.Is(err, domain.ErrEmailExists) {
			return s.repo.FindUserByEmail(ctx, email)
		}
		return nil, err
	}
	return user, nil
}
