package services

import (
	"context"
	"errors"
	"fmt"

	"socialhub/internal/auth"
	"socialhub/internal/metrics"
	"socialhub/internal/models"
	"socialhub/internal/repositories"
)

// AuthService handles registration, login and account operations.
type AuthService struct {
	userRepo repositories.UserRepository
	hasher   auth.Hasher
	tokens   auth.TokenIssuer
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, hasher auth.Hasher, tokens auth.TokenIssuer) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
	}
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	ID       uint   `json:"id"`
}

// RegisterUser hashes the password and stores a new user. A taken username
// yields ErrDuplicateUsername.
func (s *AuthService) RegisterUser(ctx context.Context, username, password string) (*models.User, error) {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		metrics.Registrations.WithLabelValues("error").Inc()
		return nil, err
	}

	user := &models.User{Username: username, PasswordHash: hashed}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			metrics.Registrations.WithLabelValues("duplicate").Inc()
			return nil, ErrDuplicateUsername
		}
		metrics.Registrations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	metrics.Registrations.WithLabelValues("created").Inc()
	return user, nil
}

// LoginUser checks credentials and issues a token. Missing users and wrong
// passwords are reported as distinct errors.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			metrics.Logins.WithLabelValues("unknown_user").Inc()
			return nil, ErrUserNotFound
		}
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		metrics.Logins.WithLabelValues("wrong_password").Inc()
		return nil, ErrWrongPassword
	}

	token, err := s.tokens.Issue(user.Username, user.ID)
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.Logins.WithLabelValues("success").Inc()
	return &LoginResult{Token: token, Username: user.Username, ID: user.ID}, nil
}

// ChangePassword replaces the password of the user named in claims after
// checking oldPassword.
func (s *AuthService) ChangePassword(ctx context.Context, claims *auth.Claims, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return ErrWrongPasswordCombination
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, claims.Username, hashed); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// BasicInfo returns the public identity of the user with the given id.
func (s *AuthService) BasicInfo(ctx context.Context, id uint) (*models.UserIdentity, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	identity := user.Identity()
	return &identity, nil
}
