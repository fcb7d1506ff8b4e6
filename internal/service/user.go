package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/agrofund/loan-service/internal/auth"
	"github.com/agrofund/loan-service/internal/models"
	"github.com/agrofund/loan-service/internal/repository"
	"github.com/agrofund/loan-service/internal/validation"
)

// Register creates a new user with hashed password. Addresses listed in
// ADMIN_EMAILS are registered as administrators.
func (s *Service) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	user := &models.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleFarmer,
	}
	for _, admin := range s.config.AdminEmails {
		if admin == email {
			user.Role = models.RoleAdmin
			break
		}
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.log.Infof("User registered: %s (%s)", user.Email, user.Role)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, in models.LoginInput) (string, error) {
	if err := validation.Struct(in); err != nil {
		return "", err
	}

	user, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := auth.IssueToken(s.config.JWTSecret, s.config.JWTTTL, user, s.now())
	if err != nil {
		return "", err
	}

	s.log.Infof("User logged in: %s", user.Email)
	return token, nil
}

// ParseToken verifies a bearer token issued by Login
func (s *Service) ParseToken(token string) (auth.Identity, error) {
	return auth.ParseToken(s.config.JWTSecret, token)
}
