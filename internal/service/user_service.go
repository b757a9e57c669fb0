// Package service holds the business rules behind the HTTP handlers.
package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// errInvalidCredentials is returned for every failed login so callers cannot
// tell an unknown username from a wrong password.
var errInvalidCredentials = models.NewUnauthorizedError("Invalid credentials")

type UserService struct {
	userRepo  repository.UserRepository
	hashCost  int
	dummyHash []byte
}

type RegisterInput struct {
	Username string
	Password string
}

// NewUserService creates a UserService. A zero hashCost selects bcrypt.DefaultCost.
func NewUserService(userRepo repository.UserRepository, hashCost int) *UserService {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	// Compared against when the username is unknown so both failure paths cost one bcrypt round.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("inkwell-dummy-password"), hashCost)
	return &UserService{userRepo: userRepo, hashCost: hashCost, dummyHash: dummy}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Password: string(hashed),
	}
	// The unique index on username rejects duplicates, including concurrent ones.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user whose password matches, or a generic
// unauthorized error for any failure.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, errInvalidCredentials
	}

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, errInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
