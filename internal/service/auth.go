package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/taskdeck/taskdeck-go/internal/apperr"
	"github.com/taskdeck/taskdeck-go/internal/crypto"
	"github.com/taskdeck/taskdeck-go/internal/model"
	"github.com/taskdeck/taskdeck-go/internal/repository"
	"github.com/taskdeck/taskdeck-go/internal/token"
)

// invalidCredentials is the uniform login failure. It never distinguishes an
// unknown email from a wrong password.
const invalidCredentials = "invalid email or password"

// AuthService handles authentication business logic.
type AuthService struct {
	users    *repository.UserRepository
	tokens   *token.Service
	validate *validator.Validate
}

// NewAuthService creates a new AuthService.
func NewAuthService(users *repository.UserRepository, tokens *token.Service) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Signup creates a new user account and returns an auth token.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (model.AuthResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return model.AuthResponse{}, credentialValidationError(err)
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return model.AuthResponse{}, apperr.Wrap(apperr.KindInternal, "hashing password", err)
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, apperr.New(apperr.KindConflict, "email already registered")
		}
		return model.AuthResponse{}, apperr.Wrap(apperr.KindStorage, "creating user", err)
	}

	return s.issueToken(user)
}

// Login authenticates a user and returns an auth token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return model.AuthResponse{}, credentialValidationError(err)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.AuthResponse{}, apperr.New(apperr.KindAuthentication, invalidCredentials)
		}
		return model.AuthResponse{}, apperr.Wrap(apperr.KindStorage, "looking up user", err)
	}

	if !crypto.VerifyPassword(req.Password, user.PasswordHash) {
		return model.AuthResponse{}, apperr.New(apperr.KindAuthentication, invalidCredentials)
	}

	return s.issueToken(user)
}

// CurrentUser retrieves a user by ID and returns safe user data.
func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (model.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, apperr.New(apperr.KindNotFound, "user not found")
		}
		return model.UserResponse{}, apperr.Wrap(apperr.KindStorage, "looking up user", err)
	}

	return model.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (s *AuthService) issueToken(user *model.User) (model.AuthResponse, error) {
	tok, err := s.tokens.Issue(user.Email, user.ID)
	if err != nil {
		return model.AuthResponse{}, apperr.Wrap(apperr.KindInternal, "signing token", err)
	}
	return model.AuthResponse{Token: tok}, nil
}

// credentialValidationError maps the first validator failure to a field-level
// message, keeping validation failures distinguishable from auth failures.
func credentialValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch {
		case fe.Field() == "Email" && fe.Tag() == "email":
			return apperr.New(apperr.KindValidation, "email must be a valid email address")
		case fe.Field() == "Email":
			return apperr.New(apperr.KindValidation, "email is required")
		default:
			return apperr.New(apperr.KindValidation, "password is required")
		}
	}
	return apperr.Wrap(apperr.KindValidation, "invalid request", err)
}
