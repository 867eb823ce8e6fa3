package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jali/security/internal/auth"
	"github.com/jali/security/models"
	"github.com/jali/security/repositories"
	"github.com/jali/security/utils"
	"go.uber.org/zap"
)

// TokenIssuer mints signed tokens
type TokenIssuer interface {
	Issue(claims auth.Claims) (string, error)
	Policy() *auth.ClaimsPolicy
}

// MaxPageSize bounds ListUsers
const MaxPageSize = 100

// RegisterRequest is the payload for account registration
type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,max=72"`
}

// AuthenticationRequest is the payload for login
type AuthenticationRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

// AuthenticationResponse carries the issued bearer token
type AuthenticationResponse struct {
	Token string `json:"token"`
}

// AuthService registers users, checks credentials and resolves principals
type AuthService struct {
	users     repositories.UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	logger    *zap.Logger
	dummyHash string
}

// NewAuthService creates a new AuthService
func NewAuthService(users repositories.UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *zap.Logger) (*AuthService, error) {
	// Compared against when the account does not exist so that unknown
	// users cost the same as wrong passwords.
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// Register creates a USER account and returns a token for it
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthenticationResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if IsValidationError(err) {
			return nil, err
		}
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, ErrInternal
	}

	user := models.NewUser(req.FirstName, req.LastName, req.Email, hash, auth.RoleUser)

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			s.logger.Info("registration rejected: identifier taken", zap.String("email", user.Email))
			return nil, ErrDuplicateIdentifier
		}
		s.logger.Error("failed to create user", zap.Error(err))
		return nil, ErrInternal
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email),
	)

	return s.issue(user)
}

// Authenticate checks credentials and returns a fresh token. Unknown users
// and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, req AuthenticationRequest) (*AuthenticationResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(req.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.hasher.Verify(req.Password, s.dummyHash)
			s.logger.Debug("authentication failed", zap.String("email", email), zap.String("reason", "unknown identifier"))
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to load user", zap.Error(err))
		return nil, ErrInternal
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.logger.Debug("authentication failed", zap.String("email", email), zap.String("reason", "password mismatch"))
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("user authenticated", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// GetUser returns the account registered under identifier
func (s *AuthService) GetUser(ctx context.Context, identifier string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, models.NormalizeEmail(identifier))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ErrInternal.Wrap(err)
	}
	return user, nil
}

// ListUsers returns a page of accounts, newest first
func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if limit <= 0 || limit > MaxPageSize {
		return nil, ErrInvalidInput.Wrap(fmt.Errorf("limit %d out of range", limit)).
			WithDetail("limit", fmt.Sprintf("must be between 1 and %d", MaxPageSize))
	}
	if offset < 0 {
		return nil, ErrInvalidInput.Wrap(fmt.Errorf("offset %d is negative", offset)).
			WithDetail("offset", "must not be negative")
	}

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, ErrInternal.Wrap(err)
	}
	return users, nil
}

// LoadPrincipal resolves a token subject to a principal
func (s *AuthService) LoadPrincipal(ctx context.Context, identifier string) (auth.Principal, error) {
	user, err := s.GetUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthenticationResponse, error) {
	claims := s.tokens.Policy().NewClaims(user.Identifier(), map[string]any{
		"role": string(user.Role),
	})

	token, err := s.tokens.Issue(claims)
	if err != nil {
		s.logger.Error("failed to issue token", zap.Error(err))
		return nil, ErrInternal
	}

	return &AuthenticationResponse{Token: token}, nil
}

// validateRequest runs struct validation and converts failures to ErrInvalidInput
func validateRequest(req any) error {
	if err := utils.ValidateStruct(req); err != nil {
		domainErr := ErrInvalidInput.Wrap(err)
		for field, msg := range utils.GetValidationFields(err) {
			domainErr.WithDetail(field, msg)
		}
		return domainErr
	}
	return nil
}
