// Package service implements registration and login for the identity
// service. Login is the one place bearer tokens are minted.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"storefront/internal/identity/models"
	"storefront/internal/identity/secrets"
	"storefront/internal/identity/token"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/sentinel"
)

// UserStore is the persistence surface the service needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenCounter observes issued tokens.
type TokenCounter interface {
	Inc()
}

// Service registers users and issues tokens.
type Service struct {
	users    UserStore
	issuer   *token.Issuer
	tokenTTL time.Duration
	logger   *slog.Logger
	issued   TokenCounter
}

func New(users UserStore, issuer *token.Issuer, tokenTTL time.Duration, logger *slog.Logger, issued TokenCounter) (*Service, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if issuer == nil {
		return nil, errors.New("token issuer is required")
	}
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &Service{users: users, issuer: issuer, tokenTTL: tokenTTL, logger: logger, issued: issued}, nil
}

// Register creates an account and immediately issues a token for it.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.TokenResponse, error) {
	if req == nil || req.Email == "" || req.Password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}

	hash, err := secrets.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{"customer"}
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "create user", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return s.issueFor(user)
}

// Login verifies credentials and issues a token.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	if req == nil || req.Email == "" || req.Password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "find user", err)
	}
	if err := secrets.Verify(req.Password, user.PasswordHash); err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeUnauthorized {
			return nil, err
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "verify credentials", err)
	}

	return s.issueFor(user)
}

func (s *Service) issueFor(user *models.User) (*models.TokenResponse, error) {
	signed, err := s.issuer.Issue(token.Subject{
		UserID: user.ID.String(),
		Email:  user.Email,
		Roles:  user.Roles,
	}, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "sign token", err)
	}
	if s.issued != nil {
		s.issued.Inc()
	}
	return &models.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokenTTL.Seconds()),
	}, nil
}
