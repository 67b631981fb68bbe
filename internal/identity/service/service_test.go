package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/auth/validator"
	"storefront/internal/identity/models"
	"storefront/internal/identity/store/user"
	"storefront/internal/identity/token"
	"storefront/internal/platform/logger"
	dErrors "storefront/pkg/domain-errors"
)

const (
	testKey      = "service-test-key"
	testIssuer   = "storefront-identity"
	testAudience = "storefront"
)

type IdentityServiceSuite struct {
	suite.Suite
	store   *user.MemoryStore
	service *Service
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.store = user.NewMemoryStore()
	issuer := token.NewIssuer(testKey, testIssuer, testAudience, time.Hour)

	var err error
	s.service, err = New(s.store, issuer, time.Hour, logger.New("test"), nil)
	s.Require().NoError(err)
}

func (s *IdentityServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, token.NewIssuer(testKey, testIssuer, testAudience, time.Hour), time.Hour, logger.New("test"), nil)
		s.Error(err)
	})
	s.Run("nil issuer returns error", func() {
		_, err := New(s.store, nil, time.Hour, logger.New("test"), nil)
		s.Error(err)
	})
}

func (s *IdentityServiceSuite) TestRegisterIssuesValidToken() {
	ctx := context.Background()
	resp, err := s.service.Register(ctx, &models.RegisterRequest{
		Email:    "shopper@example.com",
		Password: "hunter2!",
		Roles:    []string{"customer", "editor"},
	})
	s.Require().NoError(err)
	s.Equal("Bearer", resp.TokenType)
	s.Equal(3600, resp.ExpiresIn)

	local := validator.NewLocal(testKey, testIssuer, testAudience)
	identity, err := local.Validate(ctx, resp.AccessToken)
	s.Require().NoError(err)
	s.True(identity.IsValid)
	s.Equal("shopper@example.com", identity.Email)
	s.Equal([]string{"customer", "editor"}, identity.Roles)
}

func (s *IdentityServiceSuite) TestRegisterDuplicateEmailConflicts() {
	ctx := context.Background()
	req := &models.RegisterRequest{Email: "dup@example.com", Password: "pw"}

	_, err := s.service.Register(ctx, req)
	s.Require().NoError(err)

	_, err = s.service.Register(ctx, req)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

func (s *IdentityServiceSuite) TestLogin() {
	ctx := context.Background()
	_, err := s.service.Register(ctx, &models.RegisterRequest{Email: "a@example.com", Password: "right"})
	s.Require().NoError(err)

	s.Run("correct credentials issue a token", func() {
		resp, err := s.service.Login(ctx, &models.LoginRequest{Email: "a@example.com", Password: "right"})
		s.NoError(err)
		s.NotEmpty(resp.AccessToken)
	})

	s.Run("wrong password is unauthorized", func() {
		_, err := s.service.Login(ctx, &models.LoginRequest{Email: "a@example.com", Password: "wrong"})
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown email is unauthorized, not not-found", func() {
		_, err := s.service.Login(ctx, &models.LoginRequest{Email: "ghost@example.com", Password: "any"})
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})
}

func (s *IdentityServiceSuite) TestRegisterStoresBcryptHash() {
	ctx := context.Background()
	_, err := s.service.Register(ctx, &models.RegisterRequest{Email: "b@example.com", Password: "hunter2!"})
	s.Require().NoError(err)

	stored, err := s.store.FindByEmail(ctx, "b@example.com")
	s.Require().NoError(err)
	s.True(strings.HasPrefix(stored.PasswordHash, "$2a$"), "expected a bcrypt hash, got %q", stored.PasswordHash)
	s.NotContains(stored.PasswordHash, "hunter2!")
	s.NoError(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter2!")))
}

func (s *IdentityServiceSuite) TestRegisterValidation() {
	_, err := s.service.Register(context.Background(), &models.RegisterRequest{Email: "", Password: ""})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}
