package validator

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/identity/token"
)

const (
	testKey      = "test-signing-key"
	testIssuer   = "storefront-identity"
	testAudience = "storefront"
)

func issueTestToken(t *testing.T, subject token.Subject, validity time.Duration) string {
	t.Helper()
	issuer := token.NewIssuer(testKey, testIssuer, testAudience, time.Hour)
	signed, err := issuer.Issue(subject, validity)
	require.NoError(t, err)
	return signed
}

func TestLocal_ValidTokenRoundTrip(t *testing.T) {
	subject := token.Subject{
		UserID: "b7a6b3f0-9d0e-4c7a-8e43-48c1a1d0c001",
		Email:  "shopper@example.com",
		Roles:  []string{"customer", "editor"},
	}
	signed := issueTestToken(t, subject, time.Hour)

	local := NewLocal(testKey, testIssuer, testAudience)
	identity, err := local.Validate(context.Background(), signed)

	require.NoError(t, err)
	assert.True(t, identity.IsValid)
	assert.Equal(t, subject.UserID, identity.UserID)
	assert.Equal(t, subject.Email, identity.Email)
	assert.Equal(t, []string{"customer", "editor"}, identity.Roles, "roles keep token order")
	assert.Equal(t, subject.UserID, identity.Claims["sub"])
	assert.Equal(t, testIssuer, identity.Claims["iss"])
	assert.Equal(t, "customer,editor", identity.Claims["roles"])
}

func TestLocal_ExpiredTokenIsInvalidNotError(t *testing.T) {
	subject := token.Subject{UserID: "u1", Email: "late@example.com"}
	signed := issueTestToken(t, subject, -time.Minute)

	local := NewLocal(testKey, testIssuer, testAudience)
	identity, err := local.Validate(context.Background(), signed)

	require.NoError(t, err, "expired tokens are an expected outcome")
	assert.False(t, identity.IsValid)
	assert.Empty(t, identity.UserID, "invalid identity carries no fields")
	assert.Empty(t, identity.Email)
	assert.Empty(t, identity.Roles)
	assert.Empty(t, identity.Claims)
}

func TestLocal_WrongKeyIsInvalid(t *testing.T) {
	signed := issueTestToken(t, token.Subject{UserID: "u1"}, time.Hour)

	local := NewLocal("a-different-key", testIssuer, testAudience)
	identity, err := local.Validate(context.Background(), signed)

	require.NoError(t, err)
	assert.False(t, identity.IsValid)
}

func TestLocal_WrongAudienceIsInvalid(t *testing.T) {
	signed := issueTestToken(t, token.Subject{UserID: "u1"}, time.Hour)

	local := NewLocal(testKey, testIssuer, "someone-else")
	identity, err := local.Validate(context.Background(), signed)

	require.NoError(t, err)
	assert.False(t, identity.IsValid)
}

func TestLocal_WrongIssuerIsInvalid(t *testing.T) {
	signed := issueTestToken(t, token.Subject{UserID: "u1"}, time.Hour)

	local := NewLocal(testKey, "rogue-issuer", testAudience)
	identity, err := local.Validate(context.Background(), signed)

	require.NoError(t, err)
	assert.False(t, identity.IsValid)
}

func TestLocal_RejectsNonHMACAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u1",
		"iss": testIssuer,
		"aud": testAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	local := NewLocal(testKey, testIssuer, testAudience)
	identity, verr := local.Validate(context.Background(), signed)

	require.NoError(t, verr)
	assert.False(t, identity.IsValid)
}

func TestLocal_GarbageTokenIsInvalid(t *testing.T) {
	local := NewLocal(testKey, testIssuer, testAudience)
	identity, err := local.Validate(context.Background(), "not-a-jwt")

	require.NoError(t, err)
	assert.False(t, identity.IsValid)
}

func TestLocal_ZeroRolesYieldsEmptySet(t *testing.T) {
	signed := issueTestToken(t, token.Subject{UserID: "u1", Email: "x@example.com"}, time.Hour)

	local := NewLocal(testKey, testIssuer, testAudience)
	identity, err := local.Validate(context.Background(), signed)

	require.NoError(t, err)
	assert.True(t, identity.IsValid)
	assert.Empty(t, identity.Roles)
}
