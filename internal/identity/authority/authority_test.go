package authority

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"storefront/internal/auth/validator"
	"storefront/internal/identity/token"
	"storefront/internal/platform/logger"
	"storefront/internal/platform/resilience"
	"storefront/internal/platform/rpc"
)

const (
	testKey      = "authority-test-key"
	testIssuer   = "storefront-identity"
	testAudience = "storefront"
)

func newAuthority() *Service {
	return New(testKey, testIssuer, testAudience, logger.New("test"))
}

func issueToken(t *testing.T, subject token.Subject, validity time.Duration) string {
	t.Helper()
	signed, err := token.NewIssuer(testKey, testIssuer, testAudience, time.Hour).Issue(subject, validity)
	require.NoError(t, err)
	return signed
}

func TestService_ValidateIssueRoundTrip(t *testing.T) {
	svc := newAuthority()
	subject := token.Subject{UserID: "u1", Email: "a@example.com", Roles: []string{"customer"}}

	identity := svc.Validate(context.Background(), issueToken(t, subject, time.Hour))

	assert.True(t, identity.IsValid)
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, "a@example.com", identity.Email)
	assert.Equal(t, []string{"customer"}, identity.Roles)
}

func TestService_ExpiredTokenInvalid(t *testing.T) {
	svc := newAuthority()
	identity := svc.Validate(context.Background(), issueToken(t, token.Subject{UserID: "u1"}, -time.Second))
	assert.False(t, identity.IsValid)
}

func TestHTTPHandler_ValidToken(t *testing.T) {
	svc := newAuthority()
	signed := issueToken(t, token.Subject{UserID: "u1", Email: "a@example.com"}, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/auth/validate", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	svc.HTTPHandler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"userId":"u1"`)
}

func TestHTTPHandler_MissingOrInvalidToken(t *testing.T) {
	svc := newAuthority()

	req := httptest.NewRequest(http.MethodGet, "/auth/validate", nil)
	rr := httptest.NewRecorder()
	svc.HTTPHandler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/validate", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr = httptest.NewRecorder()
	svc.HTTPHandler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// TestGRPCRoundTrip exercises the full remote validation path: hand-built
// service descriptor, JSON wire codec, channel factory, and the remote
// validator strategy against a live in-process server.
func TestGRPCRoundTrip(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := grpc.NewServer()
	RegisterTokenAuthority(server, NewGRPC(newAuthority()))
	go func() { _ = server.Serve(lis) }()
	defer server.Stop()

	host, port, err := net.SplitHostPort(lis.Addr().String())
	require.NoError(t, err)

	res := resilience.NewContext(resilience.Settings{
		MaxAttempts:      2,
		BaseDelay:        10 * time.Millisecond,
		BreakerThreshold: 5,
		BreakerOpenFor:   time.Minute,
	}, nil)
	factory := rpc.NewFactory("{host}:{port}", res, logger.New("test"))
	client, err := factory.CreateClient("identity", host, port, rpc.Settings{
		RetryCount:     2,
		TimeoutSeconds: 2,
	})
	require.NoError(t, err)
	defer client.Close()

	remote := validator.NewRemote(client, logger.New("test"))

	subject := token.Subject{UserID: "u1", Email: "a@example.com", Roles: []string{"customer", "editor"}}
	identity, err := remote.Validate(context.Background(), issueToken(t, subject, time.Hour))
	require.NoError(t, err)
	assert.True(t, identity.IsValid)
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, []string{"customer", "editor"}, identity.Roles)

	identity, err = remote.Validate(context.Background(), "garbage")
	require.NoError(t, err)
	assert.False(t, identity.IsValid)
}
