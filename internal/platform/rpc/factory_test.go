package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/platform/logger"
	"storefront/internal/platform/resilience"
)

func TestExpandTemplate(t *testing.T) {
	assert.Equal(t, "localhost:9081", ExpandTemplate("{host}:{port}", "localhost", "9081"))
	assert.Equal(t, "dns:///identity:9081", ExpandTemplate("dns:///{host}:{port}", "identity", "9081"))
	assert.Equal(t, "static", ExpandTemplate("static", "h", "p"))
}

func TestFactory_CreateClientPoolsConnections(t *testing.T) {
	res := resilience.NewContext(resilience.Settings{MaxAttempts: 1}, nil)
	f := NewFactory("{host}:{port}", res, logger.New("test"))

	// grpc.NewClient is lazy, so construction succeeds without a live server.
	client, err := f.CreateClient("identity", "localhost", "19081", Settings{
		RetryCount:          2,
		TimeoutSeconds:      1,
		EnableKeepAlive:     true,
		MaxConnsPerEndpoint: 3,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.Len(t, client.conns, 3)
}

func TestFactory_RetryCountOverridesSharedBudget(t *testing.T) {
	res := resilience.NewContext(resilience.Settings{MaxAttempts: 1}, nil)
	f := NewFactory("{host}:{port}", res, logger.New("test"))

	client, err := f.CreateClient("identity", "localhost", "19081", Settings{RetryCount: 4})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 4, client.retry.MaxAttempts())
	// The breaker stays shared so every remote feeds one trip decision.
	assert.Same(t, res.Breaker(resilience.ClassRPC), client.breaker)
}

func TestFactory_ZeroRetryCountUsesSharedPolicy(t *testing.T) {
	res := resilience.NewContext(resilience.Settings{MaxAttempts: 3}, nil)
	f := NewFactory("{host}:{port}", res, logger.New("test"))

	client, err := f.CreateClient("identity", "localhost", "19081", Settings{})
	require.NoError(t, err)
	defer client.Close()

	assert.Same(t, res.Retry(resilience.ClassRPC), client.retry)
}

func TestFactory_DefaultsApply(t *testing.T) {
	res := resilience.NewContext(resilience.Settings{MaxAttempts: 1}, nil)
	f := NewFactory("{host}:{port}", res, logger.New("test"))

	client, err := f.CreateClient("identity", "localhost", "19081", Settings{})
	require.NoError(t, err)
	defer client.Close()

	assert.Len(t, client.conns, 1)
	assert.Equal(t, "5s", client.timeout.String())
}
