// Package rpc constructs resilient gRPC clients to named remote services.
// Endpoints come from a {host}/{port} template so the same wiring serves
// local, compose, and cluster deployments.
package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"storefront/internal/platform/resilience"
	"storefront/internal/platform/rpc/wire"
)

// Settings tunes one client. Zero values fall back to conservative defaults.
type Settings struct {
	RetryCount          int
	TimeoutSeconds      int
	EnableKeepAlive     bool
	MaxConnsPerEndpoint int // physical connections pooled per endpoint
}

// ExpandTemplate substitutes {host} and {port} placeholders in a URL template.
func ExpandTemplate(template, host, port string) string {
	out := strings.ReplaceAll(template, "{host}", host)
	return strings.ReplaceAll(out, "{port}", port)
}

// Factory builds clients that share one resilience context, so every call to
// any remote service feeds the single rpc-class breaker.
type Factory struct {
	template string
	res      *resilience.Context
	logger   *slog.Logger
}

func NewFactory(template string, res *resilience.Context, logger *slog.Logger) *Factory {
	return &Factory{template: template, res: res, logger: logger}
}

// CreateClient dials the named service at host/port derived from the template.
// The returned client wraps every call with the rpc-class retry policy and
// breaker and applies the per-call deadline from settings. A positive
// RetryCount overrides the shared retry budget for this client only; the
// breaker is always the shared rpc-class one so every remote's failures feed
// the same trip decision.
func (f *Factory) CreateClient(serviceName, host, port string, s Settings) (*Client, error) {
	target := ExpandTemplate(f.template, host, port)

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if s.EnableKeepAlive {
		opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}))
	} else {
		// Without keepalive, recycle idle connections after a fixed window.
		opts = append(opts, grpc.WithIdleTimeout(5*time.Minute))
	}

	pool := s.MaxConnsPerEndpoint
	if pool < 1 {
		pool = 1
	}
	conns := make([]*grpc.ClientConn, 0, pool)
	for i := 0; i < pool; i++ {
		conn, err := grpc.NewClient(target, opts...)
		if err != nil {
			for _, c := range conns {
				_ = c.Close()
			}
			return nil, fmt.Errorf("dial %s at %s: %w", serviceName, target, err)
		}
		conns = append(conns, conn)
	}

	timeout := time.Duration(s.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	retry := f.res.Retry(resilience.ClassRPC)
	if s.RetryCount > 0 {
		retry = retry.WithMaxAttempts(s.RetryCount)
	}

	f.logger.Info("rpc client created",
		"service", serviceName,
		"target", target,
		"pool_size", pool,
		"retry_budget", retry.MaxAttempts(),
		"keepalive", s.EnableKeepAlive,
	)

	return &Client{
		serviceName: serviceName,
		conns:       conns,
		timeout:     timeout,
		retry:       retry,
		breaker:     f.res.Breaker(resilience.ClassRPC),
	}, nil
}

// Client is a pooled, policy-wrapped gRPC client to one remote service.
type Client struct {
	serviceName string
	conns       []*grpc.ClientConn
	next        atomic.Uint64
	timeout     time.Duration
	retry       *resilience.RetryPolicy
	breaker     *resilience.CircuitBreaker
}

// Invoke performs a unary call with the JSON wire codec. Each attempt gets a
// fresh deadline; transient failures are retried under the client's budget and
// the shared rpc breaker observes every outcome.
func (c *Client) Invoke(ctx context.Context, fullMethod string, in, out any) error {
	tracer := otel.Tracer("storefront/platform/rpc")
	ctx, span := tracer.Start(ctx, fullMethod)
	span.SetAttributes(attribute.String("rpc.service", c.serviceName))
	defer span.End()

	return c.retry.Execute(ctx, func(ctx context.Context) error {
		if !c.breaker.Allow() {
			return resilience.ErrCircuitOpen
		}
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		conn := c.conns[c.next.Add(1)%uint64(len(c.conns))]
		err := conn.Invoke(callCtx, fullMethod, in, out,
			grpc.CallContentSubtype(wire.CodecName))
		if err != nil {
			c.breaker.RecordFailure()
			return err
		}
		c.breaker.RecordSuccess()
		return nil
	})
}

// Close releases all pooled connections.
func (c *Client) Close() error {
	var firstErr error
	for _, conn := range c.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
