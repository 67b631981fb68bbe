package validator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storefront/internal/platform/resilience"
	"storefront/internal/platform/rpc/wire"
)

// Invoker is the slice of the rpc client the remote strategy needs.
type Invoker interface {
	Invoke(ctx context.Context, fullMethod string, in, out any) error
}

// Remote validates tokens by asking the identity authority over gRPC. The
// underlying client already carries the rpc-class retry policy and breaker,
// so by the time an error reaches this layer the policy budget is spent.
type Remote struct {
	client Invoker
	logger *slog.Logger
}

func NewRemote(client Invoker, logger *slog.Logger) *Remote {
	return &Remote{client: client, logger: logger}
}

// Validate implements TokenValidator. Unreachability (deadline exhausted,
// authority down, breaker open) surfaces as ErrAuthorityUnavailable so the
// middleware can answer 503 instead of 401; any other transport failure is a
// generic error. A negative verdict from the authority is not an error.
func (r *Remote) Validate(ctx context.Context, token string) (Identity, error) {
	req := &wire.ValidateTokenRequest{Token: token}
	resp := &wire.ValidateTokenResponse{}

	if err := r.client.Invoke(ctx, wire.ValidateFullMethod, req, resp); err != nil {
		if unreachable(err) {
			r.logger.WarnContext(ctx, "identity authority unreachable", "error", err)
			return Identity{}, fmt.Errorf("%w: %w", ErrAuthorityUnavailable, err)
		}
		r.logger.ErrorContext(ctx, "token validation rpc failed", "error", err)
		return Identity{}, fmt.Errorf("validate token rpc: %w", err)
	}

	if !resp.IsValid {
		return Identity{}, nil
	}
	return Identity{
		IsValid: true,
		UserID:  resp.UserID,
		Email:   resp.Email,
		Roles:   resp.Roles,
		Claims:  resp.Claims,
	}, nil
}

func unreachable(err error) bool {
	if resilience.IsCircuitOpen(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.DeadlineExceeded, codes.Unavailable:
			return true
		}
	}
	return false
}
