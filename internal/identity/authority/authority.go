// Package authority answers token validation requests from downstream
// services, over gRPC and over HTTP. Both transports delegate to the same
// verification logic so their verdicts can never diverge.
package authority

import (
	"context"
	"log/slog"

	"storefront/internal/auth/validator"
)

// Service is the authoritative token verifier on the identity side.
type Service struct {
	verifier *validator.Local
	logger   *slog.Logger
}

func New(signingKey, issuer, audience string, logger *slog.Logger) *Service {
	return &Service{
		verifier: validator.NewLocal(signingKey, issuer, audience),
		logger:   logger,
	}
}

// Validate returns the verdict for a raw bearer token. A failed verification
// is a negative verdict, never an error.
func (s *Service) Validate(ctx context.Context, rawToken string) validator.Identity {
	identity, err := s.verifier.Validate(ctx, rawToken)
	if err != nil {
		// Local verification does not fail operationally; treat any surprise
		// as a negative verdict rather than leaking an error to callers.
		s.logger.ErrorContext(ctx, "unexpected verification failure", "error", err)
		return validator.Identity{}
	}
	return identity
}
