// Package validator decodes and verifies bearer tokens for downstream
// services. Two interchangeable strategies exist: local verification against
// the shared signing key, and remote verification via the identity authority.
// Both produce the same Identity shape, so the middleware never knows which
// one is wired in.
package validator

import (
	"context"
	"errors"
	"fmt"

	"storefront/pkg/sentinel"
)

// Identity is the uniform result of token validation. When IsValid is false
// every other field is zero; callers must not branch on partial identity.
type Identity struct {
	IsValid bool              `json:"isValid"`
	UserID  string            `json:"userId,omitempty"`
	Email   string            `json:"email,omitempty"`
	Roles   []string          `json:"roles,omitempty"`
	Claims  map[string]string `json:"claims,omitempty"`
}

//go:generate mockgen -source=validator.go -destination=mocks/mocks.go -package=mocks TokenValidator

// TokenValidator is the capability the auth middleware depends on.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (Identity, error)
}

// ErrAuthorityUnavailable distinguishes "could not reach the authority" from
// "the authority said no". The middleware maps it to 503, never 401.
var ErrAuthorityUnavailable = fmt.Errorf("identity authority unavailable: %w", sentinel.ErrUnavailable)

// IsAuthorityUnavailable reports whether err means the authority could not be
// consulted at all.
func IsAuthorityUnavailable(err error) bool {
	return errors.Is(err, ErrAuthorityUnavailable)
}
