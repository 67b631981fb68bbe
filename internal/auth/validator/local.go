package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Local verifies tokens in-process against the shared signing key. A failed
// verification (bad signature, wrong issuer or audience, expired) is an
// expected outcome, not an error: it yields an invalid Identity and nil error.
type Local struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewLocal(signingKey, issuer, audience string) *Local {
	return &Local{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Validate implements TokenValidator. Expiry is enforced exactly: no clock
// skew leeway.
func (l *Local) Validate(_ context.Context, token string) (Identity, error) {
	parsed, err := jwt.Parse(token,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenUnverifiable
			}
			return l.signingKey, nil
		},
		jwt.WithIssuer(l.issuer),
		jwt.WithAudience(l.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, nil
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, nil
	}
	return identityFromClaims(claims), nil
}

// identityFromClaims flattens every claim into the Identity. Roles keep their
// token order; the claims map resolves duplicate keys last-wins, which
// encoding/json already guarantees when decoding the payload.
func identityFromClaims(claims jwt.MapClaims) Identity {
	id := Identity{
		IsValid: true,
		Claims:  make(map[string]string, len(claims)),
	}
	for key, value := range claims {
		id.Claims[key] = claimString(value)
	}
	if sub, ok := claims["sub"].(string); ok {
		id.UserID = sub
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if raw, ok := claims["roles"].([]any); ok {
		for _, r := range raw {
			if role, ok := r.(string); ok {
				id.Roles = append(id.Roles, role)
			}
		}
	}
	return id
}

func claimString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// NumericDate claims decode as float64 seconds.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case []any:
		out := ""
		for i, item := range val {
			if i > 0 {
				out += ","
			}
			out += claimString(item)
		}
		return out
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
