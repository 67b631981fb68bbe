// Package token mints the signed bearer tokens the identity service issues.
// Tokens are stateless: issuance records nothing, and there is no revocation
// list, so an issued token stays valid until its exact expiry.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the claims carried by every access token.
type Claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Subject identifies the principal a token is minted for.
type Subject struct {
	UserID string
	Email  string
	Roles  []string
}

// Issuer signs HS256 access tokens. The signing key is shared out-of-band
// with consumers that validate locally.
type Issuer struct {
	signingKey []byte
	issuer     string
	audience   string
	defaultTTL time.Duration
}

func NewIssuer(signingKey, issuer, audience string, defaultTTL time.Duration) *Issuer {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Issuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		defaultTTL: defaultTTL,
	}
}

// Issue mints a token for subject expiring after validity. A non-positive
// validity falls back to the configured default.
func (i *Issuer) Issue(subject Subject, validity time.Duration) (string, error) {
	if validity <= 0 {
		validity = i.defaultTTL
	}
	now := time.Now()
	claims := Claims{
		Email: subject.Email,
		Roles: subject.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			Audience:  []string{i.audience},
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
}
