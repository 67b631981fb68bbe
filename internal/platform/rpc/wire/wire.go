// Package wire defines the messages exchanged with the identity authority
// over gRPC. Messages travel as JSON through a registered codec, so no
// generated code is needed and both sides share these structs.
package wire

// TokenAuthorityService is the fully qualified gRPC service name.
const TokenAuthorityService = "storefront.identity.TokenAuthority"

// ValidateFullMethod is the full method path for token validation.
const ValidateFullMethod = "/storefront.identity.TokenAuthority/Validate"

// ValidateTokenRequest carries the raw bearer token to the authority.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse is the authority's verdict. Identity fields are empty
// whenever IsValid is false.
type ValidateTokenResponse struct {
	IsValid bool              `json:"isValid"`
	UserID  string            `json:"userId,omitempty"`
	Email   string            `json:"email,omitempty"`
	Roles   []string          `json:"roles,omitempty"`
	Claims  map[string]string `json:"claims,omitempty"`
}
