package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/auth/validator"
	"storefront/internal/platform/config"
)

// Context keys for storing the authenticated identity.
type contextKeyIdentity struct{}

// ContextKeyIdentity is exported for use in handlers and tests.
var ContextKeyIdentity = contextKeyIdentity{}

// GetIdentity retrieves the authenticated identity from the context.
func GetIdentity(ctx context.Context) (validator.Identity, bool) {
	identity, ok := ctx.Value(ContextKeyIdentity).(validator.Identity)
	return identity, ok
}

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) string {
	identity, ok := GetIdentity(ctx)
	if !ok {
		return ""
	}
	return identity.UserID
}

// HasRole reports whether the authenticated identity carries the role.
func HasRole(ctx context.Context, role string) bool {
	identity, ok := GetIdentity(ctx)
	if !ok {
		return false
	}
	for _, r := range identity.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// PublicRoute marks a (path prefix, method) pair that skips authentication.
type PublicRoute struct {
	PathPrefix string
	Method     string
}

func (p PublicRoute) matches(r *http.Request) bool {
	return r.Method == p.Method && strings.HasPrefix(r.URL.Path, p.PathPrefix)
}

// AuthResultRecorder receives the outcome of every auth decision.
type AuthResultRecorder interface {
	RecordAuthResult(result string)
}

// AuthBridge holds the configuration of the authentication middleware.
type AuthBridge struct {
	validator    validator.TokenValidator
	publicRoutes []PublicRoute
	target       config.DeploymentTarget
	logger       *slog.Logger
	recorder     AuthResultRecorder
}

// NewAuthBridge builds the middleware configuration for one service. The
// validator strategy (local or remote) is invisible to this layer.
func NewAuthBridge(
	v validator.TokenValidator,
	publicRoutes []PublicRoute,
	target config.DeploymentTarget,
	logger *slog.Logger,
	recorder AuthResultRecorder,
) *AuthBridge {
	return &AuthBridge{
		validator:    v,
		publicRoutes: publicRoutes,
		target:       target,
		logger:       logger,
		recorder:     recorder,
	}
}

// RequireAuth intercepts every request. Public routes and CORS preflights
// pass through untouched. A missing or malformed Authorization header is
// rejected without consulting the validator. Validation outcomes map to 401
// (invalid), 503 (authority unreachable), or 500 (unexpected failure); a
// valid token attaches the identity to the request context.
func (b *AuthBridge) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		for _, route := range b.publicRoutes {
			if route.matches(r) {
				next.ServeHTTP(w, r)
				return
			}
		}

		authHeader := r.Header.Get("Authorization")
		const bearerPrefix = "Bearer "
		token, ok := strings.CutPrefix(authHeader, bearerPrefix)
		if !ok || token == "" {
			b.record("missing_header")
			b.logger.WarnContext(r.Context(), "unauthorized access - missing token",
				"request_id", GetRequestID(r.Context()),
			)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		identity, err := b.validator.Validate(r.Context(), token)
		if err != nil {
			ctx := r.Context()
			requestID := GetRequestID(ctx)
			if validator.IsAuthorityUnavailable(err) {
				b.record("authority_unavailable")
				b.logger.WarnContext(ctx, "authentication authority unavailable",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusServiceUnavailable, "authority_unavailable", "Authentication service temporarily unavailable")
				return
			}
			b.record("error")
			b.logger.ErrorContext(ctx, "token validation failed unexpectedly",
				"error", err,
				"request_id", requestID,
			)
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to validate token")
			return
		}
		if !identity.IsValid {
			b.record("invalid_token")
			b.logger.WarnContext(r.Context(), "unauthorized access - invalid token",
				"request_id", GetRequestID(r.Context()),
			)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		// Gateway compatibility: only the cluster target surfaces identity
		// headers for the upstream gateway to consume.
		if b.target == config.TargetCluster {
			w.Header().Set("x-user-id", identity.UserID)
			w.Header().Set("x-user-email", identity.Email)
			w.Header().Set("x-user-roles", strings.Join(identity.Roles, ","))
		}

		b.record("ok")
		ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (b *AuthBridge) record(result string) {
	if b.recorder != nil {
		b.recorder.RecordAuthResult(result)
	}
}

// writeJSONError writes a JSON error response with the given status code.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":%q,"error_description":%q}`, errCode, errDesc))
}
