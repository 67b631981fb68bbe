package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"storefront/internal/platform/resilience"
)

// HTTP validates tokens against the authority's HTTP validation endpoint.
// Any non-success status is an invalid-token verdict, not an error; only
// transport-level failures surface as errors.
type HTTP struct {
	baseURL string
	client  *http.Client
	res     *resilience.Context
	logger  *slog.Logger
}

func NewHTTP(baseURL string, client *http.Client, res *resilience.Context, logger *slog.Logger) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{baseURL: baseURL, client: client, res: res, logger: logger}
}

// Validate implements TokenValidator.
func (h *HTTP) Validate(ctx context.Context, token string) (Identity, error) {
	var identity Identity

	err := h.res.Execute(ctx, resilience.ClassHTTP, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/auth/validate", nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := h.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resilience.HTTPStatusRetryable(resp.StatusCode) {
			return fmt.Errorf("validation endpoint returned %d: %w", resp.StatusCode, ErrAuthorityUnavailable)
		}
		if resp.StatusCode != http.StatusOK {
			identity = Identity{}
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(&identity)
	})
	if err != nil {
		if IsAuthorityUnavailable(err) || resilience.HTTPRetryable(err) || resilience.IsCircuitOpen(err) {
			h.logger.WarnContext(ctx, "validation endpoint unreachable", "error", err)
			return Identity{}, fmt.Errorf("%w: %w", ErrAuthorityUnavailable, err)
		}
		return Identity{}, fmt.Errorf("validate token http: %w", err)
	}
	if !identity.IsValid {
		return Identity{}, nil
	}
	return identity, nil
}
