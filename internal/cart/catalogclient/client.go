// Package catalogclient fetches product facts from the catalog service over
// HTTP. Calls run under the http-class retry policy and breaker.
package catalogclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"storefront/internal/catalog/models"
	"storefront/internal/platform/resilience"
	"storefront/pkg/sentinel"
)

// Client reads products from the catalog's public browsing endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	res     *resilience.Context
}

func New(baseURL string, res *resilience.Context) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		res:     res,
	}
}

// GetProduct fetches one product. A 404 maps to sentinel.ErrNotFound;
// transient statuses surface as retryable errors for the policy layer.
func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := c.res.Execute(ctx, resilience.ClassHTTP, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products/"+id.String(), nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return json.NewDecoder(resp.Body).Decode(&product)
		case resp.StatusCode == http.StatusNotFound:
			return sentinel.ErrNotFound
		case resilience.HTTPStatusRetryable(resp.StatusCode):
			return fmt.Errorf("catalog returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
		default:
			return fmt.Errorf("catalog returned unexpected status %d", resp.StatusCode)
		}
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}
