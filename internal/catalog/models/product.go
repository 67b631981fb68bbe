package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "storefront/pkg/domain-errors"
)

// Product is the catalog's authoritative view of a sellable item.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	CategoryID  uuid.UUID `json:"categoryId"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateProductRequest is the creation payload.
type CreateProductRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	CategoryID  uuid.UUID `json:"categoryId"`
}

// Validate enforces the catalog's invariants on creation.
func (r *CreateProductRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "product name is required")
	}
	if r.Price < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "price cannot be negative")
	}
	return nil
}

// UpdatePriceRequest is the price mutation payload.
type UpdatePriceRequest struct {
	NewPrice float64 `json:"newPrice"`
}
