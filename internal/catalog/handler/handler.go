// Package handler is the thin HTTP layer of the catalog service. Read-only
// browsing is public; mutations require the editor role.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"storefront/internal/catalog/models"
	"storefront/internal/platform/middleware"
	"storefront/internal/transport/shared"
	dErrors "storefront/pkg/domain-errors"
)

// Service defines the catalog operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context) ([]*models.Product, error)
	UpdatePrice(ctx context.Context, id uuid.UUID, newPrice float64, changedBy string) (*models.Product, error)
}

// PublicRoutes is the allowlist the catalog service hands to the auth bridge.
var PublicRoutes = []middleware.PublicRoute{
	{PathPrefix: "/products", Method: http.MethodGet},
	{PathPrefix: "/healthz", Method: http.MethodGet},
	{PathPrefix: "/metrics", Method: http.MethodGet},
}

// Handler handles catalog endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the catalog routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/products", h.handleList)
	r.Get("/products/{id}", h.handleGet)
	r.Post("/products", h.handleCreate)
	r.Put("/products/{id}/price", h.handleUpdatePrice)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list products",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid product id"))
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, product)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !middleware.HasRole(r.Context(), "editor") {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "editor role required"))
		return
	}

	var req models.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	product, err := h.service.Create(r.Context(), &req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, product)
}

func (h *Handler) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	if !middleware.HasRole(r.Context(), "editor") {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "editor role required"))
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid product id"))
		return
	}
	var req models.UpdatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	product, err := h.service.UpdatePrice(r.Context(), id, req.NewPrice, middleware.GetUserID(r.Context()))
	if err != nil {
		h.logger.WarnContext(r.Context(), "price update failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"product_id", id.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, product)
}
