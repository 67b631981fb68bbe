// Package handler is the thin HTTP layer of the cart service. Every cart
// route acts on the authenticated user's own cart, so nothing here is public.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"storefront/internal/cart/models"
	"storefront/internal/platform/middleware"
	"storefront/internal/transport/shared"
	dErrors "storefront/pkg/domain-errors"
)

// Service defines the cart operations the handler delegates to.
type Service interface {
	GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error)
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	AddItem(ctx context.Context, userID string, req *models.AddItemRequest) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*models.Cart, error)
}

// PublicRoutes is the allowlist the cart service hands to the auth bridge.
var PublicRoutes = []middleware.PublicRoute{
	{PathPrefix: "/healthz", Method: http.MethodGet},
	{PathPrefix: "/metrics", Method: http.MethodGet},
}

// Handler handles cart endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the cart routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/cart", h.handleGet)
	r.Post("/cart/items", h.handleAddItem)
	r.Put("/cart/items/{productId}", h.handleUpdateQuantity)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetOrCreateCart(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load cart",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cart)
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req models.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	cart, err := h.service.AddItem(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		h.logger.WarnContext(r.Context(), "add item failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"product_id", req.ProductID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cart)
}

func (h *Handler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid product id"))
		return
	}
	var req models.UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), middleware.GetUserID(r.Context()), productID, req.Quantity)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cart)
}
