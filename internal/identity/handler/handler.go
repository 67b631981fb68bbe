// Package handler is the thin HTTP layer of the identity service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/identity/authority"
	"storefront/internal/identity/models"
	"storefront/internal/platform/middleware"
	"storefront/internal/transport/shared"
	dErrors "storefront/pkg/domain-errors"
)

// Service defines the identity operations the handler delegates to.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.TokenResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error)
}

// Handler handles identity endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Service
	authority *authority.Service
}

func New(service Service, auth *authority.Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service, authority: auth}
}

// Register registers the identity routes with the chi router. Everything here
// is public: registration and login precede any token, and the validation
// endpoint authenticates via the token it is asked to judge.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Get("/auth/validate", h.authority.HTTPHandler())
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(r.Context(), "invalid register request",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.logger.WarnContext(r.Context(), "registration failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.logger.WarnContext(r.Context(), "login failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}
