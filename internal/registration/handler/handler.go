// Package handler exposes the self-service registration endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"condo/internal/registration/models"
	"condo/internal/registration/service"
	"condo/pkg/platform/httputil"
	request "condo/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type Service interface {
	Register(ctx context.Context, in service.Input) (*models.Registration, error)
}

type Handler struct {
	registration Service
	logger       *slog.Logger
}

func New(registration Service, logger *slog.Logger) *Handler {
	return &Handler{registration: registration, logger: logger}
}

// RegisterPublic mounts the anonymous sign-up route. The router applies rate
// limiting to this group.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/register", h.HandleRegister)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	out, err := h.registration.Register(ctx, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "registration completed",
		"user_id", out.ID.String(),
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusCreated, out)
}
