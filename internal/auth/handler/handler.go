// Package handler exposes login, token and identity endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"condo/internal/access"
	"condo/internal/auth/models"
	"condo/internal/auth/service"
	id "condo/pkg/domain"
	"condo/pkg/platform/httputil"
	request "condo/pkg/platform/middleware/request"
)

// Service is the subset of the auth service used by the handlers.
type Service interface {
	Login(ctx context.Context, username, pw string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AccessToken, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context) (*models.IdentityView, error)
	ListUsers(ctx context.Context) ([]models.IdentityView, error)
	GetUser(ctx context.Context, userID id.UserID) (*models.IdentityView, error)
	UpdateUser(ctx context.Context, userID id.UserID, upd service.UserUpdate) (*models.IdentityView, error)
	DeleteUser(ctx context.Context, userID id.UserID) error
}

type Handler struct {
	auth   Service
	guard  *access.Guard
	logger *slog.Logger
}

func New(auth Service, guard *access.Guard, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, guard: guard, logger: logger}
}

// RegisterPublic mounts the credential endpoints. The router applies rate
// limiting to this group.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/login", h.HandleLogin)
	r.Post("/token/refresh", h.HandleRefresh)
	r.Post("/logout", h.HandleLogout)
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.guard.Require(access.Self, access.ActionRetrieve)).Get("/users/me", h.HandleMe)
	r.With(h.guard.Require(access.Users, access.ActionList)).Get("/users", h.HandleListUsers)
	r.With(h.guard.Require(access.Users, access.ActionRetrieve)).Get("/users/{id}", h.HandleGetUser)
	r.With(h.guard.Require(access.Users, access.ActionUpdate)).Patch("/users/{id}", h.HandleUpdateUser)
	r.With(h.guard.Require(access.Users, access.ActionDelete)).Delete("/users/{id}", h.HandleDeleteUser)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	pair, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RefreshRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	tok, err := h.auth.Refresh(ctx, req.Refresh)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tok)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RefreshRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	if err := h.auth.Logout(ctx, req.Refresh); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	view, err := h.auth.Me(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateUserRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	view, err := h.auth.UpdateUser(ctx, userID, req.toUpdate())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.auth.DeleteUser(r.Context(), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
