package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"condo/internal/access"
	"condo/internal/roles"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/httputil"
)

// Handler serves the read-only group listing.
type Handler struct {
	registry *roles.Registry
	guard    *access.Guard
	logger   *slog.Logger
}

func New(registry *roles.Registry, guard *access.Guard, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, guard: guard, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.guard.Require(access.Groups, access.ActionList)).Get("/groups", h.HandleList)
	r.With(h.guard.Require(access.Groups, access.ActionRetrieve)).Get("/groups/{id}", h.HandleGet)
}

func (h *Handler) HandleList(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.registry.All())
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	roleID, err := id.ParseRoleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, ok := h.registry.ByID(roleID)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "group not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, role)
}
