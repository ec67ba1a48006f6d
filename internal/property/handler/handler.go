// Package handler exposes the unit registry.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"condo/internal/access"
	"condo/internal/property/models"
	"condo/internal/property/service"
	id "condo/pkg/domain"
	"condo/pkg/platform/httputil"
	request "condo/pkg/platform/middleware/request"
)

type Service interface {
	List(ctx context.Context) ([]*models.Unit, error)
	Get(ctx context.Context, unitID id.UnitID) (*models.Unit, error)
	Create(ctx context.Context, in service.Input) (*models.Unit, error)
	Update(ctx context.Context, unitID id.UnitID, p service.Patch) (*models.Unit, error)
	Delete(ctx context.Context, unitID id.UnitID) error
}

type Handler struct {
	units  Service
	guard  *access.Guard
	logger *slog.Logger
}

func New(units Service, guard *access.Guard, logger *slog.Logger) *Handler {
	return &Handler{units: units, guard: guard, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.guard.Require(access.Units, access.ActionList)).Get("/units", h.HandleList)
	r.With(h.guard.Require(access.Units, access.ActionCreate)).Post("/units", h.HandleCreate)
	r.With(h.guard.Require(access.Units, access.ActionRetrieve)).Get("/units/{id}", h.HandleGet)
	r.With(h.guard.Require(access.Units, access.ActionUpdate)).Patch("/units/{id}", h.HandleUpdate)
	r.With(h.guard.Require(access.Units, access.ActionDelete)).Delete("/units/{id}", h.HandleDelete)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	units, err := h.units.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, units)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	unitID, err := id.ParseUnitID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	unit, err := h.units.Get(r.Context(), unitID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, unit)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateUnitRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	unit, err := h.units.Create(ctx, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, unit)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	unitID, err := id.ParseUnitID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateUnitRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	unit, err := h.units.Update(ctx, unitID, req.toPatch())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, unit)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	unitID, err := id.ParseUnitID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.units.Delete(r.Context(), unitID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
