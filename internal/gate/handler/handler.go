// Package handler exposes /vehicles and the /visitors gate log.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"condo/internal/access"
	"condo/internal/gate/models"
	"condo/internal/gate/service"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/httputil"
	request "condo/pkg/platform/middleware/request"
)

type Service interface {
	ListVehicles(ctx context.Context, residencyID *id.ResidencyID) ([]*models.Vehicle, error)
	GetVehicle(ctx context.Context, vehicleID id.VehicleID) (*models.Vehicle, error)
	CreateVehicle(ctx context.Context, in service.VehicleInput) (*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicleID id.VehicleID, p service.VehiclePatch) (*models.Vehicle, error)
	DeleteVehicle(ctx context.Context, vehicleID id.VehicleID) error

	ListVisitors(ctx context.Context, insideOnly bool) ([]*models.Visitor, error)
	GetVisitor(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error)
	RecordEntry(ctx context.Context, in service.VisitorInput) (*models.Visitor, error)
	RecordExit(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error)
	UpdateVisitor(ctx context.Context, visitorID id.VisitorID, p service.VisitorPatch) (*models.Visitor, error)
	DeleteVisitor(ctx context.Context, visitorID id.VisitorID) error
}

type Handler struct {
	gate   Service
	guard  *access.Guard
	logger *slog.Logger
}

func New(gate Service, guard *access.Guard, logger *slog.Logger) *Handler {
	return &Handler{gate: gate, guard: guard, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.guard.Require(access.Vehicles, access.ActionList)).Get("/vehicles", h.HandleListVehicles)
	r.With(h.guard.Require(access.Vehicles, access.ActionCreate)).Post("/vehicles", h.HandleCreateVehicle)
	r.With(h.guard.Require(access.Vehicles, access.ActionRetrieve)).Get("/vehicles/{id}", h.HandleGetVehicle)
	r.With(h.guard.Require(access.Vehicles, access.ActionUpdate)).Patch("/vehicles/{id}", h.HandleUpdateVehicle)
	r.With(h.guard.Require(access.Vehicles, access.ActionDelete)).Delete("/vehicles/{id}", h.HandleDeleteVehicle)

	r.With(h.guard.Require(access.Visitors, access.ActionList)).Get("/visitors", h.HandleListVisitors)
	r.With(h.guard.Require(access.Visitors, access.ActionCreate)).Post("/visitors", h.HandleCreateVisitor)
	r.With(h.guard.Require(access.Visitors, access.ActionRetrieve)).Get("/visitors/{id}", h.HandleGetVisitor)
	r.With(h.guard.Require(access.Visitors, access.ActionUpdate)).Patch("/visitors/{id}", h.HandleUpdateVisitor)
	r.With(h.guard.Require(access.Visitors, access.ActionUpdate)).Post("/visitors/{id}/exit", h.HandleVisitorExit)
	r.With(h.guard.Require(access.Visitors, access.ActionDelete)).Delete("/visitors/{id}", h.HandleDeleteVisitor)
}

// HandleListVehicles accepts a residency_id query filter.
func (h *Handler) HandleListVehicles(w http.ResponseWriter, r *http.Request) {
	var residencyID *id.ResidencyID
	if v := r.URL.Query().Get("residency_id"); v != "" {
		parsed, err := id.ParseResidencyID(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		residencyID = &parsed
	}
	vehicles, err := h.gate.ListVehicles(r.Context(), residencyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, vehicles)
}

func (h *Handler) HandleGetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := id.ParseVehicleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.gate.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) HandleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateVehicleRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	v, err := h.gate.CreateVehicle(ctx, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, v)
}

func (h *Handler) HandleUpdateVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vehicleID, err := id.ParseVehicleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateVehicleRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	v, err := h.gate.UpdateVehicle(ctx, vehicleID, req.toPatch())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) HandleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := id.ParseVehicleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.gate.DeleteVehicle(r.Context(), vehicleID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListVisitors accepts inside=true to list visitors still inside.
func (h *Handler) HandleListVisitors(w http.ResponseWriter, r *http.Request) {
	insideOnly := false
	if v := r.URL.Query().Get("inside"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, dErrors.Validation(map[string][]string{"inside": {"Must be a valid boolean."}}))
			return
		}
		insideOnly = parsed
	}
	visitors, err := h.gate.ListVisitors(r.Context(), insideOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, visitors)
}

func (h *Handler) HandleGetVisitor(w http.ResponseWriter, r *http.Request) {
	visitorID, err := id.ParseVisitorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.gate.GetVisitor(r.Context(), visitorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) HandleCreateVisitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateVisitorRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	v, err := h.gate.RecordEntry(ctx, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, v)
}

func (h *Handler) HandleUpdateVisitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitorID, err := id.ParseVisitorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateVisitorRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	v, err := h.gate.UpdateVisitor(ctx, visitorID, req.toPatch())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) HandleVisitorExit(w http.ResponseWriter, r *http.Request) {
	visitorID, err := id.ParseVisitorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.gate.RecordExit(r.Context(), visitorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) HandleDeleteVisitor(w http.ResponseWriter, r *http.Request) {
	visitorID, err := id.ParseVisitorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.gate.DeleteVisitor(r.Context(), visitorID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
