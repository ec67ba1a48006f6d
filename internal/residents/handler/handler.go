// Package handler exposes persons under /residents and their residencies
// under /residencies. Both collections are administrative.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"condo/internal/access"
	"condo/internal/residents/models"
	"condo/internal/residents/service"
	id "condo/pkg/domain"
	"condo/pkg/platform/httputil"
	request "condo/pkg/platform/middleware/request"
)

type Service interface {
	ListPersons(ctx context.Context) ([]*models.Person, error)
	GetPerson(ctx context.Context, personID id.PersonID) (*models.Person, error)
	CreatePerson(ctx context.Context, in service.PersonInput) (*models.Person, error)
	UpdatePerson(ctx context.Context, personID id.PersonID, p service.PersonPatch) (*models.Person, error)
	DeletePerson(ctx context.Context, personID id.PersonID) error

	ListResidencies(ctx context.Context, filter models.ResidencyFilter) ([]*models.Residency, error)
	GetResidency(ctx context.Context, residencyID id.ResidencyID) (*models.Residency, error)
	CreateResidency(ctx context.Context, in service.ResidencyInput) (*models.Residency, error)
	UpdateResidency(ctx context.Context, residencyID id.ResidencyID, p service.ResidencyPatch) (*models.Residency, error)
	DeleteResidency(ctx context.Context, residencyID id.ResidencyID) error
}

type Handler struct {
	residents Service
	guard     *access.Guard
	logger    *slog.Logger
}

func New(residents Service, guard *access.Guard, logger *slog.Logger) *Handler {
	return &Handler{residents: residents, guard: guard, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.guard.Require(access.Persons, access.ActionList)).Get("/residents", h.HandleListPersons)
	r.With(h.guard.Require(access.Persons, access.ActionCreate)).Post("/residents", h.HandleCreatePerson)
	r.With(h.guard.Require(access.Persons, access.ActionRetrieve)).Get("/residents/{id}", h.HandleGetPerson)
	r.With(h.guard.Require(access.Persons, access.ActionUpdate)).Patch("/residents/{id}", h.HandleUpdatePerson)
	r.With(h.guard.Require(access.Persons, access.ActionDelete)).Delete("/residents/{id}", h.HandleDeletePerson)

	r.With(h.guard.Require(access.Residencies, access.ActionList)).Get("/residencies", h.HandleListResidencies)
	r.With(h.guard.Require(access.Residencies, access.ActionCreate)).Post("/residencies", h.HandleCreateResidency)
	r.With(h.guard.Require(access.Residencies, access.ActionRetrieve)).Get("/residencies/{id}", h.HandleGetResidency)
	r.With(h.guard.Require(access.Residencies, access.ActionUpdate)).Patch("/residencies/{id}", h.HandleUpdateResidency)
	r.With(h.guard.Require(access.Residencies, access.ActionDelete)).Delete("/residencies/{id}", h.HandleDeleteResidency)
}

func (h *Handler) HandleListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := h.residents.ListPersons(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, persons)
}

func (h *Handler) HandleGetPerson(w http.ResponseWriter, r *http.Request) {
	personID, err := id.ParsePersonID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.residents.GetPerson(r.Context(), personID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleCreatePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreatePersonRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	p, err := h.residents.CreatePerson(ctx, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) HandleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, err := id.ParsePersonID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdatePersonRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	p, err := h.residents.UpdatePerson(ctx, personID, req.toPatch())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleDeletePerson(w http.ResponseWriter, r *http.Request) {
	personID, err := id.ParsePersonID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.residents.DeletePerson(r.Context(), personID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListResidencies accepts unit_id and person_id query filters.
func (h *Handler) HandleListResidencies(w http.ResponseWriter, r *http.Request) {
	var filter models.ResidencyFilter
	if v := r.URL.Query().Get("unit_id"); v != "" {
		unitID, err := id.ParseUnitID(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.UnitID = &unitID
	}
	if v := r.URL.Query().Get("person_id"); v != "" {
		personID, err := id.ParsePersonID(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.PersonID = &personID
	}
	residencies, err := h.residents.ListResidencies(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, residencies)
}

func (h *Handler) HandleGetResidency(w http.ResponseWriter, r *http.Request) {
	residencyID, err := id.ParseResidencyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.residents.GetResidency(r.Context(), residencyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleCreateResidency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateResidencyRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	res, err := h.residents.CreateResidency(ctx, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) HandleUpdateResidency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	residencyID, err := id.ParseResidencyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateResidencyRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	res, err := h.residents.UpdateResidency(ctx, residencyID, req.toPatch())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleDeleteResidency(w http.ResponseWriter, r *http.Request) {
	residencyID, err := id.ParseResidencyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.residents.DeleteResidency(r.Context(), residencyID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
