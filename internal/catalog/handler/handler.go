// Package handler exposes the reference tables as CRUD collections.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"condo/internal/access"
	"condo/internal/catalog/models"
	"condo/internal/catalog/service"
	id "condo/pkg/domain"
	"condo/pkg/platform/httputil"
	request "condo/pkg/platform/middleware/request"
)

type Service interface {
	List(ctx context.Context, kind models.Kind) ([]*models.Entry, error)
	Get(ctx context.Context, kind models.Kind, entryID id.CatalogID) (*models.Entry, error)
	Create(ctx context.Context, kind models.Kind, in service.Input) (*models.Entry, error)
	Update(ctx context.Context, kind models.Kind, entryID id.CatalogID, p service.Patch) (*models.Entry, error)
	Delete(ctx context.Context, kind models.Kind, entryID id.CatalogID) error
}

type Handler struct {
	catalog Service
	guard   *access.Guard
	logger  *slog.Logger
}

func New(catalog Service, guard *access.Guard, logger *slog.Logger) *Handler {
	return &Handler{catalog: catalog, guard: guard, logger: logger}
}

// Register mounts one collection per reference table. Each collection is
// guarded by the access resource of the same name.
func (h *Handler) Register(r chi.Router) {
	for _, kind := range models.Kinds {
		res := access.Resource(kind)
		base := "/" + kind.String()
		r.With(h.guard.Require(res, access.ActionList)).Get(base, h.handleList(kind))
		r.With(h.guard.Require(res, access.ActionCreate)).Post(base, h.handleCreate(kind))
		r.With(h.guard.Require(res, access.ActionRetrieve)).Get(base+"/{id}", h.handleGet(kind))
		r.With(h.guard.Require(res, access.ActionUpdate)).Patch(base+"/{id}", h.handleUpdate(kind))
		r.With(h.guard.Require(res, access.ActionDelete)).Delete(base+"/{id}", h.handleDelete(kind))
	}
}

func (h *Handler) handleList(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := h.catalog.List(r.Context(), kind)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, entries)
	}
}

func (h *Handler) handleGet(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := id.ParseCatalogID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		entry, err := h.catalog.Get(r.Context(), kind, entryID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, entry)
	}
}

func (h *Handler) handleCreate(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, ok := httputil.DecodeAndPrepare[EntryRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
		if !ok {
			return
		}
		entry, err := h.catalog.Create(ctx, kind, req.toInput())
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, entry)
	}
}

func (h *Handler) handleUpdate(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		entryID, err := id.ParseCatalogID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		req, ok := httputil.DecodeAndPrepare[PatchEntryRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
		if !ok {
			return
		}
		entry, err := h.catalog.Update(ctx, kind, entryID, req.toPatch())
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, entry)
	}
}

func (h *Handler) handleDelete(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := id.ParseCatalogID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if err := h.catalog.Delete(r.Context(), kind, entryID); err != nil {
			httputil.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
