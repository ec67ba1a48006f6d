// Package handler exposes the /notices board. Reads are public; only
// administrators see inactive or expired notices.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"condo/internal/access"
	"condo/internal/notice/models"
	"condo/internal/notice/service"
	id "condo/pkg/domain"
	"condo/pkg/platform/httputil"
	request "condo/pkg/platform/middleware/request"
)

type Service interface {
	List(ctx context.Context, all bool) ([]*models.Notice, error)
	Get(ctx context.Context, noticeID id.NoticeID, all bool) (*models.Notice, error)
	Create(ctx context.Context, in service.Input) (*models.Notice, error)
	Update(ctx context.Context, noticeID id.NoticeID, p service.Patch) (*models.Notice, error)
	Delete(ctx context.Context, noticeID id.NoticeID) error
}

type Handler struct {
	notices Service
	guard   *access.Guard
	logger  *slog.Logger
}

func New(notices Service, guard *access.Guard, logger *slog.Logger) *Handler {
	return &Handler{notices: notices, guard: guard, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.guard.Require(access.Notices, access.ActionList)).Get("/notices", h.HandleList)
	r.With(h.guard.Require(access.Notices, access.ActionCreate)).Post("/notices", h.HandleCreate)
	r.With(h.guard.Require(access.Notices, access.ActionRetrieve)).Get("/notices/{id}", h.HandleGet)
	r.With(h.guard.Require(access.Notices, access.ActionUpdate)).Patch("/notices/{id}", h.HandleUpdate)
	r.With(h.guard.Require(access.Notices, access.ActionDelete)).Delete("/notices/{id}", h.HandleDelete)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notices, err := h.notices.List(ctx, access.IsAdmin(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notices)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	noticeID, err := id.ParseNoticeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	n, err := h.notices.Get(ctx, noticeID, access.IsAdmin(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateNoticeRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	n, err := h.notices.Create(ctx, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, n)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	noticeID, err := id.ParseNoticeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateNoticeRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	n, err := h.notices.Update(ctx, noticeID, req.toPatch())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	noticeID, err := id.ParseNoticeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.notices.Delete(r.Context(), noticeID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
