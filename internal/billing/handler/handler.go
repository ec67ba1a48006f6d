// Package handler exposes /fees with their items and /payments with their
// applications. Both are administrative.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"condo/internal/access"
	"condo/internal/billing/models"
	"condo/internal/billing/service"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/httputil"
	request "condo/pkg/platform/middleware/request"
)

type Service interface {
	ListFees(ctx context.Context, filter models.FeeFilter) ([]*models.Fee, error)
	GetFee(ctx context.Context, feeID id.FeeID) (*models.Fee, error)
	CreateFee(ctx context.Context, in service.FeeInput) (*models.Fee, error)
	UpdateFee(ctx context.Context, feeID id.FeeID, p service.FeePatch) (*models.Fee, error)
	DeleteFee(ctx context.Context, feeID id.FeeID) error

	ListPayments(ctx context.Context) ([]*models.Payment, error)
	GetPayment(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error)
	CreatePayment(ctx context.Context, in service.PaymentInput) (*models.Payment, error)
	UpdatePayment(ctx context.Context, paymentID id.PaymentID, p service.PaymentPatch) (*models.Payment, error)
	DeletePayment(ctx context.Context, paymentID id.PaymentID) error
}

type Handler struct {
	billing Service
	guard   *access.Guard
	logger  *slog.Logger
}

func New(billing Service, guard *access.Guard, logger *slog.Logger) *Handler {
	return &Handler{billing: billing, guard: guard, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.guard.Require(access.Fees, access.ActionList)).Get("/fees", h.HandleListFees)
	r.With(h.guard.Require(access.Fees, access.ActionCreate)).Post("/fees", h.HandleCreateFee)
	r.With(h.guard.Require(access.Fees, access.ActionRetrieve)).Get("/fees/{id}", h.HandleGetFee)
	r.With(h.guard.Require(access.Fees, access.ActionUpdate)).Patch("/fees/{id}", h.HandleUpdateFee)
	r.With(h.guard.Require(access.Fees, access.ActionDelete)).Delete("/fees/{id}", h.HandleDeleteFee)

	r.With(h.guard.Require(access.Payments, access.ActionList)).Get("/payments", h.HandleListPayments)
	r.With(h.guard.Require(access.Payments, access.ActionCreate)).Post("/payments", h.HandleCreatePayment)
	r.With(h.guard.Require(access.Payments, access.ActionRetrieve)).Get("/payments/{id}", h.HandleGetPayment)
	r.With(h.guard.Require(access.Payments, access.ActionUpdate)).Patch("/payments/{id}", h.HandleUpdatePayment)
	r.With(h.guard.Require(access.Payments, access.ActionDelete)).Delete("/payments/{id}", h.HandleDeletePayment)
}

// HandleListFees accepts unit_id and unpaid query filters.
func (h *Handler) HandleListFees(w http.ResponseWriter, r *http.Request) {
	var filter models.FeeFilter
	if v := r.URL.Query().Get("unit_id"); v != "" {
		unitID, err := id.ParseUnitID(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.UnitID = &unitID
	}
	if v := r.URL.Query().Get("unpaid"); v != "" {
		unpaid, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, dErrors.Validation(map[string][]string{"unpaid": {"Must be a valid boolean."}}))
			return
		}
		filter.UnpaidOnly = unpaid
	}
	fees, err := h.billing.ListFees(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fees)
}

func (h *Handler) HandleGetFee(w http.ResponseWriter, r *http.Request) {
	feeID, err := id.ParseFeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	f, err := h.billing.GetFee(r.Context(), feeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) HandleCreateFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateFeeRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	f, err := h.billing.CreateFee(ctx, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, f)
}

func (h *Handler) HandleUpdateFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	feeID, err := id.ParseFeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateFeeRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	f, err := h.billing.UpdateFee(ctx, feeID, req.toPatch())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) HandleDeleteFee(w http.ResponseWriter, r *http.Request) {
	feeID, err := id.ParseFeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.billing.DeleteFee(r.Context(), feeID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.billing.ListPayments(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payments)
}

func (h *Handler) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.billing.GetPayment(r.Context(), paymentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreatePaymentRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	p, err := h.billing.CreatePayment(ctx, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) HandleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdatePaymentRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	p, err := h.billing.UpdatePayment(ctx, paymentID, req.toPatch())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleDeletePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.billing.DeletePayment(r.Context(), paymentID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
