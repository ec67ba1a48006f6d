package handler

import (
	"strings"
	"time"

	"condo/internal/billing/models"
	"condo/internal/billing/service"
	id "condo/pkg/domain"
	"condo/pkg/platform/httputil"
)

type ItemRequest struct {
	Description string `json:"description" validate:"required,max=200"`
	Amount      int64  `json:"amount" validate:"gte=0"`
}

func toItems(in []ItemRequest) []service.ItemInput {
	out := make([]service.ItemInput, 0, len(in))
	for _, it := range in {
		out = append(out, service.ItemInput{Description: strings.TrimSpace(it.Description), Amount: it.Amount})
	}
	return out
}

type CreateFeeRequest struct {
	UnitID    *id.UnitID    `json:"unit_id" validate:"required"`
	FeeTypeID *id.CatalogID `json:"fee_type_id" validate:"required"`
	StatusID  *id.CatalogID `json:"status_id"`
	Amount    *int64        `json:"amount" validate:"omitempty,gte=0"`
	IssueDate *models.Date  `json:"issue_date"`
	DueDate   *models.Date  `json:"due_date" validate:"required"`
	Items     []ItemRequest `json:"items" validate:"dive"`
}

func (r *CreateFeeRequest) toInput() service.FeeInput {
	return service.FeeInput{
		UnitID:    *r.UnitID,
		FeeTypeID: *r.FeeTypeID,
		StatusID:  r.StatusID,
		Amount:    r.Amount,
		IssueDate: r.IssueDate,
		DueDate:   *r.DueDate,
		Items:     toItems(r.Items),
	}
}

// UpdateFeeRequest is a partial update. Sending items replaces all items.
type UpdateFeeRequest struct {
	UnitID    *id.UnitID     `json:"unit_id"`
	FeeTypeID *id.CatalogID  `json:"fee_type_id"`
	StatusID  *id.CatalogID  `json:"status_id"`
	Amount    *int64         `json:"amount" validate:"omitempty,gte=0"`
	IssueDate *models.Date   `json:"issue_date"`
	DueDate   *models.Date   `json:"due_date"`
	Items     *[]ItemRequest `json:"items" validate:"omitempty,dive"`
}

func (r *UpdateFeeRequest) toPatch() service.FeePatch {
	p := service.FeePatch{
		UnitID:    r.UnitID,
		FeeTypeID: r.FeeTypeID,
		StatusID:  r.StatusID,
		Amount:    r.Amount,
		IssueDate: r.IssueDate,
		DueDate:   r.DueDate,
	}
	if r.Items != nil {
		items := toItems(*r.Items)
		p.Items = &items
	}
	return p
}

type ApplicationRequest struct {
	FeeID         *id.FeeID `json:"fee_id" validate:"required"`
	AppliedAmount int64     `json:"applied_amount" validate:"gt=0"`
}

func toApplications(in []ApplicationRequest) []service.ApplicationInput {
	out := make([]service.ApplicationInput, 0, len(in))
	for _, a := range in {
		out = append(out, service.ApplicationInput{FeeID: *a.FeeID, Amount: a.AppliedAmount})
	}
	return out
}

type CreatePaymentRequest struct {
	PaymentTypeID *id.CatalogID        `json:"payment_type_id"`
	Amount        int64                `json:"amount" validate:"gt=0"`
	PaidAt        *time.Time           `json:"paid_at"`
	Reference     string               `json:"reference" validate:"max=100"`
	Applications  []ApplicationRequest `json:"applications" validate:"dive"`
}

func (r *CreatePaymentRequest) Normalize() {
	r.Reference = strings.TrimSpace(r.Reference)
}

func (r *CreatePaymentRequest) toInput() service.PaymentInput {
	return service.PaymentInput{
		PaymentTypeID: r.PaymentTypeID,
		Amount:        r.Amount,
		PaidAt:        r.PaidAt,
		Reference:     r.Reference,
		Applications:  toApplications(r.Applications),
	}
}

// UpdatePaymentRequest is a partial update. A null payment_type_id clears
// it; sending applications replaces all of them.
type UpdatePaymentRequest struct {
	PaymentTypeID httputil.Optional[id.CatalogID] `json:"payment_type_id"`
	Amount        *int64                          `json:"amount" validate:"omitempty,gt=0"`
	PaidAt        *time.Time                      `json:"paid_at"`
	Reference     *string                         `json:"reference" validate:"omitempty,max=100"`
	Applications  *[]ApplicationRequest           `json:"applications" validate:"omitempty,dive"`
}

func (r *UpdatePaymentRequest) Normalize() {
	if r.Reference != nil {
		v := strings.TrimSpace(*r.Reference)
		r.Reference = &v
	}
}

func (r *UpdatePaymentRequest) toPatch() service.PaymentPatch {
	p := service.PaymentPatch{
		PaymentTypeID:    r.PaymentTypeID.Value,
		ClearPaymentType: r.PaymentTypeID.Null(),
		Amount:           r.Amount,
		PaidAt:           r.PaidAt,
		Reference:        r.Reference,
	}
	if r.Applications != nil {
		apps := toApplications(*r.Applications)
		p.Applications = &apps
	}
	return p
}
