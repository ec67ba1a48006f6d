package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"condo/internal/billing/models"
	catalogmodels "condo/internal/catalog/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
	"condo/pkg/requestcontext"
)

type ApplicationInput struct {
	FeeID  id.FeeID
	Amount int64
}

// PaymentInput records a payment. PaidAt defaults to now.
type PaymentInput struct {
	PaymentTypeID *id.CatalogID
	Amount        int64
	PaidAt        *time.Time
	Reference     string
	Applications  []ApplicationInput
}

// PaymentPatch is a partial update. Applications, when set, replace every
// application of the payment.
type PaymentPatch struct {
	PaymentTypeID    *id.CatalogID
	ClearPaymentType bool
	Amount           *int64
	PaidAt           *time.Time
	Reference        *string
	Applications     *[]ApplicationInput
}

func (s *Service) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	payments, err := s.store.ListPayments(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return payments, nil
}

func (s *Service) GetPayment(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	p, err := s.store.FindPayment(ctx, paymentID)
	if err != nil {
		return nil, translate(err, "payment")
	}
	return p, nil
}

// CreatePayment stores the payment and settles every fee it covers.
func (s *Service) CreatePayment(ctx context.Context, in PaymentInput) (*models.Payment, error) {
	p := &models.Payment{
		ID:            id.PaymentID(uuid.New()),
		PaymentTypeID: in.PaymentTypeID,
		Amount:        in.Amount,
		PaidAt:        requestcontext.Now(ctx),
		Reference:     in.Reference,
		Applications:  buildApplications(in.Applications),
	}
	if in.PaidAt != nil {
		p.PaidAt = *in.PaidAt
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.validatePayment(ctx, p, nil); err != nil {
			return err
		}
		if err := s.store.CreatePayment(ctx, p); err != nil {
			return err
		}
		return s.settleAll(ctx, p.FeeIDs())
	})
	if err != nil {
		return nil, translate(err, "payment")
	}
	if s.metrics != nil {
		s.metrics.RecordPayment(p.AppliedTotal())
	}
	s.logger.InfoContext(ctx, "payment recorded",
		"payment_id", p.ID.String(),
		"amount", p.Amount,
		"applied", p.AppliedTotal(),
	)
	return p, nil
}

func (s *Service) UpdatePayment(ctx context.Context, paymentID id.PaymentID, patch PaymentPatch) (*models.Payment, error) {
	var updated *models.Payment
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.store.FindPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		prev := p.Applications
		switch {
		case patch.ClearPaymentType:
			p.PaymentTypeID = nil
		case patch.PaymentTypeID != nil:
			p.PaymentTypeID = patch.PaymentTypeID
		}
		if patch.Amount != nil {
			p.Amount = *patch.Amount
		}
		if patch.PaidAt != nil {
			p.PaidAt = *patch.PaidAt
		}
		if patch.Reference != nil {
			p.Reference = *patch.Reference
		}
		if patch.Applications != nil {
			p.Applications = buildApplications(*patch.Applications)
		}
		if err := s.validatePayment(ctx, p, prev); err != nil {
			return err
		}
		if err := s.store.UpdatePayment(ctx, p); err != nil {
			return err
		}
		affected := append(feeIDsOf(prev), p.FeeIDs()...)
		if err := s.settleAll(ctx, affected); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, translate(err, "payment")
	}
	return updated, nil
}

// DeletePayment removes the payment and reopens fees it no longer covers.
func (s *Service) DeletePayment(ctx context.Context, paymentID id.PaymentID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.store.FindPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := s.store.DeletePayment(ctx, paymentID); err != nil {
			return err
		}
		return s.settleAll(ctx, p.FeeIDs())
	})
	if err != nil {
		return translate(err, "payment")
	}
	return nil
}

func buildApplications(in []ApplicationInput) []models.Application {
	out := make([]models.Application, 0, len(in))
	for _, a := range in {
		out = append(out, models.Application{FeeID: a.FeeID, AppliedAmount: a.Amount})
	}
	return out
}

func feeIDsOf(apps []models.Application) []id.FeeID {
	out := make([]id.FeeID, 0, len(apps))
	for _, a := range apps {
		out = append(out, a.FeeID)
	}
	return out
}

func (s *Service) settleAll(ctx context.Context, feeIDs []id.FeeID) error {
	seen := make(map[id.FeeID]bool, len(feeIDs))
	for _, feeID := range feeIDs {
		if seen[feeID] {
			continue
		}
		seen[feeID] = true
		if err := s.settle(ctx, feeID); err != nil {
			return err
		}
	}
	return nil
}

// validatePayment checks the payment against its fees. prev holds the
// applications the payment had before an update; they do not count
// against the outstanding balance.
func (s *Service) validatePayment(ctx context.Context, p *models.Payment, prev []models.Application) error {
	fields := dErrors.FieldErrors{}
	if p.Amount <= 0 {
		fields.Add("amount", "Ensure this value is greater than 0.")
	}
	if p.PaymentTypeID != nil {
		if _, err := s.lookup(ctx, fields, "payment_type_id", catalogmodels.PaymentTypes, *p.PaymentTypeID); err != nil {
			return err
		}
	}

	before := make(map[id.FeeID]int64, len(prev))
	for _, a := range prev {
		before[a.FeeID] += a.AppliedAmount
	}
	if err := s.store.LockFees(ctx, lockSet(prev, p.Applications)); err != nil {
		return err
	}
	seen := make(map[id.FeeID]bool, len(p.Applications))
	for i, a := range p.Applications {
		field := fmt.Sprintf("applications[%d]", i)
		if a.AppliedAmount <= 0 {
			fields.Add(field+".applied_amount", "Ensure this value is greater than 0.")
		}
		if seen[a.FeeID] {
			fields.Add(field+".fee_id", "Fee is listed more than once.")
			continue
		}
		seen[a.FeeID] = true

		fee, err := s.store.FindFee(ctx, a.FeeID)
		if err != nil {
			if isNotFound(err) {
				fields.Add(field+".fee_id", invalidPK(a.FeeID.String()))
				continue
			}
			return err
		}
		outstanding := fee.Amount - (fee.Applied - before[a.FeeID])
		if a.AppliedAmount > outstanding {
			fields.Add(field+".applied_amount",
				fmt.Sprintf("Applied amount exceeds the outstanding balance of the fee (%d).", max(outstanding, 0)))
		}
	}
	if p.AppliedTotal() > p.Amount {
		fields.Add("applications", "Applied amounts exceed the payment amount.")
	}
	return fields.Err()
}

// lockSet returns the distinct fees touched by either application set,
// sorted so every caller locks in the same order.
func lockSet(prev, next []models.Application) []id.FeeID {
	set := make(map[id.FeeID]struct{}, len(prev)+len(next))
	for _, a := range prev {
		set[a.FeeID] = struct{}{}
	}
	for _, a := range next {
		set[a.FeeID] = struct{}{}
	}
	out := make([]id.FeeID, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b id.FeeID) int { return strings.Compare(a.String(), b.String()) })
	return out
}

func isNotFound(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeNotFound) || errors.Is(err, sentinel.ErrNotFound)
}
