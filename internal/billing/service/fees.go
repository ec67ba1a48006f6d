package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"condo/internal/billing/models"
	catalogmodels "condo/internal/catalog/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/requestcontext"
)

type ItemInput struct {
	Description string
	Amount      int64
}

// FeeInput creates a fee. With items the amount is their sum; without items
// and amount the fee type's default amount applies. StatusID defaults to
// pending and IssueDate to today.
type FeeInput struct {
	UnitID    id.UnitID
	FeeTypeID id.CatalogID
	StatusID  *id.CatalogID
	Amount    *int64
	IssueDate *models.Date
	DueDate   models.Date
	Items     []ItemInput
}

// FeePatch is a partial update. Items, when set, replace every item.
type FeePatch struct {
	UnitID    *id.UnitID
	FeeTypeID *id.CatalogID
	StatusID  *id.CatalogID
	Amount    *int64
	IssueDate *models.Date
	DueDate   *models.Date
	Items     *[]ItemInput
}

func (s *Service) ListFees(ctx context.Context, filter models.FeeFilter) ([]*models.Fee, error) {
	fees, err := s.store.ListFees(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list fees")
	}
	return fees, nil
}

func (s *Service) GetFee(ctx context.Context, feeID id.FeeID) (*models.Fee, error) {
	f, err := s.store.FindFee(ctx, feeID)
	if err != nil {
		return nil, translate(err, "fee")
	}
	return f, nil
}

func (s *Service) CreateFee(ctx context.Context, in FeeInput) (*models.Fee, error) {
	f := &models.Fee{
		ID:        id.FeeID(uuid.New()),
		UnitID:    in.UnitID,
		FeeTypeID: in.FeeTypeID,
		DueDate:   in.DueDate,
		IssueDate: models.NewDate(requestcontext.Now(ctx)),
		Items:     buildItems(in.Items),
		CreatedAt: requestcontext.Now(ctx),
	}
	if in.IssueDate != nil {
		f.IssueDate = *in.IssueDate
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		fields := dErrors.FieldErrors{}
		if err := s.checkUnit(ctx, fields, f.UnitID); err != nil {
			return err
		}
		feeType, err := s.lookup(ctx, fields, "fee_type_id", catalogmodels.FeeTypes, f.FeeTypeID)
		if err != nil {
			return err
		}
		if err := s.resolveStatus(ctx, fields, f, in.StatusID); err != nil {
			return err
		}
		s.resolveAmount(fields, f, in.Amount, len(in.Items) > 0, feeType)
		checkDates(fields, f)
		if err := fields.Err(); err != nil {
			return err
		}
		return s.store.CreateFee(ctx, f)
	})
	if err != nil {
		return nil, translate(err, "fee")
	}
	s.logger.InfoContext(ctx, "fee issued",
		"fee_id", f.ID.String(),
		"unit_id", f.UnitID.String(),
		"amount", f.Amount,
	)
	return f, nil
}

func (s *Service) UpdateFee(ctx context.Context, feeID id.FeeID, p FeePatch) (*models.Fee, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		f, err := s.store.FindFee(ctx, feeID)
		if err != nil {
			return err
		}
		fields := dErrors.FieldErrors{}
		if p.UnitID != nil {
			f.UnitID = *p.UnitID
			if err := s.checkUnit(ctx, fields, f.UnitID); err != nil {
				return err
			}
		}
		if p.FeeTypeID != nil {
			f.FeeTypeID = *p.FeeTypeID
			if _, err := s.lookup(ctx, fields, "fee_type_id", catalogmodels.FeeTypes, f.FeeTypeID); err != nil {
				return err
			}
		}
		if p.StatusID != nil {
			if err := s.resolveStatus(ctx, fields, f, p.StatusID); err != nil {
				return err
			}
		}
		if p.IssueDate != nil {
			f.IssueDate = *p.IssueDate
		}
		if p.DueDate != nil {
			f.DueDate = *p.DueDate
		}
		if p.Items != nil {
			f.Items = buildItems(*p.Items)
		}
		amount := p.Amount
		if amount == nil && len(f.Items) == 0 {
			amount = &f.Amount
		}
		s.resolveAmount(fields, f, amount, len(f.Items) > 0, nil)
		checkDates(fields, f)
		if err := fields.Err(); err != nil {
			return err
		}
		if err := s.store.UpdateFee(ctx, f); err != nil {
			return err
		}
		return s.settle(ctx, f.ID)
	})
	if err != nil {
		return nil, translate(err, "fee")
	}
	return s.GetFee(ctx, feeID)
}

// DeleteFee removes the fee. Payments applied to it stay, without the
// application.
func (s *Service) DeleteFee(ctx context.Context, feeID id.FeeID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.DeleteFee(ctx, feeID)
	})
	if err != nil {
		return translate(err, "fee")
	}
	s.logger.InfoContext(ctx, "fee deleted", "fee_id", feeID.String())
	return nil
}

func buildItems(in []ItemInput) []models.FeeItem {
	items := make([]models.FeeItem, 0, len(in))
	for _, it := range in {
		items = append(items, models.FeeItem{
			ID:          id.FeeItemID(uuid.New()),
			Description: it.Description,
			Amount:      it.Amount,
		})
	}
	return items
}

func (s *Service) checkUnit(ctx context.Context, fields dErrors.FieldErrors, unitID id.UnitID) error {
	_, err := s.units.Get(ctx, unitID)
	switch {
	case err == nil:
		return nil
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		fields.Add("unit_id", invalidPK(unitID.String()))
		return nil
	default:
		return err
	}
}

// resolveStatus sets the fee status, defaulting to pending.
func (s *Service) resolveStatus(ctx context.Context, fields dErrors.FieldErrors, f *models.Fee, statusID *id.CatalogID) error {
	if statusID != nil {
		entry, err := s.lookup(ctx, fields, "status_id", catalogmodels.FeeStatuses, *statusID)
		if err != nil {
			return err
		}
		if entry != nil {
			f.StatusID = entry.ID
		}
		return nil
	}
	pending, err := s.catalog.FindByName(ctx, catalogmodels.FeeStatuses, catalogmodels.StatusPending)
	switch {
	case err == nil:
		f.StatusID = pending.ID
		return nil
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		fields.Add("status_id", "This field is required.")
		return nil
	default:
		return err
	}
}

// resolveAmount derives the fee amount. Items win; a given amount must
// match their sum.
func (s *Service) resolveAmount(fields dErrors.FieldErrors, f *models.Fee, amount *int64, hasItems bool, feeType *catalogmodels.Entry) {
	for i, it := range f.Items {
		if it.Amount < 0 {
			fields.Add(fmt.Sprintf("items[%d].amount", i), "Ensure this value is greater than or equal to 0.")
		}
	}
	switch {
	case hasItems:
		total := f.ItemsTotal()
		if amount != nil && *amount != total {
			fields.Add("amount", fmt.Sprintf("Amount must equal the sum of the items (%d).", total))
		}
		f.Amount = total
	case amount != nil:
		f.Amount = *amount
	case feeType != nil && feeType.DefaultAmount != nil:
		f.Amount = *feeType.DefaultAmount
	default:
		fields.Add("amount", "This field is required.")
	}
	if f.Amount < 0 {
		fields.Add("amount", "Ensure this value is greater than or equal to 0.")
	}
}

func checkDates(fields dErrors.FieldErrors, f *models.Fee) {
	if f.DueDate.IsZero() {
		fields.Add("due_date", "This field is required.")
		return
	}
	if f.DueDate.Before(f.IssueDate.Time) {
		fields.Add("due_date", "Due date cannot be before the issue date.")
	}
}
