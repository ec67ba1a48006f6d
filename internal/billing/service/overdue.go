package service

import (
	"context"

	"condo/internal/billing/models"
	catalogmodels "condo/internal/catalog/models"
	dErrors "condo/pkg/domain-errors"
)

// MarkOverdue moves unpaid fees in the pending status whose due date is
// before today to the overdue status, and returns how many moved. Fees an
// administrator put in any other status are left alone.
func (s *Service) MarkOverdue(ctx context.Context, today models.Date) (int, error) {
	var moved int
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		pending, err := s.status(ctx, catalogmodels.StatusPending)
		if err != nil {
			return err
		}
		overdue, err := s.status(ctx, catalogmodels.StatusOverdue)
		if err != nil {
			return err
		}
		if pending == nil || overdue == nil {
			s.logger.WarnContext(ctx, "fee statuses missing, skipping overdue sweep")
			return nil
		}

		fees, err := s.store.ListFees(ctx, models.FeeFilter{UnpaidOnly: true})
		if err != nil {
			return err
		}
		for _, f := range fees {
			if f.StatusID != pending.ID || !f.DueDate.Before(today.Time) {
				continue
			}
			f.StatusID = overdue.ID
			if err := s.store.UpdateFee(ctx, f); err != nil {
				return err
			}
			moved++
		}
		return nil
	})
	if err != nil {
		return 0, translate(err, "fee")
	}
	if moved > 0 {
		if s.metrics != nil {
			s.metrics.FeesOverdue.Add(float64(moved))
		}
		s.logger.InfoContext(ctx, "fees marked overdue", "count", moved, "as_of", today.String())
	}
	return moved, nil
}

func (s *Service) status(ctx context.Context, name string) (*catalogmodels.Entry, error) {
	entry, err := s.catalog.FindByName(ctx, catalogmodels.FeeStatuses, name)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, nil
	}
	return entry, err
}
