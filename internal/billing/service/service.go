// Package service issues fees against units and applies payments to them.
// A fee becomes paid, and moves to the "paid" status, once the payments
// applied to it cover its amount.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"condo/internal/billing/metrics"
	"condo/internal/billing/models"
	catalogmodels "condo/internal/catalog/models"
	propertymodels "condo/internal/property/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

type Store interface {
	CreateFee(ctx context.Context, f *models.Fee) error
	FindFee(ctx context.Context, feeID id.FeeID) (*models.Fee, error)
	// LockFees holds the fees against concurrent payments until the
	// transaction bound to ctx ends.
	LockFees(ctx context.Context, feeIDs []id.FeeID) error
	ListFees(ctx context.Context, filter models.FeeFilter) ([]*models.Fee, error)
	UpdateFee(ctx context.Context, f *models.Fee) error
	DeleteFee(ctx context.Context, feeID id.FeeID) error
	DeleteFeesByUnit(ctx context.Context, unitID id.UnitID) error

	CreatePayment(ctx context.Context, p *models.Payment) error
	FindPayment(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error)
	ListPayments(ctx context.Context) ([]*models.Payment, error)
	UpdatePayment(ctx context.Context, p *models.Payment) error
	DeletePayment(ctx context.Context, paymentID id.PaymentID) error

	FeesUsing(ctx context.Context, kind catalogmodels.Kind, entryID id.CatalogID) (bool, error)
	ClearPaymentType(ctx context.Context, entryID id.CatalogID) error
}

type Units interface {
	Get(ctx context.Context, unitID id.UnitID) (*propertymodels.Unit, error)
}

type Catalog interface {
	Get(ctx context.Context, kind catalogmodels.Kind, entryID id.CatalogID) (*catalogmodels.Entry, error)
	FindByName(ctx context.Context, kind catalogmodels.Kind, name string) (*catalogmodels.Entry, error)
}

type Service struct {
	store   Store
	units   Units
	catalog Catalog
	tx      tx.Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, units Units, catalog Catalog, runner tx.Runner, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("billing store is required")
	case units == nil:
		return nil, errors.New("unit directory is required")
	case catalog == nil:
		return nil, errors.New("catalog is required")
	case runner == nil:
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{
		store:   store,
		units:   units,
		catalog: catalog,
		tx:      runner,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DeleteByUnit removes the fees of a unit being deleted, with their items
// and payment applications. It runs in the caller's transaction.
func (s *Service) DeleteByUnit(ctx context.Context, unitID id.UnitID) error {
	return s.store.DeleteFeesByUnit(ctx, unitID)
}

// CatalogInUse blocks deleting fee types and statuses that fees still use.
func (s *Service) CatalogInUse(ctx context.Context, kind catalogmodels.Kind, entryID id.CatalogID) (bool, error) {
	switch kind {
	case catalogmodels.FeeTypes, catalogmodels.FeeStatuses:
		return s.store.FeesUsing(ctx, kind, entryID)
	default:
		return false, nil
	}
}

// ReleaseCatalog clears the payment type of payments before it is removed.
func (s *Service) ReleaseCatalog(ctx context.Context, kind catalogmodels.Kind, entryID id.CatalogID) error {
	if kind != catalogmodels.PaymentTypes {
		return nil
	}
	return s.store.ClearPaymentType(ctx, entryID)
}

// settle recomputes the paid flag of a fee from its applications and moves
// it between the pending and paid statuses accordingly.
func (s *Service) settle(ctx context.Context, feeID id.FeeID) error {
	f, err := s.store.FindFee(ctx, feeID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	paid := f.Applied > 0 && f.Applied >= f.Amount
	if paid == f.Paid {
		return nil
	}

	paidStatus, err := s.catalog.FindByName(ctx, catalogmodels.FeeStatuses, catalogmodels.StatusPaid)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return err
	}
	f.Paid = paid
	switch {
	case paidStatus == nil:
		s.logger.WarnContext(ctx, "fee status missing, keeping current status", "status", catalogmodels.StatusPaid)
	case paid:
		f.StatusID = paidStatus.ID
	case f.StatusID == paidStatus.ID:
		pending, err := s.catalog.FindByName(ctx, catalogmodels.FeeStatuses, catalogmodels.StatusPending)
		if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		if pending != nil {
			f.StatusID = pending.ID
		}
	}
	if err := s.store.UpdateFee(ctx, f); err != nil {
		return err
	}
	if paid {
		if s.metrics != nil {
			s.metrics.IncrementFeesSettled()
		}
		s.logger.InfoContext(ctx, "fee settled", "fee_id", f.ID.String(), "amount", f.Amount)
	}
	return nil
}

func invalidPK(v string) string {
	return fmt.Sprintf("Invalid pk %q - object does not exist.", v)
}

// lookup resolves a catalog reference, reporting a missing entry as a
// field error. It returns nil when the entry does not exist.
func (s *Service) lookup(ctx context.Context, fields dErrors.FieldErrors, field string, kind catalogmodels.Kind, entryID id.CatalogID) (*catalogmodels.Entry, error) {
	entry, err := s.catalog.Get(ctx, kind, entryID)
	switch {
	case err == nil:
		return entry, nil
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		fields.Add(field, invalidPK(entryID.String()))
		return nil, nil
	default:
		return nil, err
	}
}

func translate(err error, what string) error {
	var derr *dErrors.Error
	switch {
	case errors.As(err, &derr):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrReferenced):
		return dErrors.New(dErrors.CodeValidation, what+" references a missing record")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "billing store failure")
	}
}
